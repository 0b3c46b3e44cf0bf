// Package apperr holds the sentinel errors shared by the note operations and
// their shells.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCancelled     = errors.New("cancelled")
)
