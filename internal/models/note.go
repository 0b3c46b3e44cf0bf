// Package models defines the plain data types shared between storage and the
// search index.
package models

import "time"

// NoteFile is a Markdown file found under the wiki home.
type NoteFile struct {
	Path      string    `json:"path"` // relative to the wiki home
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexedNote is a note as stored in the search index.
type IndexedNote struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Date      time.Time `json:"date,omitzero"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
