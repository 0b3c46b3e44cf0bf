// Package linkpath converts between absolute note locations and the relative
// link destinations written into Markdown.
package linkpath

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/starford/wikiplugin/internal/note"
)

var (
	ErrTargetNotAbsolute     = errors.New("target file path must be absolute")
	ErrCouldNotConstructLink = errors.New("could not construct link")
	ErrCurrentFileNoParent   = errors.New("current file path has no parent")
	ErrCurrentNoteNoParent   = errors.New("note path has no parent")
	ErrPathNotUTF8           = errors.New("link path is not valid utf-8")
)

// Format returns the link destination that leads from current to target.
//
// Links from a physical note are relative to the note's own directory and use
// forward slashes. A scratch note has no directory, so the absolute target is
// returned unchanged.
func Format(cfg note.Config, current note.Note, target string) (string, error) {
	if !filepath.IsAbs(target) {
		return "", fmt.Errorf("%w: %s", ErrTargetNotAbsolute, target)
	}

	var link string
	switch n := current.(type) {
	case note.Physical:
		from := n.Path(cfg)
		dir := filepath.Dir(from)
		if dir == from {
			return "", fmt.Errorf("%w: %s", ErrCurrentFileNoParent, from)
		}
		rel, err := filepath.Rel(dir, target)
		if err != nil {
			return "", fmt.Errorf("%w from %s to %s: %v", ErrCouldNotConstructLink, from, target, err)
		}
		link = filepath.ToSlash(rel)
	case note.Scratch:
		link = target
	default:
		panic(fmt.Sprintf("linkpath: unknown note type %T", current))
	}

	if !utf8.ValidString(link) {
		return "", fmt.Errorf("%w: %q", ErrPathNotUTF8, link)
	}
	return link, nil
}

// Resolve returns the absolute path a link destination found in current
// points at. Scratch notes resolve relative links against the wiki home.
func Resolve(cfg note.Config, current note.Note, link string) (string, error) {
	p := filepath.FromSlash(link)

	switch n := current.(type) {
	case note.Physical:
		from := n.Path(cfg)
		dir := filepath.Dir(from)
		if dir == from {
			return "", fmt.Errorf("%w: %s", ErrCurrentNoteNoParent, from)
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p), nil
		}
		return filepath.Join(dir, p), nil
	case note.Scratch:
		if filepath.IsAbs(p) {
			return p, nil
		}
		return filepath.Join(cfg.HomePath, p), nil
	}
	panic(fmt.Sprintf("linkpath: unknown note type %T", current))
}
