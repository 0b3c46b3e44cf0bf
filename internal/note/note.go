// Package note models wiki notes: where they live on disk and how they are
// identified independently of any editor buffer.
package note

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/wikiplugin/internal/host"
)

// Extension is appended to a note id to form its file name.
const Extension = ".md"

var (
	ErrFileNotWithinWikiDir = errors.New("file is not within the wiki directory")
	ErrNoFileStem           = errors.New("path has no file stem")
	ErrNoPathParent         = errors.New("path has no parent")
	ErrPathNotUTF8          = errors.New("path is not valid utf-8")
)

// Note is either a Physical note or a Scratch note.
type Note interface {
	isNote()
}

// Physical is a note backed by a Markdown file under the wiki home.
type Physical struct {
	// Directories are the path segments from the wiki home to the containing folder.
	Directories []string
	// ID is the file stem.
	ID string
}

// Scratch is an unsaved, unnamed editor buffer. It can link to notes but
// cannot be linked to.
type Scratch struct {
	Buffer host.Buffer
}

func (Physical) isNote() {}
func (Scratch) isNote()  {}

// NewPhysical returns a physical note in directories with the given id.
func NewPhysical(directories []string, id string) Physical {
	return Physical{Directories: directories, ID: id}
}

// RelPath returns the note's file path relative to the wiki home.
func (p Physical) RelPath() string {
	parts := make([]string, 0, len(p.Directories)+1)
	parts = append(parts, p.Directories...)
	parts = append(parts, p.ID+Extension)
	return filepath.Join(parts...)
}

// Path returns the absolute file path of the note.
func (p Physical) Path(cfg Config) string {
	return filepath.Join(cfg.HomePath, p.RelPath())
}

// Equal reports whether p and o name the same note.
func (p Physical) Equal(o Physical) bool {
	return p.ID == o.ID && slices.Equal(p.Directories, o.Directories)
}

// Compare orders notes by directories, then id.
func Compare(a, b Physical) int {
	if c := slices.Compare(a.Directories, b.Directories); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Path returns the absolute file path of n. Scratch notes have none.
func Path(cfg Config, n Note) (string, bool) {
	switch n := n.(type) {
	case Physical:
		return n.Path(cfg), true
	case Scratch:
		return "", false
	}
	panic(fmt.Sprintf("note: unknown note type %T", n))
}

// ParseFromFilepath maps a file path to the physical note it names. Relative
// paths are taken relative to the wiki home.
func ParseFromFilepath(cfg Config, path string) (Physical, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.HomePath, path)
	}
	home := canonicalize(cfg.HomePath)
	target := canonicalize(path)
	if filepath.Dir(target) == target {
		return Physical{}, fmt.Errorf("%w: %s", ErrNoPathParent, path)
	}

	rel, err := filepath.Rel(home, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Physical{}, fmt.Errorf("%w: %s", ErrFileNotWithinWikiDir, path)
	}
	if rel == "." {
		return Physical{}, fmt.Errorf("%w: %s", ErrNoFileStem, path)
	}

	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return Physical{}, fmt.Errorf("%w: %s", ErrNoFileStem, path)
	}
	if !utf8.ValidString(rel) {
		return Physical{}, fmt.Errorf("%w: %q", ErrPathNotUTF8, path)
	}

	parent := filepath.Dir(rel)
	var dirs []string
	if parent != "." {
		dirs = strings.Split(parent, string(filepath.Separator))
	}
	return NewPhysical(dirs, stem), nil
}

// canonicalize resolves symlinks as far as the path exists, so that notes that
// have not been written yet still map to the right place.
func canonicalize(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(canonicalize(parent), filepath.Base(path))
}

// Current returns the note for the buffer in the active editor window.
// Unnamed or nofile buffers become Scratch notes.
func Current(ctx context.Context, cfg Config, h host.Host) (Note, error) {
	buf, err := h.CurrentBuffer(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current buffer: %w", err)
	}
	bufType, err := h.BufferType(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("get buffer type: %w", err)
	}
	if bufType == host.BufTypeNoFile {
		return Scratch{Buffer: buf}, nil
	}
	path, err := h.BufferPath(ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("get buffer path: %w", err)
	}
	if path == "" {
		return Scratch{Buffer: buf}, nil
	}
	return ParseFromFilepath(cfg, path)
}
