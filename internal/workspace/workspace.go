// Package workspace reads note content the way the user currently sees it:
// from an open editor buffer when there is one, from disk otherwise.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/host"
	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/storage"
)

// Workspace binds the wiki configuration to a host and the files on disk.
type Workspace struct {
	cfg    note.Config
	host   host.Host
	store  storage.Provider
	logger *slog.Logger
}

// New returns a workspace. A nil logger discards output.
func New(cfg note.Config, h host.Host, store storage.Provider, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workspace{cfg: cfg, host: h, store: store, logger: logger}
}

// Config returns the wiki configuration.
func (w *Workspace) Config() note.Config { return w.cfg }

// Host returns the editor the workspace reads buffers from.
func (w *Workspace) Host() host.Host { return w.host }

// Logger returns the logger absorbed failures are written to.
func (w *Workspace) Logger() *slog.Logger { return w.logger }

// Store returns the file access behind note listings.
func (w *Workspace) Store() storage.Provider { return w.store }

// CurrentNote returns the note shown in the active editor window.
func (w *Workspace) CurrentNote(ctx context.Context) (note.Note, error) {
	return note.Current(ctx, w.cfg, w.host)
}

// ReadContents returns the text of n. An open, loaded buffer for the note's
// file wins over the file on disk so unsaved edits are seen. Scratch notes are
// always read from their buffer.
//
// Every call scans the host's buffer list; nothing is cached.
func (w *Workspace) ReadContents(ctx context.Context, n note.Note) (string, error) {
	switch n := n.(type) {
	case note.Scratch:
		lines, err := w.host.BufferLines(ctx, n.Buffer)
		if err != nil {
			return "", fmt.Errorf("workspace: read scratch buffer %d: %w", n.Buffer, err)
		}
		return host.JoinLines(lines), nil
	case note.Physical:
		buf, ok, err := w.findBuffer(ctx, n.Path(w.cfg))
		if err != nil {
			return "", err
		}
		if ok {
			lines, err := w.host.BufferLines(ctx, buf)
			if err != nil {
				return "", fmt.Errorf("workspace: read buffer %d: %w", buf, err)
			}
			return host.JoinLines(lines), nil
		}
		data, err := w.store.Read(n.RelPath())
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("workspace: %s: %w", n.RelPath(), apperr.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("workspace: %w", err)
		}
		return string(data), nil
	}
	panic(fmt.Sprintf("workspace: unknown note type %T", n))
}

func (w *Workspace) findBuffer(ctx context.Context, path string) (host.Buffer, bool, error) {
	bufs, err := w.host.ListBuffers(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("workspace: list buffers: %w", err)
	}
	path = filepath.Clean(path)
	for _, b := range bufs {
		loaded, err := w.host.BufferIsLoaded(ctx, b)
		if err != nil {
			return 0, false, fmt.Errorf("workspace: buffer %d loaded: %w", b, err)
		}
		if !loaded {
			continue
		}
		p, err := w.host.BufferPath(ctx, b)
		if err != nil {
			return 0, false, fmt.Errorf("workspace: buffer %d path: %w", b, err)
		}
		if p != "" && filepath.Clean(p) == path {
			return b, true, nil
		}
	}
	return 0, false, nil
}

// Notes returns every physical note under the wiki home in directory walk
// order. Files that do not map to a note are logged and skipped.
func (w *Workspace) Notes(_ context.Context) ([]note.Physical, error) {
	files, err := w.store.List("")
	if err != nil {
		return nil, fmt.Errorf("workspace: list notes: %w", err)
	}
	notes := make([]note.Physical, 0, len(files))
	for _, f := range files {
		n, err := note.ParseFromFilepath(w.cfg, f.Path)
		if err != nil {
			w.logger.Debug("workspace: skip file", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// Document reads and parses n.
func (w *Workspace) Document(ctx context.Context, n note.Note) (*markdown.Node, error) {
	content, err := w.ReadContents(ctx, n)
	if err != nil {
		return nil, err
	}
	return markdown.Parse(content)
}

// Metadata is what aggregate listings need to know about a note.
type Metadata struct {
	Title     string // "" when absent
	Tags      []note.Tag
	Timestamp time.Time // zero when absent
	Links     []markdown.Link
}

// HasTimestamp reports whether the note carried a valid date.
func (m Metadata) HasTimestamp() bool { return !m.Timestamp.IsZero() }

// DisplayTitle returns the title, or the id for untitled notes.
func (m Metadata) DisplayTitle(n note.Physical) string {
	if m.Title != "" {
		return m.Title
	}
	return n.ID
}

// Metadata reads n and extracts whatever it can. Unreadable notes and bad
// frontmatter degrade to empty fields instead of failing, so one broken note
// cannot block a listing of the others.
func (w *Workspace) Metadata(ctx context.Context, n note.Note) Metadata {
	var md Metadata
	root, err := w.Document(ctx, n)
	if err != nil {
		w.absorb(n, "read", err)
		return md
	}
	md.Links = markdown.GetAllLinks(root)

	fm, err := markdown.ParseFrontmatter(root)
	if err != nil {
		w.absorb(n, "frontmatter", err)
		return md
	}
	if md.Title, err = markdown.GetTitle(fm); err != nil {
		w.absorb(n, "title", err)
	}
	if md.Tags, err = markdown.GetTags(fm); err != nil {
		w.absorb(n, "tags", err)
	}
	if md.Timestamp, err = markdown.GetTimestamp(fm, w.cfg.DateFormat, w.cfg.TimeFormat); err != nil {
		w.absorb(n, "timestamp", err)
	}
	return md
}

func (w *Workspace) absorb(n note.Note, what string, err error) {
	w.logger.Debug("workspace: metadata degraded",
		slog.String("note", describe(n)),
		slog.String("field", what),
		slog.String("error", err.Error()),
	)
}

func describe(n note.Note) string {
	switch n := n.(type) {
	case note.Physical:
		return n.RelPath()
	case note.Scratch:
		return fmt.Sprintf("scratch buffer %d", n.Buffer)
	}
	return fmt.Sprintf("%T", n)
}
