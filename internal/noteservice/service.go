// Package noteservice implements the user-facing note operations on top of
// an editor host.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"gopkg.in/yaml.v3"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/autogen"
	"github.com/starford/wikiplugin/internal/graph"
	"github.com/starford/wikiplugin/internal/host"
	"github.com/starford/wikiplugin/internal/linkpath"
	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/storage"
	"github.com/starford/wikiplugin/internal/tagindex"
	"github.com/starford/wikiplugin/internal/workspace"
)

// IndexFile is the note opened by OpenIndex, relative to the wiki home.
const IndexFile = "index.md"

var (
	ErrNoLinkUnderCursor = errors.New("no link under cursor")
	ErrExternalLink      = errors.New("link does not point to a note")
	ErrNotPhysical       = errors.New("current buffer is not a saved note")
)

// Service coordinates the note operations. It holds no per-request state;
// every call is given the host to work against.
type Service struct {
	cfg    note.Config
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for new note ids and dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service. A nil logger discards output.
func NewService(cfg note.Config, store storage.Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{cfg: cfg, store: store, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the wiki configuration.
func (s *Service) Config() note.Config { return s.cfg }

// Workspace binds the service to h.
func (s *Service) Workspace(h host.Host) *workspace.Workspace {
	return workspace.New(s.cfg, h, s.store, s.logger)
}

// NewNote prompts for a title and writes a new note with a frontmatter
// template into dirs. The id is the current time in the configured format.
// With focus set the note is opened in the editor.
func (s *Service) NewNote(ctx context.Context, h host.Host, dirs []string, focus bool) (note.Physical, error) {
	title, err := h.Prompt(ctx, "note name: ")
	if err != nil {
		return note.Physical{}, fmt.Errorf("new note: prompt: %w", err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return note.Physical{}, fmt.Errorf("new note: %w", apperr.ErrCancelled)
	}

	now := s.now()
	id := timefmt.Format(now, s.cfg.NoteIDTimestampFormat)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return note.Physical{}, fmt.Errorf("new note: invalid note id %q from format %q", id, s.cfg.NoteIDTimestampFormat)
	}
	n := note.NewPhysical(dirs, id)

	exists, err := s.store.Exists(n.RelPath())
	if err != nil {
		return note.Physical{}, fmt.Errorf("new note: %w", err)
	}
	if exists {
		return note.Physical{}, fmt.Errorf("new note %s: %w", n.RelPath(), apperr.ErrAlreadyExists)
	}

	content, err := newNoteContent(title, now, s.cfg)
	if err != nil {
		return note.Physical{}, fmt.Errorf("new note: %w", err)
	}
	if err := s.store.Write(n.RelPath(), []byte(content)); err != nil {
		return note.Physical{}, fmt.Errorf("new note: %w", err)
	}
	s.logger.Info("noteservice: note created", slog.String("path", n.RelPath()))

	if focus {
		if err := h.OpenFile(ctx, n.Path(s.cfg)); err != nil {
			return note.Physical{}, fmt.Errorf("new note: open: %w", err)
		}
	}
	return n, nil
}

func newNoteContent(title string, now time.Time, cfg note.Config) (string, error) {
	quoted, err := yaml.Marshal(title)
	if err != nil {
		return "", fmt.Errorf("quote title: %w", err)
	}
	return host.JoinLines([]string{
		"---",
		"title: " + strings.TrimSuffix(string(quoted), "\n"),
		"date: " + timefmt.Format(now, cfg.DateFormat),
		"time: " + timefmt.Format(now, cfg.TimeFormat),
		"tags:",
		"---",
	}), nil
}

// OpenIndex opens the wiki's index note.
func (s *Service) OpenIndex(ctx context.Context, h host.Host) error {
	if err := h.OpenFile(ctx, filepath.Join(s.cfg.HomePath, IndexFile)); err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	return nil
}

// NewNoteAndInsertLink creates a note next to the current one without
// opening it and links to it at the cursor.
func (s *Service) NewNoteAndInsertLink(ctx context.Context, h host.Host) (note.Physical, error) {
	current, err := note.Current(ctx, s.cfg, h)
	if err != nil {
		return note.Physical{}, err
	}
	var dirs []string
	if p, ok := current.(note.Physical); ok {
		dirs = p.Directories
	}
	n, err := s.NewNote(ctx, h, dirs, false)
	if err != nil {
		return note.Physical{}, err
	}
	return n, s.InsertLinkAtCursor(ctx, h, n, "")
}

// InsertLinkAtCursor inserts a link to target at the cursor. An empty text
// uses the target's frontmatter title.
func (s *Service) InsertLinkAtCursor(ctx context.Context, h host.Host, target note.Physical, text string) error {
	ws := s.Workspace(h)
	current, err := ws.CurrentNote(ctx)
	if err != nil {
		return err
	}
	if text == "" {
		if text, err = s.title(ctx, ws, target); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}
	link, err := linkpath.Format(s.cfg, current, target.Path(s.cfg))
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return insertAtCursor(ctx, h, markdown.FormatLink(text, link))
}

func (s *Service) title(ctx context.Context, ws *workspace.Workspace, n note.Physical) (string, error) {
	root, err := ws.Document(ctx, n)
	if err != nil {
		return "", err
	}
	fm, err := markdown.ParseFrontmatter(root)
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.RelPath(), err)
	}
	title, err := markdown.GetTitle(fm)
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.RelPath(), err)
	}
	return title, nil
}

// InsertLinkAtCursorOrCreate links to target, or to a newly created note
// when target is nil.
func (s *Service) InsertLinkAtCursorOrCreate(ctx context.Context, h host.Host, target *note.Physical, text string) error {
	if target == nil {
		_, err := s.NewNoteAndInsertLink(ctx, h)
		return err
	}
	return s.InsertLinkAtCursor(ctx, h, *target, text)
}

// InsertLinkToPathAtCursorOrCreate is InsertLinkAtCursorOrCreate for a file
// path, absolute or relative to the wiki home. An empty path creates a note.
func (s *Service) InsertLinkToPathAtCursorOrCreate(ctx context.Context, h host.Host, path, text string) error {
	if path == "" {
		return s.InsertLinkAtCursorOrCreate(ctx, h, nil, text)
	}
	target, err := note.ParseFromFilepath(s.cfg, path)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return s.InsertLinkAtCursorOrCreate(ctx, h, &target, text)
}

func insertAtCursor(ctx context.Context, h host.Host, text string) error {
	buf, err := h.CurrentBuffer(ctx)
	if err != nil {
		return fmt.Errorf("insert: current buffer: %w", err)
	}
	lines, err := h.BufferLines(ctx, buf)
	if err != nil {
		return fmt.Errorf("insert: read buffer: %w", err)
	}
	offset, err := h.CursorByteOffset(ctx)
	if err != nil {
		return fmt.Errorf("insert: cursor: %w", err)
	}

	row, col := locate(lines, offset)
	if row == len(lines) {
		err = h.SetBufferLines(ctx, buf, row, row, []string{text})
	} else {
		line := lines[row]
		err = h.SetBufferLines(ctx, buf, row, row+1, []string{line[:col] + text + line[col:]})
	}
	if err != nil {
		return fmt.Errorf("insert: write buffer: %w", err)
	}
	return nil
}

// locate maps a byte offset into newline-joined lines to a line and column.
// Offsets past the end map to one line beyond the last.
func locate(lines []string, offset int) (row, col int) {
	offset = max(offset, 0)
	for i, l := range lines {
		if offset <= len(l) {
			return i, offset
		}
		offset -= len(l) + 1
	}
	return len(lines), 0
}

// OpenTagIndex shows every note grouped by tag in a scratch buffer.
func (s *Service) OpenTagIndex(ctx context.Context, h host.Host) error {
	return tagindex.Open(ctx, s.Workspace(h))
}

// FollowLink opens the note linked under the cursor and returns its path.
func (s *Service) FollowLink(ctx context.Context, h host.Host) (string, error) {
	ws := s.Workspace(h)
	current, err := ws.CurrentNote(ctx)
	if err != nil {
		return "", err
	}
	root, err := ws.Document(ctx, current)
	if err != nil {
		return "", fmt.Errorf("follow link: %w", err)
	}
	offset, err := h.CursorByteOffset(ctx)
	if err != nil {
		return "", fmt.Errorf("follow link: cursor: %w", err)
	}
	link, ok := markdown.LinkAt(root, offset)
	if !ok {
		return "", ErrNoLinkUnderCursor
	}
	dest, ok := graph.Target(link.URL)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrExternalLink, link.URL)
	}
	path, err := linkpath.Resolve(s.cfg, current, dest)
	if err != nil {
		return "", fmt.Errorf("follow link: %w", err)
	}
	if err := h.OpenFile(ctx, path); err != nil {
		return "", fmt.Errorf("follow link: open: %w", err)
	}
	return path, nil
}

// DeleteNote removes the current note's file after the user types "yes".
func (s *Service) DeleteNote(ctx context.Context, h host.Host) (note.Physical, error) {
	current, err := note.Current(ctx, s.cfg, h)
	if err != nil {
		return note.Physical{}, err
	}
	n, ok := current.(note.Physical)
	if !ok {
		return note.Physical{}, fmt.Errorf("delete note: %w", ErrNotPhysical)
	}
	answer, err := h.Prompt(ctx, fmt.Sprintf("delete %s? type yes to confirm: ", n.Path(s.cfg)))
	if err != nil {
		return note.Physical{}, fmt.Errorf("delete note: prompt: %w", err)
	}
	if answer != "yes" {
		return note.Physical{}, fmt.Errorf("delete note: %w", apperr.ErrCancelled)
	}
	if err := s.store.Delete(n.RelPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return note.Physical{}, fmt.Errorf("delete note %s: %w", n.RelPath(), apperr.ErrNotFound)
		}
		return note.Physical{}, fmt.Errorf("delete note: %w", err)
	}
	s.logger.Info("noteservice: note deleted", slog.String("path", n.RelPath()))
	return n, nil
}

// RegenerateAutogeneratedSections rewrites the generated sections of the
// current buffer.
func (s *Service) RegenerateAutogeneratedSections(ctx context.Context, h host.Host) error {
	ws := s.Workspace(h)
	current, err := ws.CurrentNote(ctx)
	if err != nil {
		return err
	}
	buf, err := h.CurrentBuffer(ctx)
	if err != nil {
		return fmt.Errorf("regenerate: current buffer: %w", err)
	}
	return autogen.New(ws).Regenerate(ctx, current, autogen.HostBuffer{Host: h, Buffer: buf})
}

// Backlinks lists the notes linking to target.
func (s *Service) Backlinks(ctx context.Context, h host.Host, target note.Physical) ([]string, error) {
	return graph.Backlinks(ctx, s.Workspace(h), target)
}

// ReadNote returns the content of n as the host sees it.
func (s *Service) ReadNote(ctx context.Context, h host.Host, n note.Physical) (string, error) {
	return s.Workspace(h).ReadContents(ctx, n)
}
