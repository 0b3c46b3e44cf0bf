// Package headless implements host.Host without an editor. Buffers are loaded
// from files on demand and kept in memory until Flush writes them back.
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/wikiplugin/internal/host"
)

var (
	ErrNoCurrentBuffer = errors.New("no current buffer")
	ErrUnknownBuffer   = errors.New("unknown buffer")
	ErrBufferNotLoaded = errors.New("buffer is not loaded")
	ErrLineRange       = errors.New("line range out of bounds")
	ErrNoPrompter      = errors.New("no prompter configured")
)

type buffer struct {
	path    string // "" for scratch buffers
	lines   []string
	loaded  bool
	dirty   bool
	bufType string
}

// Host is an in-process editor. The zero value is not usable; call New.
type Host struct {
	buffers  map[host.Buffer]*buffer
	order    []host.Buffer
	next     host.Buffer
	current  host.Buffer
	cursor   int
	prompter Prompter
	logger   *slog.Logger
	opened   []string
	reported []string
}

var _ host.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithPrompter sets how Prompt obtains answers.
func WithPrompter(p Prompter) Option {
	return func(h *Host) { h.prompter = p }
}

// WithLogger sets the logger used for reported errors and flushes.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// New returns an empty host with no buffers.
func New(opts ...Option) *Host {
	h := &Host{
		buffers: make(map[host.Buffer]*buffer),
		next:    1,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Host) add(b *buffer) host.Buffer {
	id := h.next
	h.next++
	h.buffers[id] = b
	h.order = append(h.order, id)
	return id
}

func (h *Host) get(buf host.Buffer) (*buffer, error) {
	b, ok := h.buffers[buf]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBuffer, buf)
	}
	return b, nil
}

// Open loads the file at path into a buffer and makes it current. A file that
// does not exist yet yields an empty buffer. Opening the same path twice
// returns the existing buffer.
func (h *Host) Open(path string) (host.Buffer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("headless: resolve %s: %w", path, err)
	}
	for _, id := range h.order {
		if b := h.buffers[id]; b.path == abs {
			if !b.loaded {
				if err := h.load(b); err != nil {
					return 0, err
				}
			}
			h.current = id
			return id, nil
		}
	}
	b := &buffer{path: abs}
	if err := h.load(b); err != nil {
		return 0, err
	}
	id := h.add(b)
	h.current = id
	return id, nil
}

func (h *Host) load(b *buffer) error {
	data, err := os.ReadFile(b.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return fmt.Errorf("headless: load %s: %w", b.path, err)
	}
	b.lines = SplitLines(string(data))
	b.loaded = true
	b.dirty = false
	return nil
}

// OpenScratch creates a scratch buffer holding lines and makes it current.
func (h *Host) OpenScratch(lines []string) host.Buffer {
	id := h.add(&buffer{lines: slices.Clone(lines), loaded: true, bufType: host.BufTypeNoFile})
	h.current = id
	return id
}

// Unload drops the in-memory content of buf, as an editor does for a hidden
// buffer. Unflushed changes are lost.
func (h *Host) Unload(buf host.Buffer) error {
	b, err := h.get(buf)
	if err != nil {
		return err
	}
	if b.path == "" {
		return fmt.Errorf("headless: cannot unload scratch buffer %d", buf)
	}
	b.lines, b.loaded, b.dirty = nil, false, false
	return nil
}

// SetCursor moves the cursor of the current buffer to a byte offset.
func (h *Host) SetCursor(offset int) { h.cursor = offset }

// Opened returns the paths passed to OpenFile, in order.
func (h *Host) Opened() []string { return slices.Clone(h.opened) }

// Reported returns the messages passed to ReportError, in order.
func (h *Host) Reported() []string { return slices.Clone(h.reported) }

// Flush writes every modified file buffer back to disk.
func (h *Host) Flush() error {
	for _, id := range h.order {
		b := h.buffers[id]
		if b.path == "" || !b.dirty {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return fmt.Errorf("headless: mkdir: %w", err)
		}
		if err := atomic.WriteFile(b.path, strings.NewReader(host.JoinLines(b.lines))); err != nil {
			return fmt.Errorf("headless: write %s: %w", b.path, err)
		}
		b.dirty = false
		h.logger.Debug("headless: buffer flushed", slog.String("path", b.path), slog.Int("lines", len(b.lines)))
	}
	return nil
}

// CurrentBuffer returns the buffer last opened or made current.
func (h *Host) CurrentBuffer(context.Context) (host.Buffer, error) {
	if h.current == 0 {
		return 0, ErrNoCurrentBuffer
	}
	return h.current, nil
}

// ListBuffers returns every buffer in creation order.
func (h *Host) ListBuffers(context.Context) ([]host.Buffer, error) {
	return slices.Clone(h.order), nil
}

// BufferIsLoaded reports whether buf holds lines. Unloaded buffers keep
// their path only.
func (h *Host) BufferIsLoaded(_ context.Context, buf host.Buffer) (bool, error) {
	b, err := h.get(buf)
	if err != nil {
		return false, err
	}
	return b.loaded, nil
}

// BufferPath returns the file behind buf, or "" for scratch buffers.
func (h *Host) BufferPath(_ context.Context, buf host.Buffer) (string, error) {
	b, err := h.get(buf)
	if err != nil {
		return "", err
	}
	return b.path, nil
}

// BufferLines returns a copy of the lines of a loaded buffer.
func (h *Host) BufferLines(_ context.Context, buf host.Buffer) ([]string, error) {
	b, err := h.get(buf)
	if err != nil {
		return nil, err
	}
	if !b.loaded {
		return nil, fmt.Errorf("%w: %d", ErrBufferNotLoaded, buf)
	}
	return slices.Clone(b.lines), nil
}

// SetBufferLines replaces lines [start, end) of buf. A negative end means
// the end of the buffer. The buffer is written back by Flush.
func (h *Host) SetBufferLines(_ context.Context, buf host.Buffer, start, end int, lines []string) error {
	b, err := h.get(buf)
	if err != nil {
		return err
	}
	if !b.loaded {
		return fmt.Errorf("%w: %d", ErrBufferNotLoaded, buf)
	}
	if end < 0 {
		end = len(b.lines)
	}
	if start < 0 || start > end || end > len(b.lines) {
		return fmt.Errorf("%w: [%d, %d) of %d lines", ErrLineRange, start, end, len(b.lines))
	}
	b.lines = slices.Concat(b.lines[:start], lines, b.lines[end:])
	b.dirty = true
	return nil
}

// BufferType returns host.BufTypeNoFile for scratch buffers and "" otherwise.
func (h *Host) BufferType(_ context.Context, buf host.Buffer) (string, error) {
	b, err := h.get(buf)
	if err != nil {
		return "", err
	}
	return b.bufType, nil
}

// NewScratchBuffer adds an empty in-memory buffer.
func (h *Host) NewScratchBuffer(context.Context) (host.Buffer, error) {
	return h.add(&buffer{loaded: true, bufType: host.BufTypeNoFile}), nil
}

// SetCurrentBuffer makes buf current.
func (h *Host) SetCurrentBuffer(_ context.Context, buf host.Buffer) error {
	if _, err := h.get(buf); err != nil {
		return err
	}
	h.current = buf
	return nil
}

// OpenFile loads path into a buffer, makes it current and records it in
// Opened.
func (h *Host) OpenFile(_ context.Context, path string) error {
	if _, err := h.Open(path); err != nil {
		return err
	}
	h.opened = append(h.opened, path)
	return nil
}

// Prompt asks the configured Prompter. Without one it fails with
// ErrNoPrompter.
func (h *Host) Prompt(ctx context.Context, message string) (string, error) {
	if h.prompter == nil {
		return "", ErrNoPrompter
	}
	return h.prompter.Prompt(ctx, message)
}

// CursorByteOffset returns the offset set by SetCursor.
func (h *Host) CursorByteOffset(context.Context) (int, error) {
	if h.current == 0 {
		return 0, ErrNoCurrentBuffer
	}
	return h.cursor, nil
}

// ReportError records message for Reported and logs it.
func (h *Host) ReportError(_ context.Context, message string) error {
	h.reported = append(h.reported, message)
	h.logger.Warn("headless: error reported", slog.String("message", message))
	return nil
}

// SplitLines splits file content into buffer lines. The final newline
// terminates the last line rather than starting an empty one.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
