// Package host defines the editor capabilities the wiki core calls into.
//
// The editor owns buffers, the cursor and all user interaction. The core never
// caches anything it learns through Host: every operation asks again.
package host

import "context"

// BufTypeNoFile is the buffer type of an unnamed scratch buffer.
const BufTypeNoFile = "nofile"

// Buffer is an opaque editor buffer handle.
type Buffer int

// Host is the editor collaborator.
type Host interface {
	// CurrentBuffer returns the buffer shown in the active window.
	CurrentBuffer(ctx context.Context) (Buffer, error)
	// ListBuffers returns every buffer known to the editor.
	ListBuffers(ctx context.Context) ([]Buffer, error)
	// BufferIsLoaded reports whether the buffer's content is in memory.
	BufferIsLoaded(ctx context.Context, buf Buffer) (bool, error)
	// BufferPath returns the absolute file path of the buffer, or "" for unnamed buffers.
	BufferPath(ctx context.Context, buf Buffer) (string, error)
	// BufferLines returns all lines of the buffer without trailing newlines.
	BufferLines(ctx context.Context, buf Buffer) ([]string, error)
	// SetBufferLines replaces lines [start, end) with lines. A negative end means
	// the end of the buffer.
	SetBufferLines(ctx context.Context, buf Buffer, start, end int, lines []string) error
	// BufferType returns the editor's buffer type option ("" for regular files).
	BufferType(ctx context.Context, buf Buffer) (string, error)
	// NewScratchBuffer creates an empty unlisted buffer with no file behind it.
	NewScratchBuffer(ctx context.Context) (Buffer, error)
	// SetCurrentBuffer shows buf in the active window.
	SetCurrentBuffer(ctx context.Context, buf Buffer) error
	// OpenFile opens path in the active window.
	OpenFile(ctx context.Context, path string) error
	// Prompt asks the user for a line of text.
	Prompt(ctx context.Context, message string) (string, error)
	// CursorByteOffset returns the cursor position in the current buffer as a
	// 0-based byte offset into its newline-joined lines.
	CursorByteOffset(ctx context.Context) (int, error)
	// ReportError shows a non-fatal error message to the user.
	ReportError(ctx context.Context, message string) error
}

// JoinLines joins buffer lines the way they would be written to disk.
func JoinLines(lines []string) string {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	b := make([]byte, 0, n)
	for _, l := range lines {
		b = append(b, l...)
		b = append(b, '\n')
	}
	return string(b)
}
