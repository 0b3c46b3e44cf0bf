package headless

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/host"
)

func TestOpenEditFlush(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := New()
	buf, err := h.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if cur, _ := h.CurrentBuffer(ctx); cur != buf {
		t.Errorf("current = %d, want %d", cur, buf)
	}
	if err := h.SetBufferLines(ctx, buf, 1, 2, []string{"2a", "2b"}); err != nil {
		t.Fatalf("SetBufferLines: %v", err)
	}
	lines, _ := h.BufferLines(ctx, buf)
	if diff := cmp.Diff([]string{"one", "2a", "2b", "three"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "one\ntwo\nthree\n" {
		t.Errorf("file changed before Flush: %q", data)
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "one\n2a\n2b\nthree\n" {
		t.Errorf("file = %q", data)
	}
}

func TestOpenSamePathReusesBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.md")
	h := New()
	a, err := h.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, _ := h.Open(path)
	if a != b {
		t.Errorf("second Open = %d, want %d", b, a)
	}
	lines, _ := h.BufferLines(context.Background(), a)
	if len(lines) != 0 {
		t.Errorf("lines of new file = %q, want none", lines)
	}
}

func TestSetBufferLinesToEnd(t *testing.T) {
	ctx := context.Background()
	h := New()
	buf := h.OpenScratch([]string{"a", "b"})
	if err := h.SetBufferLines(ctx, buf, 0, -1, []string{"x"}); err != nil {
		t.Fatalf("SetBufferLines: %v", err)
	}
	lines, _ := h.BufferLines(ctx, buf)
	if diff := cmp.Diff([]string{"x"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if err := h.SetBufferLines(ctx, buf, 3, 4, nil); !errors.Is(err, ErrLineRange) {
		t.Errorf("out of range: err = %v, want ErrLineRange", err)
	}
}

func TestScratchBuffer(t *testing.T) {
	ctx := context.Background()
	h := New()
	buf, _ := h.NewScratchBuffer(ctx)
	typ, _ := h.BufferType(ctx, buf)
	if typ != host.BufTypeNoFile {
		t.Errorf("buftype = %q, want %q", typ, host.BufTypeNoFile)
	}
	if _, err := h.CurrentBuffer(ctx); !errors.Is(err, ErrNoCurrentBuffer) {
		t.Errorf("CurrentBuffer before SetCurrentBuffer: err = %v", err)
	}
	if err := h.SetCurrentBuffer(ctx, buf); err != nil {
		t.Fatalf("SetCurrentBuffer: %v", err)
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestUnload(t *testing.T) {
	ctx := context.Background()
	h := New()
	buf, _ := h.Open(filepath.Join(t.TempDir(), "a.md"))
	if err := h.Unload(buf); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	loaded, _ := h.BufferIsLoaded(ctx, buf)
	if loaded {
		t.Error("buffer still loaded")
	}
	if _, err := h.BufferLines(ctx, buf); !errors.Is(err, ErrBufferNotLoaded) {
		t.Errorf("BufferLines: err = %v, want ErrBufferNotLoaded", err)
	}
}

func TestPromptAndReport(t *testing.T) {
	ctx := context.Background()
	h := New(WithPrompter(Answers("first")))
	got, err := h.Prompt(ctx, "name: ")
	if err != nil || got != "first" {
		t.Fatalf("Prompt = %q, %v", got, err)
	}
	if _, err := h.Prompt(ctx, "name: "); !errors.Is(err, apperr.ErrCancelled) {
		t.Errorf("exhausted prompt: err = %v, want ErrCancelled", err)
	}
	if _, err := New().Prompt(ctx, "x"); !errors.Is(err, ErrNoPrompter) {
		t.Errorf("no prompter: err = %v", err)
	}

	_ = h.ReportError(ctx, "boom")
	if diff := cmp.Diff([]string{"boom"}, h.Reported()); diff != "" {
		t.Errorf("reported mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitLines(t *testing.T) {
	tests := map[string][]string{
		"":       nil,
		"\n":     {""},
		"a":      {"a"},
		"a\nb\n": {"a", "b"},
		"a\n\nb": {"a", "", "b"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, SplitLines(in)); diff != "" {
			t.Errorf("SplitLines(%q) mismatch (-want +got):\n%s", in, diff)
		}
		if in != "" && in[len(in)-1] == '\n' && host.JoinLines(SplitLines(in)) != in {
			t.Errorf("JoinLines(SplitLines(%q)) = %q", in, host.JoinLines(SplitLines(in)))
		}
	}
}
