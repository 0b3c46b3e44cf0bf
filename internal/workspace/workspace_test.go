package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/host/headless"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/testutil"
)

func TestReadContents_PrefersLoadedBuffer(t *testing.T) {
	ctx := context.Background()
	cfg, store := testutil.TestWiki(t)
	path := testutil.WriteFile(t, cfg, "dir/a.md", "on disk\n")

	h := headless.New()
	ws := New(cfg, h, store, nil)
	n := note.NewPhysical([]string{"dir"}, "a")

	got, err := ws.ReadContents(ctx, n)
	if err != nil || got != "on disk\n" {
		t.Fatalf("ReadContents without buffer = %q, %v", got, err)
	}

	buf, err := h.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetBufferLines(ctx, buf, 0, -1, []string{"unsaved", "edit"}); err != nil {
		t.Fatal(err)
	}
	got, err = ws.ReadContents(ctx, n)
	if err != nil || got != "unsaved\nedit\n" {
		t.Fatalf("ReadContents with buffer = %q, %v", got, err)
	}

	if err := h.Unload(buf); err != nil {
		t.Fatal(err)
	}
	got, err = ws.ReadContents(ctx, n)
	if err != nil || got != "on disk\n" {
		t.Fatalf("ReadContents with unloaded buffer = %q, %v", got, err)
	}
}

func TestReadContents_Scratch(t *testing.T) {
	ctx := context.Background()
	cfg, store := testutil.TestWiki(t)
	h := headless.New()
	buf := h.OpenScratch([]string{"scratch"})

	got, err := New(cfg, h, store, nil).ReadContents(ctx, note.Scratch{Buffer: buf})
	if err != nil || got != "scratch\n" {
		t.Fatalf("ReadContents = %q, %v", got, err)
	}
}

func TestReadContents_Missing(t *testing.T) {
	cfg, store := testutil.TestWiki(t)
	_, err := New(cfg, headless.New(), store, nil).ReadContents(context.Background(), note.NewPhysical(nil, "nope"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCurrentNote(t *testing.T) {
	ctx := context.Background()
	cfg, store := testutil.TestWiki(t)
	path := testutil.WriteFile(t, cfg, "x/y.md", "")
	h := headless.New()
	ws := New(cfg, h, store, nil)

	if _, err := h.Open(path); err != nil {
		t.Fatal(err)
	}
	n, err := ws.CurrentNote(ctx)
	if err != nil {
		t.Fatalf("CurrentNote: %v", err)
	}
	if p, ok := n.(note.Physical); !ok || !p.Equal(note.NewPhysical([]string{"x"}, "y")) {
		t.Errorf("current = %+v", n)
	}

	buf := h.OpenScratch(nil)
	n, err = ws.CurrentNote(ctx)
	if err != nil {
		t.Fatalf("CurrentNote: %v", err)
	}
	if n != (note.Scratch{Buffer: buf}) {
		t.Errorf("current = %+v, want scratch %d", n, buf)
	}
}

func TestNotes(t *testing.T) {
	cfg, store := testutil.TestWiki(t)
	testutil.WriteFile(t, cfg, "b.md", "")
	testutil.WriteFile(t, cfg, "a/c.md", "")
	testutil.WriteFile(t, cfg, "a.md", "")
	testutil.WriteFile(t, cfg, "skip.txt", "")

	notes, err := New(cfg, headless.New(), store, nil).Notes(context.Background())
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	var got []string
	for _, n := range notes {
		got = append(got, n.RelPath())
	}
	want := []string{note.NewPhysical([]string{"a"}, "c").RelPath(), "a.md", "b.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	cfg, store := testutil.TestWiki(t)
	testutil.WriteFile(t, cfg, "full.md", "---\ntitle: Full\ntags: t1 t2::x\ndate: 2024-05-06\n---\n[link](other.md)\n")
	testutil.WriteFile(t, cfg, "bare.md", "just text with [a](b.md)\n")
	testutil.WriteFile(t, cfg, "partial.md", "---\ntitle: Partial\ntags: 3\n---\n")
	ws := New(cfg, headless.New(), store, nil)

	md := ws.Metadata(ctx, note.NewPhysical(nil, "full"))
	if md.Title != "Full" || len(md.Tags) != 2 || len(md.Links) != 1 {
		t.Errorf("full = %+v", md)
	}
	if !md.HasTimestamp() || !md.Timestamp.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", md.Timestamp)
	}

	md = ws.Metadata(ctx, note.NewPhysical(nil, "bare"))
	if md.Title != "" || md.Tags != nil || md.HasTimestamp() || len(md.Links) != 1 {
		t.Errorf("bare = %+v", md)
	}
	if got := md.DisplayTitle(note.NewPhysical(nil, "bare")); got != "bare" {
		t.Errorf("display title = %q, want id", got)
	}

	md = ws.Metadata(ctx, note.NewPhysical(nil, "partial"))
	if md.Title != "Partial" || md.Tags != nil {
		t.Errorf("partial = %+v", md)
	}

	md = ws.Metadata(ctx, note.NewPhysical(nil, "missing"))
	if md.Title != "" || md.Links != nil {
		t.Errorf("missing = %+v", md)
	}
}
