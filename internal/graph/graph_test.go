package graph

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/wikiplugin/internal/host/headless"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/testutil"
	"github.com/starford/wikiplugin/internal/workspace"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a.md", "a.md", true},
		{"../dir/a.md#heading", "../dir/a.md", true},
		{"my%20note.md", "my note.md", true},
		{"#local", "", false},
		{"https://example.com/a.md", "", false},
		{"mailto:me@example.com", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Target(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Target(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func newWiki(t *testing.T) *workspace.Workspace {
	t.Helper()
	cfg, store := testutil.TestWiki(t)
	testutil.WriteFile(t, cfg, "root.md", "---\ntitle: Root\n---\n[a](a.md) [b](sub/b.md) [web](https://x.org/c.md)\n")
	testutil.WriteFile(t, cfg, "a.md", "---\ntitle: A\n---\n[back](root.md) [b again](sub/b.md#top)\n")
	testutil.WriteFile(t, cfg, "sub/b.md", "[c](c.md) [img](pic.png)\n")
	testutil.WriteFile(t, cfg, "sub/c.md", "---\ntitle: C\n---\n[root](../root.md)\n")
	testutil.WriteFile(t, cfg, "island.md", "---\ntitle: Island\n---\nnothing\n")
	return workspace.New(cfg, headless.New(), store, nil)
}

func TestBacklinks(t *testing.T) {
	ws := newWiki(t)
	lines, err := Backlinks(context.Background(), ws, note.NewPhysical([]string{"sub"}, "b"))
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	want := []string{"- [A](../a.md)", "- [Root](../root.md)"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("backlinks mismatch (-want +got):\n%s", diff)
	}

	lines, err = Backlinks(context.Background(), ws, note.NewPhysical(nil, "island"))
	if err != nil || len(lines) != 0 {
		t.Errorf("island backlinks = %v, %v", lines, err)
	}
}

func TestExplore(t *testing.T) {
	ws := newWiki(t)
	lines, err := Explore(context.Background(), ws, note.NewPhysical(nil, "root"))
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	want := []string{"- [A](a.md)", "- [b](sub/b.md)", "- [C](sub/c.md)"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("explore mismatch (-want +got):\n%s", diff)
	}
}

func TestExplore_FromNestedNote(t *testing.T) {
	ws := newWiki(t)
	got := Reachable(context.Background(), ws, note.NewPhysical([]string{"sub"}, "c"))
	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]string{"a", "root", "b"}, ids); diff != "" {
		t.Errorf("reachable mismatch (-want +got):\n%s", diff)
	}
}
