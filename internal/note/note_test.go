package note

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func testConfig(home string) Config {
	return Config{
		HomePath:              home,
		NoteIDTimestampFormat: DefaultNoteIDTimestampFormat,
		DateFormat:            DefaultDateFormat,
		TimeFormat:            DefaultTimeFormat,
	}
}

func TestParseFromFilepath_Absolute(t *testing.T) {
	cfg := testConfig("/wiki")
	n, err := ParseFromFilepath(cfg, "/wiki/dir1/dir2/note.md")
	if err != nil {
		t.Fatalf("ParseFromFilepath: %v", err)
	}
	if !slices.Equal(n.Directories, []string{"dir1", "dir2"}) {
		t.Errorf("directories = %v, want [dir1 dir2]", n.Directories)
	}
	if n.ID != "note" {
		t.Errorf("id = %q, want %q", n.ID, "note")
	}
}

func TestParseFromFilepath_RelativeMatchesAbsolute(t *testing.T) {
	cfg := testConfig("/wiki")
	abs, err := ParseFromFilepath(cfg, "/wiki/dir1/dir2/note.md")
	if err != nil {
		t.Fatalf("absolute: %v", err)
	}
	rel, err := ParseFromFilepath(cfg, "dir1/dir2/note.md")
	if err != nil {
		t.Fatalf("relative: %v", err)
	}
	if !abs.Equal(rel) {
		t.Errorf("relative = %+v, absolute = %+v", rel, abs)
	}
}

func TestParseFromFilepath_RootLevel(t *testing.T) {
	n, err := ParseFromFilepath(testConfig("/wiki"), "/wiki/index.md")
	if err != nil {
		t.Fatalf("ParseFromFilepath: %v", err)
	}
	if len(n.Directories) != 0 || n.ID != "index" {
		t.Errorf("note = %+v", n)
	}
}

func TestParseFromFilepath_Outside(t *testing.T) {
	cfg := testConfig("/wiki")
	for _, p := range []string{"/elsewhere/note.md", "/wiki/../elsewhere/note.md", "../note.md"} {
		_, err := ParseFromFilepath(cfg, p)
		if !errors.Is(err, ErrFileNotWithinWikiDir) {
			t.Errorf("%s: err = %v, want ErrFileNotWithinWikiDir", p, err)
		}
	}
}

func TestParseFromFilepath_HomeItself(t *testing.T) {
	_, err := ParseFromFilepath(testConfig("/wiki"), "/wiki")
	if !errors.Is(err, ErrNoFileStem) {
		t.Errorf("err = %v, want ErrNoFileStem", err)
	}
}

func TestParseFromFilepath_Symlink(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "wiki")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(real, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(real, "sub", "a.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := ParseFromFilepath(testConfig(link), filepath.Join(real, "sub", "a.md"))
	if err != nil {
		t.Fatalf("ParseFromFilepath: %v", err)
	}
	if !n.Equal(NewPhysical([]string{"sub"}, "a")) {
		t.Errorf("note = %+v", n)
	}
}

func TestPhysicalPath(t *testing.T) {
	cfg := testConfig("/wiki")
	n := NewPhysical([]string{"a", "b"}, "c")
	if got := n.Path(cfg); got != filepath.FromSlash("/wiki/a/b/c.md") {
		t.Errorf("path = %q", got)
	}
	if _, ok := Path(cfg, Scratch{Buffer: 3}); ok {
		t.Error("scratch note should have no path")
	}
}

func TestCompare(t *testing.T) {
	notes := []Physical{
		NewPhysical([]string{"b"}, "a"),
		NewPhysical(nil, "z"),
		NewPhysical([]string{"a"}, "b"),
		NewPhysical([]string{"a"}, "a"),
	}
	slices.SortFunc(notes, Compare)
	var got []string
	for _, n := range notes {
		got = append(got, n.RelPath())
	}
	want := []string{"z.md", filepath.FromSlash("a/a.md"), filepath.FromSlash("a/b.md"), filepath.FromSlash("b/a.md")}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestTagOrdering(t *testing.T) {
	ab, ac, b := ParseTag("a::b"), ParseTag("a::c"), ParseTag("b")
	if ab.Compare(ac) >= 0 {
		t.Errorf("a::b should sort before a::c")
	}
	if ac.Compare(b) >= 0 {
		t.Errorf("a::c should sort before b")
	}
	if !ParseTag("x::y").Equal(Tag{"x", "y"}) {
		t.Errorf("ParseTag(x::y) = %v", ParseTag("x::y"))
	}
	if ab.String() != "a::b" {
		t.Errorf("String() = %q", ab.String())
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig("relative/wiki")
	if err := cfg.Validate(); err == nil {
		t.Error("relative home path should fail validation")
	}
	cfg = testConfig("/wiki")
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config: %v", err)
	}
	cfg.DateFormat = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty date format should fail validation")
	}
}
