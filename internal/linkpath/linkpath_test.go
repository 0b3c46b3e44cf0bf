package linkpath

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/wikiplugin/internal/note"
)

func testConfig() note.Config {
	return note.Config{
		HomePath:              "/path/to/wiki",
		NoteIDTimestampFormat: note.DefaultNoteIDTimestampFormat,
		DateFormat:            note.DefaultDateFormat,
		TimeFormat:            note.DefaultTimeFormat,
	}
}

func TestFormat(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name    string
		current note.Physical
		target  string
		want    string
	}{
		{"same directory", note.NewPhysical(nil, "start"), "/path/to/wiki/end.md", "end.md"},
		{"same nested directory", note.NewPhysical([]string{"dir"}, "start"), "/path/to/wiki/dir/end.md", "end.md"},
		{"deeper", note.NewPhysical([]string{"dir"}, "start"), "/path/to/wiki/dir/dir2/end.md", "dir2/end.md"},
		{"shallower", note.NewPhysical([]string{"dir"}, "start"), "/path/to/wiki/end.md", "../end.md"},
		{"sibling directory", note.NewPhysical([]string{"a", "b"}, "start"), "/path/to/wiki/a/c/end.md", "../c/end.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(cfg, tt.current, filepath.FromSlash(tt.target))
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Errorf("link = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_RelativeTarget(t *testing.T) {
	cfg := testConfig()
	for _, current := range []note.Note{note.NewPhysical(nil, "start"), note.Scratch{Buffer: 1}} {
		_, err := Format(cfg, current, "end.md")
		if !errors.Is(err, ErrTargetNotAbsolute) {
			t.Errorf("%T: err = %v, want ErrTargetNotAbsolute", current, err)
		}
	}
}

func TestFormat_Scratch(t *testing.T) {
	target := filepath.FromSlash("/path/to/wiki/dir/end.md")
	got, err := Format(testConfig(), note.Scratch{Buffer: 2}, target)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != target {
		t.Errorf("link = %q, want %q", got, target)
	}
}

func TestResolve_Scratch(t *testing.T) {
	cfg := testConfig()
	got, err := Resolve(cfg, note.Scratch{Buffer: 1}, "dir/end.md")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.FromSlash("/path/to/wiki/dir/end.md"); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}

	abs := filepath.FromSlash("/elsewhere/end.md")
	got, err = Resolve(cfg, note.Scratch{Buffer: 1}, abs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != abs {
		t.Errorf("path = %q, want %q", got, abs)
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := testConfig()
	notes := []note.Physical{
		note.NewPhysical(nil, "root"),
		note.NewPhysical([]string{"a"}, "one"),
		note.NewPhysical([]string{"a", "b"}, "two"),
		note.NewPhysical([]string{"c"}, "three"),
		note.NewPhysical([]string{"c", "d", "e"}, "four"),
	}
	for _, from := range notes {
		for _, to := range notes {
			link, err := Format(cfg, from, to.Path(cfg))
			if err != nil {
				t.Fatalf("Format(%s, %s): %v", from.RelPath(), to.RelPath(), err)
			}
			got, err := Resolve(cfg, from, link)
			if err != nil {
				t.Fatalf("Resolve(%s, %q): %v", from.RelPath(), link, err)
			}
			if got != to.Path(cfg) {
				t.Errorf("%s -> %s via %q resolved to %q", from.RelPath(), to.RelPath(), link, got)
			}
		}
	}
}
