package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/wikiplugin/internal/storage"
)

// watchEnv is a wiki home with an index. start runs a watcher over it.
type watchEnv struct {
	home  string
	store storage.Provider
	db    *DB

	mu     sync.Mutex
	events []string
}

func newWatchEnv(t *testing.T) *watchEnv {
	t.Helper()
	home, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(home)
	if err != nil {
		t.Fatal(err)
	}
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return &watchEnv{home: home, store: store, db: db}
}

func (e *watchEnv) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// start runs Watch until the test ends and returns once the watcher has
// indexed a note written after it started.
func (e *watchEnv) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})
	go func() {
		defer close(done)
		Watch(ctx, e.db, e.store, testConfig(e.home), e.logger(), e.record)
	}()
	e.writeUntilTitled(t, "started.md", "Started")
}

func (e *watchEnv) record(kind, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, kind+":"+path)
}

func (e *watchEnv) saw(event string) bool {
	return slices.Contains(e.recorded(), event)
}

func (e *watchEnv) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.events)
}

func (e *watchEnv) title(rel string) string {
	n, err := e.db.GetNote(rel)
	if err != nil {
		return ""
	}
	return n.Title
}

// writeUntilTitled rewrites rel until the index holds its title. Writes that
// land before a directory is watched are repeated rather than lost.
func (e *watchEnv) writeUntilTitled(t *testing.T, rel, title string) {
	t.Helper()
	path := filepath.Join(e.home, rel)
	content := []byte("---\ntitle: " + title + "\n---\nbody of " + rel + "\n")
	eventually(t, func() bool {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
		return e.title(rel) == title
	}, "%s not indexed with title %q", rel, title)
}

// eventually polls cond until it holds or five seconds pass.
func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf(format, args...)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	env := newWatchEnv(t)
	env.start(t)

	if err := os.WriteFile(filepath.Join(env.home, "new.md"), []byte("---\ntitle: New\ntags: [wiki::go]\n---\nfresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return env.title("new.md") == "New" }, "new.md title not indexed")
	eventually(t, func() bool { return env.saw("created:new.md") }, "no created:new.md event")

	notes, err := env.db.NotesWithTag("wiki")
	if err != nil {
		t.Fatalf("NotesWithTag: %v", err)
	}
	if len(notes) != 1 || notes[0].Path != "new.md" {
		t.Errorf("NotesWithTag(wiki) = %+v, want new.md", notes)
	}
}

func TestWatcher_UpdateReindexesTitle(t *testing.T) {
	env := newWatchEnv(t)
	env.start(t)

	env.writeUntilTitled(t, "n.md", "First")
	env.writeUntilTitled(t, "n.md", "Second")
	eventually(t, func() bool { return env.saw("updated:n.md") }, "no updated:n.md event")
}

func TestWatcher_HiddenDirIgnored(t *testing.T) {
	env := newWatchEnv(t)
	hidden := filepath.Join(env.home, ".wikiplugin")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	env.start(t)

	if err := os.WriteFile(filepath.Join(hidden, "x.md"), []byte("---\ntitle: X\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.writeUntilTitled(t, "marker.md", "Marker")
	if got := env.title(filepath.Join(".wikiplugin", "x.md")); got != "" {
		t.Errorf("note in hidden dir indexed with title %q", got)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	env := newWatchEnv(t)
	env.start(t)

	if err := os.MkdirAll(filepath.Join(env.home, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	env.writeUntilTitled(t, filepath.Join("subdir", "deep.md"), "Deep")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	env := newWatchEnv(t)
	if err := os.WriteFile(filepath.Join(env.home, "del.md"), []byte("---\ntitle: Doomed\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Sync(env.db, env.store, testConfig(env.home), env.logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := env.title("del.md"); got != "Doomed" {
		t.Fatalf("title after Sync = %q, want Doomed", got)
	}
	env.start(t)

	if err := os.Remove(filepath.Join(env.home, "del.md")); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, err := env.db.GetNote("del.md")
		return err != nil
	}, "deleted note still in index")
	eventually(t, func() bool { return env.saw("deleted:del.md") }, "no deleted:del.md event")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	env := newWatchEnv(t)
	if err := os.WriteFile(filepath.Join(env.home, "old.md"), []byte("---\ntitle: Moved\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Sync(env.db, env.store, testConfig(env.home), env.logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	env.start(t)

	if err := os.Rename(filepath.Join(env.home, "old.md"), filepath.Join(env.home, "renamed.md")); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		return env.title("old.md") == "" && env.title("renamed.md") == "Moved"
	}, "rename not reconciled: old path should be gone and new path titled Moved")
}
