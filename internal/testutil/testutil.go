// Package testutil provides shared test helpers for setting up wikis and
// databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/wikiplugin/internal/index"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWiki creates a temporary wiki home and returns its configuration and a
// storage.Provider rooted at it. The home path has symlinks resolved so that
// paths built from it compare equal to canonicalized ones.
func TestWiki(t *testing.T) (note.Config, *storage.FS) {
	t.Helper()
	home, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(home)
	if err != nil {
		t.Fatal(err)
	}
	cfg := note.Config{
		HomePath:              home,
		NoteIDTimestampFormat: note.DefaultNoteIDTimestampFormat,
		DateFormat:            note.DefaultDateFormat,
		TimeFormat:            note.DefaultTimeFormat,
	}
	return cfg, store
}

// WriteFile writes content to rel under the wiki home, creating directories.
func WriteFile(t *testing.T, cfg note.Config, rel, content string) string {
	t.Helper()
	path := filepath.Join(cfg.HomePath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile returns the content of rel under the wiki home.
func ReadFile(t *testing.T, cfg note.Config, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.HomePath, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
