package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/wikiplugin/internal/models"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// reconcileDelay debounces the rescan that follows renames.
const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  storage.Provider
	cfg    note.Config
	logger *slog.Logger
	notify EventCallback
	fsw    *fsnotify.Watcher
}

// Watch keeps the index in step with the wiki home until ctx is cancelled.
// Directories created while watching are watched too; hidden directories
// are skipped like in note listings. A rename only reports the old name, so
// it schedules a debounced rescan that picks up the new one.
func Watch(ctx context.Context, db *DB, store storage.Provider, cfg note.Config, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{db: db, store: store, cfg: cfg, logger: logger, notify: cb, fsw: fsw}
	if err := w.addTree(store.Root()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", store.Root()))

	reconcile := time.NewTimer(reconcileDelay)
	reconcile.Stop()
	defer reconcile.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil
		case <-reconcile.C:
			w.reconcile()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				reconcile.Reset(reconcileDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) emit(kind, rel string) {
	w.logger.Debug("watcher: "+kind, slog.String("path", rel))
	if w.notify != nil {
		w.notify(kind, rel)
	}
}

// handle applies one event and reports whether a rescan is needed.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.newDir(ev.Name, info)
			return false
		}
	}
	if !strings.HasSuffix(ev.Name, ".md") {
		return false
	}
	rel, err := filepath.Rel(w.store.Root(), ev.Name)
	if err != nil {
		return false
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if err := Refresh(w.db, w.store, w.cfg, rel); err != nil {
			w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		if ev.Has(fsnotify.Create) {
			w.emit("created", rel)
		} else {
			w.emit("updated", rel)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			w.emit("deleted", rel)
		}
		return ev.Has(fsnotify.Rename)
	}
	return false
}

// newDir starts watching a directory that appeared and indexes the notes
// already inside it, as when a folder is moved in.
func (w *watcher) newDir(path string, info fs.FileInfo) {
	if hidden(info.Name()) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watcher: add dir failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		rel, err := filepath.Rel(w.store.Root(), p)
		if err != nil {
			return nil
		}
		if err := Refresh(w.db, w.store, w.cfg, rel); err == nil {
			w.emit("created", rel)
		}
		return nil
	})
}

// reconcile drops index rows whose files are gone and indexes files the
// index has not seen.
func (w *watcher) reconcile() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		return
	}
	files, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]models.NoteFile, len(files))
	for _, f := range files {
		onDisk[f.Path] = f
	}
	for p := range indexed {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := w.db.DeleteNote(p); err == nil {
			w.emit("deleted", p)
		}
	}
	for p, f := range onDisk {
		if _, ok := indexed[p]; ok {
			continue
		}
		data, err := w.store.Read(p)
		if err != nil {
			continue
		}
		if err := indexFile(w.db, w.cfg, f, data); err == nil {
			w.emit("created", p)
		}
	}
}

// addTree watches root and every non-hidden directory below it.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Refresh reads rel from the store and re-indexes it.
func Refresh(db *DB, store storage.Provider, cfg note.Config, rel string) error {
	data, err := store.Read(rel)
	if err != nil {
		return err
	}
	f := models.NoteFile{Path: rel}
	if info, err := os.Stat(filepath.Join(store.Root(), rel)); err == nil {
		f.UpdatedAt = info.ModTime()
	}
	return indexFile(db, cfg, f, data)
}
