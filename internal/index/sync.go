package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/models"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/storage"
)

// Sync walks the wiki and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, cfg note.Config, logger *slog.Logger) error {
	files, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[f.Path] == checksum(data) {
			continue
		}
		if err := indexFile(db, cfg, f, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", f.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Describe extracts the indexed metadata of a note and the body text that
// follows its frontmatter. Missing or malformed frontmatter fields are left
// empty.
func Describe(cfg note.Config, path string, data []byte) (models.IndexedNote, string, error) {
	content := string(data)
	root, err := markdown.Parse(content)
	if err != nil {
		return models.IndexedNote{}, "", err
	}

	n := models.IndexedNote{Path: path, Checksum: checksum(data), Tags: []string{}}
	body := content
	for _, c := range root.Children {
		if c.Kind == markdown.KindFrontmatter && c.Position != nil {
			body = strings.TrimLeft(content[c.Position.End:], "\r\n")
		}
	}

	fm, err := markdown.ParseFrontmatter(root)
	if err != nil {
		return n, body, nil
	}
	if title, err := markdown.GetTitle(fm); err == nil {
		n.Title = title
	}
	if tags, err := markdown.GetTags(fm); err == nil {
		for _, t := range tags {
			n.Tags = append(n.Tags, t.String())
		}
	}
	if ts, err := markdown.GetTimestamp(fm, cfg.DateFormat, cfg.TimeFormat); err == nil {
		n.Date = ts
	}
	return n, body, nil
}

// checksum identifies file content so unchanged notes are not re-parsed.
func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, cfg note.Config, f models.NoteFile, data []byte) error {
	n, body, err := Describe(cfg, f.Path, data)
	if err != nil {
		return err
	}
	n.UpdatedAt = f.UpdatedAt
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now().UTC()
	}
	return db.UpsertNote(n, body)
}
