package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/models"
)

const defaultSearchLimit = 20

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n models.IndexedNote, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.Tags == nil {
		n.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, date, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			date       = excluded.date,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), nullTime(n.Date), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const selectRow = `SELECT path, title, checksum, tags, date, updated_at FROM notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (models.IndexedNote, error) {
	var (
		r    models.IndexedNote
		tags string
		date sql.NullTime
	)
	if err := s.Scan(&r.Path, &r.Title, &r.Checksum, &tags, &date, &r.UpdatedAt); err != nil {
		return models.IndexedNote{}, err
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return models.IndexedNote{}, fmt.Errorf("index: decode tags of %s: %w", r.Path, err)
	}
	if date.Valid {
		r.Date = date.Time.UTC()
	}
	return r, nil
}

// GetNote returns the indexed row for path.
func (db *DB) GetNote(path string) (*models.IndexedNote, error) {
	r, err := scanRow(db.conn.QueryRow(selectRow+` WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &r, nil
}

// NotesWithTag returns the notes carrying tag or one of its children,
// ordered by path.
func (db *DB) NotesWithTag(tag string) ([]models.IndexedNote, error) {
	rows, err := db.conn.Query(selectRow+` WHERE EXISTS (
		SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ? OR json_each.value LIKE ? ESCAPE '\'
	) ORDER BY path`, tag, escapeLike(tag)+"::%")
	if err != nil {
		return nil, fmt.Errorf("index: notes with tag: %w", err)
	}
	defer rows.Close()

	var out []models.IndexedNote
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if slices.Contains([]byte{'%', '_', '\\'}, s[i]) {
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}

// AllChecksums returns the stored checksum of every indexed note by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
