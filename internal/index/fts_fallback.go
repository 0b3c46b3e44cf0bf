//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 the notes table is searched directly.
const dropFTSSQL = `SELECT 1`

func initFTS(*sql.DB) error { return nil }

func ftsUpsert(*sql.Tx, string, string, string, []string) error { return nil }

func ftsDelete(*sql.Tx, string) {}

// Search returns notes whose title, tags or body contain every word of
// query, most recently updated first. The snippet is the start of the body.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}
	var (
		conds []string
		args  []any
	)
	for _, w := range words {
		like := "%" + escapeLike(w) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, title, substr(body, 1, 200)
		FROM notes
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY updated_at DESC, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}
