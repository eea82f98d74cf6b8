//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS lines_fts USING fts5(
			path UNINDEXED,
			node_id UNINDEXED,
			kind UNINDEXED,
			idx UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, path string, l Line) error {
	_, err := tx.Exec(`INSERT INTO lines_fts (path, node_id, kind, idx, text) VALUES (?, ?, ?, ?, ?)`,
		path, l.NodeID, l.Kind, l.Index, l.Text)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM lines_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over dialogue lines.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path, node_id, kind, idx,
		       snippet(lines_fts, 4, '<b>', '</b>', '...', 32)
		FROM lines_fts
		WHERE lines_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.NodeID, &r.Kind, &r.Index, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
