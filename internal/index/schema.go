// Package index provides SQLite-backed story indexing with optional FTS5
// full-text search over dialogue lines.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS stories (
	path             TEXT PRIMARY KEY,
	title            TEXT NOT NULL DEFAULT '',
	checksum         TEXT NOT NULL DEFAULT '',
	node_count       INTEGER NOT NULL DEFAULT 0,
	choice_count     INTEGER NOT NULL DEFAULT 0,
	ending_count     INTEGER NOT NULL DEFAULT 0,
	unresolved_count INTEGER NOT NULL DEFAULT 0,
	character_count  INTEGER NOT NULL DEFAULT 0,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lines (
	path    TEXT NOT NULL,
	node_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	idx     INTEGER NOT NULL DEFAULT 0,
	speaker TEXT NOT NULL DEFAULT '',
	text    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS speakers (
	path         TEXT NOT NULL,
	character_id TEXT NOT NULL,
	UNIQUE(path, character_id)
);

CREATE INDEX IF NOT EXISTS idx_lines_path ON lines(path);
CREATE INDEX IF NOT EXISTS idx_speakers_character ON speakers(character_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
