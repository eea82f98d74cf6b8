package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/storyloom/internal/apperr"
)

// Line kinds.
const (
	KindNode   = "node"
	KindChoice = "choice"
)

// StoryRow represents a row in the stories table.
type StoryRow struct {
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	Nodes      int       `json:"nodes"`
	Choices    int       `json:"choices"`
	Endings    int       `json:"endings"`
	Unresolved int       `json:"unresolved"`
	Characters int       `json:"characters"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Line is one searchable piece of dialogue: a node's text or one choice.
type Line struct {
	NodeID  string
	Kind    string
	Index   int
	Speaker string
	Text    string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	NodeID  string `json:"node_id"`
	Kind    string `json:"kind"`
	Index   int    `json:"index"`
	Snippet string `json:"snippet"`
}

// UpsertStory replaces a story row, its lines and its speakers within a transaction.
func (db *DB) UpsertStory(s StoryRow, lines []Line, speakers []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO stories (path, title, checksum, node_count, choice_count, ending_count, unresolved_count, character_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title            = excluded.title,
			checksum         = excluded.checksum,
			node_count       = excluded.node_count,
			choice_count     = excluded.choice_count,
			ending_count     = excluded.ending_count,
			unresolved_count = excluded.unresolved_count,
			character_count  = excluded.character_count,
			updated_at       = excluded.updated_at
	`, s.Path, s.Title, s.Checksum, s.Nodes, s.Choices, s.Endings, s.Unresolved, s.Characters, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert story: %w", err)
	}

	ftsDelete(tx, s.Path)
	_, _ = tx.Exec(`DELETE FROM lines WHERE path = ?`, s.Path)
	if len(lines) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO lines (path, node_id, kind, idx, speaker, text) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare line insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range lines {
			if _, err := stmt.Exec(s.Path, l.NodeID, l.Kind, l.Index, l.Speaker, l.Text); err != nil {
				return fmt.Errorf("index: insert line: %w", err)
			}
			if err := ftsInsert(tx, s.Path, l); err != nil {
				return err
			}
		}
	}

	_, _ = tx.Exec(`DELETE FROM speakers WHERE path = ?`, s.Path)
	if len(speakers) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO speakers (path, character_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare speaker insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range speakers {
			if _, err := stmt.Exec(s.Path, id); err != nil {
				return fmt.Errorf("index: insert speaker: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteStory removes a story with its lines and speakers.
func (db *DB) DeleteStory(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM lines WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM speakers WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM stories WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a story, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM stories WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

const storyColumns = `path, title, checksum, node_count, choice_count, ending_count, unresolved_count, character_count, updated_at`

func scanStory(sc interface{ Scan(...any) error }) (StoryRow, error) {
	var r StoryRow
	err := sc.Scan(&r.Path, &r.Title, &r.Checksum, &r.Nodes, &r.Choices, &r.Endings, &r.Unresolved, &r.Characters, &r.UpdatedAt)
	return r, err
}

// GetStory returns the indexed row of a story.
func (db *DB) GetStory(path string) (*StoryRow, error) {
	r, err := scanStory(db.conn.QueryRow(`SELECT `+storyColumns+` FROM stories WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get story: %w", err)
	}
	return &r, nil
}

var sortColumns = map[string]string{
	"":           "path ASC",
	"path":       "path ASC",
	"title":      "title ASC, path ASC",
	"updated_at": "updated_at DESC, path ASC",
	"nodes":      "node_count DESC, path ASC",
}

// ListStories returns a page of stories and the total count.
func (db *DB) ListStories(limit, offset int, sort string) ([]StoryRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := sortColumns[sort]
	if !ok {
		order = sortColumns[""]
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM stories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count stories: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+storyColumns+` FROM stories ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list stories: %w", err)
	}
	defer rows.Close()

	var out []StoryRow
	for rows.Next() {
		r, err := scanStory(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// StoriesBySpeaker returns the paths of stories that reference characterID
// as a speaker or a placeholder.
func (db *DB) StoriesBySpeaker(characterID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM speakers WHERE character_id = ? ORDER BY path`, characterID)
	if err != nil {
		return nil, fmt.Errorf("index: stories by speaker: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed story path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM stories`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed story.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM stories`)
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
