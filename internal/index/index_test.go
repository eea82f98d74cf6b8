package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/storyloom/internal/parser"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "storyloom-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const tavernStory = `{
  "characters": [{"id": "alice", "name": "Alice"}, {"id": "bob", "name": "Bob"}],
  "nodes": {
    "n1": {"text": "Hi {bob}", "choices": [
      {"text": "Wave", "next": "n2", "function_name": null, "id": "c1"},
      {"text": "Leave", "next": "", "function_name": null, "id": "c2"}
    ], "isEnding": false, "function_name": null, "speaker": "alice", "is_me": false},
    "n2": {"text": "Bye", "choices": [], "isEnding": true, "function_name": null, "speaker": null, "is_me": true, "next": "ghost"}
  }
}`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"stories", "lines", "speakers"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := StoryRow{Path: "hello.json", Title: "hello", Checksum: "abc123", UpdatedAt: time.Now()}
	lines := []Line{{NodeID: "n1", Kind: KindNode, Text: "hello there"}}
	if err := db.UpsertStory(row, lines, []string{"alice"}); err != nil {
		t.Fatalf("UpsertStory: %v", err)
	}
	cs, err := db.GetChecksum("hello.json")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetStory_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetStory("missing.json"); err == nil {
		t.Fatal("expected error for missing story")
	}
}

func TestIndexFile_Analysis(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "act1/tavern.json", []byte(tavernStory)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	row, err := db.GetStory("act1/tavern.json")
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	if row.Title != "tavern" {
		t.Errorf("title = %q, want tavern", row.Title)
	}
	if row.Nodes != 2 || row.Choices != 2 || row.Endings != 1 || row.Characters != 2 {
		t.Errorf("counts = %+v", row)
	}
	// "Leave" has no target and n2 points at a missing node.
	if row.Unresolved != 2 {
		t.Errorf("unresolved = %d, want 2", row.Unresolved)
	}
}

func TestStoriesBySpeaker(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "tavern.json", []byte(tavernStory)); err != nil {
		t.Fatal(err)
	}

	paths, err := db.StoriesBySpeaker("alice")
	if err != nil {
		t.Fatalf("StoriesBySpeaker: %v", err)
	}
	if len(paths) != 1 || paths[0] != "tavern.json" {
		t.Errorf("alice paths = %v", paths)
	}

	// bob only appears as a placeholder.
	paths, _ = db.StoriesBySpeaker("bob")
	if len(paths) != 1 {
		t.Errorf("bob paths = %v, want placeholder reference", paths)
	}

	paths, _ = db.StoriesBySpeaker("carol")
	if len(paths) != 0 {
		t.Errorf("carol paths = %v, want none", paths)
	}
}

func TestIndexFile_Legacy(t *testing.T) {
	db := testDB(t)
	legacy := `{"start": {"text": "Hello", "choices": [], "isEnding": true}}`
	if err := IndexFile(db, "old.json", []byte(legacy)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	row, err := db.GetStory("old.json")
	if err != nil {
		t.Fatal(err)
	}
	if row.Nodes != 1 || row.Characters != 0 {
		t.Errorf("row = %+v", row)
	}
}

func TestIndexFile_InvalidDocument(t *testing.T) {
	db := testDB(t)
	err := IndexFile(db, "bad.json", []byte(`{"characters": []}`))
	if err == nil {
		t.Fatal("expected parse error")
	}
	var perr *parser.ImportParseError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want ImportParseError", err)
	}
}

func TestDeleteStory(t *testing.T) {
	db := testDB(t)
	_ = IndexFile(db, "del.json", []byte(tavernStory))

	if err := db.DeleteStory("del.json"); err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}
	cs, _ := db.GetChecksum("del.json")
	if cs != "" {
		t.Errorf("deleted story still has checksum %q", cs)
	}
	paths, _ := db.StoriesBySpeaker("alice")
	if len(paths) != 0 {
		t.Errorf("expected no speakers after delete, got %v", paths)
	}
	results, _ := db.Search("Wave", 10)
	if len(results) != 0 {
		t.Errorf("expected no lines after delete, got %v", results)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertStory(StoryRow{Path: "up.json", Title: "Old", Checksum: "1", UpdatedAt: now},
		[]Line{{NodeID: "a", Kind: KindNode, Text: "old line"}}, []string{"x"})
	_ = db.UpsertStory(StoryRow{Path: "up.json", Title: "New", Checksum: "2", UpdatedAt: now},
		[]Line{{NodeID: "a", Kind: KindNode, Text: "new line"}}, []string{"y"})

	cs, _ := db.GetChecksum("up.json")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if paths, _ := db.StoriesBySpeaker("x"); len(paths) != 0 {
		t.Error("old speaker should be removed on upsert")
	}
	if paths, _ := db.StoriesBySpeaker("y"); len(paths) != 1 {
		t.Error("new speaker should exist")
	}
}

func TestListStories(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	for i, p := range []string{"c.json", "a.json", "b.json"} {
		_ = db.UpsertStory(StoryRow{Path: p, Title: p, Checksum: "x", Nodes: i, UpdatedAt: now}, nil, nil)
	}

	rows, total, err := db.ListStories(2, 0, "path")
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].Path != "a.json" || rows[1].Path != "b.json" {
		t.Errorf("page = %+v", rows)
	}

	rows, _, _ = db.ListStories(10, 0, "nodes")
	if len(rows) != 3 || rows[0].Path != "b.json" {
		t.Errorf("nodes sort first = %q, want b.json", rows[0].Path)
	}
}

func TestAllPathsAndChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertStory(StoryRow{Path: "a.json", Checksum: "1"}, nil, nil)
	_ = db.UpsertStory(StoryRow{Path: "b.json", Checksum: "2"}, nil, nil)

	paths, err := db.AllPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v", paths)
	}
	sums, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if sums["b.json"] != "2" {
		t.Errorf("checksums = %v", sums)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertStory(StoryRow{Path: "s.json", Checksum: "1"},
		[]Line{
			{NodeID: "n1", Kind: KindNode, Text: "nothing here"},
			{NodeID: "n1", Kind: KindChoice, Index: 1, Text: "uniqueword appears"},
		}, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("search results = %+v, want 1 hit", results)
	}
	r := results[0]
	if r.Path != "s.json" || r.NodeID != "n1" || r.Kind != KindChoice || r.Index != 1 {
		t.Errorf("hit = %+v", r)
	}
}
