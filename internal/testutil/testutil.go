// Package testutil provides shared test helpers for setting up libraries and
// index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/storyloom/internal/index"
	"github.com/starford/storyloom/internal/storage"
)

// SampleStory is a small canonical story: a greeting that branches into an
// ending and an unbound choice.
const SampleStory = `{
  "characters": [
    {"id": "alice", "name": "Alice"}
  ],
  "nodes": {
    "greet": {
      "text": "Hello, I am {alice}.",
      "choices": [
        {"text": "Goodbye", "next": "end", "function_name": null, "id": "c1"},
        {"text": "Stay", "next": "", "function_name": null, "id": "c2"}
      ],
      "isEnding": false,
      "position": {"x": 0, "y": 0},
      "function_name": null,
      "speaker": "alice",
      "is_me": false
    },
    "end": {
      "text": "Farewell.",
      "choices": [],
      "isEnding": true,
      "position": {"x": 300, "y": 0},
      "function_name": null,
      "speaker": null,
      "is_me": true
    }
  }
}
`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "storyloom-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary library directory with a storage.Provider.
func TestLibrary(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteStory writes content under the library directory, creating parents.
func WriteStory(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
