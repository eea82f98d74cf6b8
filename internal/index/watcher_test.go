package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/storyloom/internal/storage"
)

const watchedStory = `{"characters": [], "nodes": {"a": {"text": "Hello", "choices": [], "isEnding": true, "function_name": null, "speaker": null, "is_me": false}}}`

// watcherTestEnv sets up a library dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	libDir := t.TempDir()
	store, err := storage.NewFS(libDir)
	if err != nil {
		t.Fatal(err)
	}
	return libDir, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, libDir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(libDir, "new.json"), []byte(watchedStory), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.json")
		return cs != ""
	}, "new story not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.json" {
				return true
			}
		}
		return false
	}, "expected created:new.json callback")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(libDir, "notes.txt"), []byte("not a story"), 0o644)
	_ = os.WriteFile(filepath.Join(libDir, "real.json"), []byte(watchedStory), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("real.json")
		return cs != ""
	}, "story not indexed")

	paths, _ := db.AllPaths()
	if _, ok := paths["notes.txt"]; ok {
		t.Error("non-story file should not be indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, libDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(libDir, "act2")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.json"), []byte(watchedStory), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("act2/deep.json")
		return cs != ""
	}, "story in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(libDir, "del.json"), []byte(watchedStory), 0o644)
	if err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.GetChecksum("del.json"); cs == "" {
		t.Fatal("precondition: story should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, libDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(libDir, "del.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.json")
		return cs == ""
	}, "deleted story still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(libDir, "old.json"), []byte(watchedStory), 0o644)
	_ = Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, libDir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(libDir, "old.json"), filepath.Join(libDir, "renamed.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.json")
		newCS, _ := db.GetChecksum("renamed.json")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}

func TestSync_RemovesStale(t *testing.T) {
	libDir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = db.UpsertStory(StoryRow{Path: "gone.json", Checksum: "x"}, nil, nil)
	_ = os.WriteFile(filepath.Join(libDir, "kept.json"), []byte(watchedStory), 0o644)
	_ = os.WriteFile(filepath.Join(libDir, "broken.json"), []byte("{"), 0o644)

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	paths, _ := db.AllPaths()
	if _, ok := paths["gone.json"]; ok {
		t.Error("stale entry should be removed")
	}
	if _, ok := paths["kept.json"]; !ok {
		t.Error("kept.json should be indexed")
	}
	if _, ok := paths["broken.json"]; ok {
		t.Error("unparseable story should be skipped")
	}
}
