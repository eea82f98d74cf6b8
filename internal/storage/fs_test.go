package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte(`{"characters":[],"nodes":{}}`)
	if err := s.Write("story.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("story.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("chapter1/scene2/intro.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("chapter1/scene2/intro.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.json", []byte("{}"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("old.json", []byte("{}"))
	if err := s.Move("old.json", "archive/new.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read("archive/new.json"); err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if _, err := s.Read("old.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListOnlyStoryFiles(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.json", []byte("{}"))
	_ = s.Write("sub/b.json", []byte("{}"))
	_ = s.Write("notes.txt", []byte("not a story"))
	_ = os.WriteFile(filepath.Join(s.root, ".hidden.json"), []byte("{}"), 0o644)

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	if items[1].Path != "sub/b.json" {
		t.Errorf("path = %q, want forward slashes", items[1].Path)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("Read(%q) error = %v, want ErrUnsafePath", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("atomic.json", []byte(`{"v":1}`))
	if err := s.Write("atomic.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != `{"v":2}` {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".storyloom-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "storyloom-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestIsStoryFile(t *testing.T) {
	cases := map[string]bool{
		"story.json":          true,
		".storyloom-tmp-123":  false,
		".hidden.json":        false,
		"characters.json.bak": false,
		"json":                false,
	}
	for name, want := range cases {
		if got := IsStoryFile(name); got != want {
			t.Errorf("IsStoryFile(%q) = %v, want %v", name, got, want)
		}
	}
}
