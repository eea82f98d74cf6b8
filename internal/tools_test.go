package internal

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/parser"
	"github.com/starford/storyloom/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslate(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteStory(t, dir, "a.json", testutil.SampleStory)
	testutil.WriteStory(t, dir, "b.json", `{"nodes": {"greet": {"text": "Hi again", "choices": []}}}`)
	testutil.WriteStory(t, dir, "broken.json", `{`)

	files := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "broken.json"),
		filepath.Join(dir, "missing.json"),
		filepath.Join(dir, "b.json"),
	}
	var out bytes.Buffer
	report, err := Translate(files, &out, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if report.Processed != 2 {
		t.Errorf("processed = %d, want 2", report.Processed)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("skipped = %+v", report.Skipped)
	}
	if !strings.HasSuffix(report.Skipped[0].Name, "missing.json") {
		t.Errorf("first skipped = %q, want the unreadable file", report.Skipped[0].Name)
	}

	got := out.String()
	for _, want := range []string{`"greet": "Hi again"`, `"greet_choice_0": "Goodbye"`, `"end": "Farewell."`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %s:\n%s", want, got)
		}
	}
}

func TestExportCharacters(t *testing.T) {
	data, err := ExportCharacters([]byte(testutil.SampleStory))
	if err != nil {
		t.Fatal(err)
	}
	file, err := parser.ParseCharacterFile(data)
	if err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if len(file.Characters) != 1 || file.Characters[0].ID != "alice" || file.Characters[0].Name != "Alice" {
		t.Errorf("characters = %+v", file.Characters)
	}

	_, err = ExportCharacters([]byte("[]"))
	if !errors.Is(err, models.ErrImportParse) {
		t.Errorf("err = %v, want ErrImportParse", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(t.Context()); err == nil {
		t.Error("Run without config should fail")
	}
	if err := RunMCP(t.Context(), WithLogOutput(os.Stderr)); err == nil {
		t.Error("RunMCP without config should fail")
	}
}
