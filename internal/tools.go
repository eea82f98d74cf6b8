package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/storyloom/internal/character"
	"github.com/starford/storyloom/internal/parser"
	"github.com/starford/storyloom/internal/translate"
)

// Translate extracts one translation table from story files and writes it
// to out as indented JSON. Unreadable or invalid files are logged and
// skipped; the returned report lists them.
func Translate(files []string, out io.Writer, logger *slog.Logger) (*translate.Report, error) {
	sources := make([]translate.Source, 0, len(files))
	var unreadable []translate.Skipped
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			unreadable = append(unreadable, translate.Skipped{Name: f, Error: err.Error()})
			continue
		}
		sources = append(sources, translate.Source{Name: f, Data: data})
	}

	report := translate.Batch(sources, parser.Parse)
	report.Skipped = append(unreadable, report.Skipped...)
	for _, s := range report.Skipped {
		logger.Warn("translate: skipped file", slog.String("file", s.Name), slog.String("error", s.Error))
	}

	data, err := translate.Encode(report.Table)
	if err != nil {
		return report, err
	}
	if _, err := out.Write(data); err != nil {
		return report, fmt.Errorf("translate: write: %w", err)
	}
	logger.Info("translate: done",
		slog.Int("processed", report.Processed),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("keys", report.Table.Len()))
	return report, nil
}

// ExportCharacters returns the characters file of a story document.
func ExportCharacters(story []byte) ([]byte, error) {
	doc, err := parser.Parse(story)
	if err != nil {
		return nil, err
	}
	return character.NewRegistry(doc.Characters).MarshalFile()
}
