package index

import (
	"log/slog"

	"github.com/starford/storyloom/internal/checksum"
	"github.com/starford/storyloom/internal/parser"
	"github.com/starford/storyloom/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed story files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteStory(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses a story document and upserts it into the index.
// Both canonical and legacy documents are accepted.
func IndexFile(db StoryIndex, path string, data []byte) error {
	doc, err := parser.Parse(data)
	if err != nil {
		return err
	}
	a := Analyze(path, doc)
	a.Row.Checksum = checksum.Sum(data)
	return db.UpsertStory(a.Row, a.Lines, a.Speakers)
}
