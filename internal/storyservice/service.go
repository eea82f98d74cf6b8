// Package storyservice coordinates the story library (storage plus index)
// with the in-memory editing sessions.
package storyservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/starford/storyloom/internal/apperr"
	"github.com/starford/storyloom/internal/checksum"
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/index"
	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/parser"
	"github.com/starford/storyloom/internal/storage"
	"github.com/starford/storyloom/internal/translate"
)

// StoryDetail is the full representation of a library story.
type StoryDetail struct {
	Path      string           `json:"path"`
	Title     string           `json:"title"`
	Checksum  string           `json:"checksum"`
	Format    string           `json:"format"`
	Stats     Stats            `json:"stats"`
	Speakers  []string         `json:"speakers"`
	Story     *models.Document `json:"story"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Stats summarises a story's shape.
type Stats struct {
	Nodes      int `json:"nodes"`
	Choices    int `json:"choices"`
	Endings    int `json:"endings"`
	Unresolved int `json:"unresolved"`
	Characters int `json:"characters"`
}

// StoryListItem is a lightweight item in a list response.
type StoryListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Stats     Stats     `json:"stats"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionNotifier is told about editing session changes.
type SessionNotifier interface {
	PublishSessionEvent(id string, closed bool)
}

// Service coordinates storage, index and editing sessions.
type Service struct {
	store    storage.Provider
	db       index.StoryIndex
	sessions *editor.Manager
	notifier SessionNotifier
}

// NewService creates a new story service.
func NewService(store storage.Provider, db index.StoryIndex, sessions *editor.Manager) *Service {
	if sessions == nil {
		sessions = editor.NewManager(0)
	}
	return &Service{store: store, db: db, sessions: sessions}
}

// SetSessionNotifier installs n to receive session change notifications.
func (s *Service) SetSessionNotifier(n SessionNotifier) {
	s.notifier = n
}

// GetStory reads a story from the library and parses it.
func (s *Service) GetStory(_ context.Context, p string) (*StoryDetail, error) {
	data, err := s.read(p)
	if err != nil {
		return nil, err
	}
	return buildDetail(p, data)
}

// CreateStory validates and writes a new story, then indexes it.
func (s *Service) CreateStory(_ context.Context, p string, content []byte) (*StoryDetail, error) {
	if err := checkStoryPath(p); err != nil {
		return nil, err
	}
	detail, err := buildDetail(p, content)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(p); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.write(p, content); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateStory replaces a story's content. A non-empty ifMatch must equal the
// checksum of the stored content.
func (s *Service) UpdateStory(_ context.Context, p string, content []byte, ifMatch string) (*StoryDetail, error) {
	existing, err := s.read(p)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Matches(ifMatch, existing) {
		return nil, apperr.ErrConflict
	}
	detail, err := buildDetail(p, content)
	if err != nil {
		return nil, err
	}
	if err := s.write(p, content); err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteStory removes a story from storage and index.
func (s *Service) DeleteStory(_ context.Context, p string) error {
	if err := s.store.Delete(p); err != nil {
		return mapStorageErr(err)
	}
	return s.db.DeleteStory(p)
}

// MoveStory renames a story inside the library and re-indexes it under
// the new path.
func (s *Service) MoveStory(_ context.Context, from, to string) (*StoryDetail, error) {
	if err := checkStoryPath(to); err != nil {
		return nil, err
	}
	data, err := s.read(from)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(to); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	detail, err := buildDetail(to, data)
	if err != nil {
		return nil, err
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, mapStorageErr(err)
	}
	if err := s.db.DeleteStory(from); err != nil {
		return nil, err
	}
	if err := s.IndexFile(to, data); err != nil {
		return nil, err
	}
	return detail, nil
}

// ListStories returns a page of indexed stories.
func (s *Service) ListStories(_ context.Context, limit, offset int, sort string) ([]StoryListItem, int, error) {
	rows, total, err := s.db.ListStories(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]StoryListItem, len(rows))
	for i, r := range rows {
		items[i] = StoryListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Stats:     statsFromRow(r),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text dialogue search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// StoriesBySpeaker returns the stories that reference a character id.
func (s *Service) StoriesBySpeaker(_ context.Context, characterID string) ([]string, error) {
	paths, err := s.db.StoriesBySpeaker(characterID)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(paths), nil
}

// Translations extracts one translation table from the given library
// stories. Unreadable or invalid stories are reported as skipped.
func (s *Service) Translations(_ context.Context, paths []string) *translate.Report {
	sources := make([]translate.Source, 0, len(paths))
	var missing []translate.Skipped
	for _, p := range paths {
		data, err := s.store.Read(p)
		if err != nil {
			missing = append(missing, translate.Skipped{Name: p, Error: mapStorageErr(err).Error()})
			continue
		}
		sources = append(sources, translate.Source{Name: p, Data: data})
	}
	report := translate.Batch(sources, parser.Parse)
	report.Skipped = append(missing, report.Skipped...)
	return report
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	return index.IndexFile(s.db, p, data)
}

func (s *Service) read(p string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return data, nil
}

func (s *Service) write(p string, content []byte) error {
	if err := s.store.Write(p, content); err != nil {
		return mapStorageErr(err)
	}
	return s.IndexFile(p, content)
}

func checkStoryPath(p string) error {
	if p == "" || !storage.IsStoryFile(path.Base(p)) {
		return fmt.Errorf("%w: story path must end in %s", apperr.ErrInvalid, storage.StoryExt)
	}
	return nil
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return apperr.ErrNotFound
	case errors.Is(err, storage.ErrUnsafePath):
		return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return err
}

// buildDetail parses data into a StoryDetail without touching the library.
func buildDetail(p string, data []byte) (*StoryDetail, error) {
	doc, shape, err := parser.ParseShape(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	a := index.Analyze(p, doc)
	return &StoryDetail{
		Path:      p,
		Title:     a.Row.Title,
		Checksum:  checksum.Sum(data),
		Format:    shape.String(),
		Stats:     statsFromRow(a.Row),
		Speakers:  nonNilSlice(a.Speakers),
		Story:     doc,
		UpdatedAt: time.Now(),
	}, nil
}

func statsFromRow(r index.StoryRow) Stats {
	return Stats{
		Nodes:      r.Nodes,
		Choices:    r.Choices,
		Endings:    r.Endings,
		Unresolved: r.Unresolved,
		Characters: r.Characters,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
