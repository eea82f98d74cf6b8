package storyservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/storyloom/internal/apperr"
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/parser"
)

// OpenSession starts an editing session. An empty path opens a blank
// story; otherwise the library story at p is loaded.
func (s *Service) OpenSession(_ context.Context, p string) (editor.State, error) {
	var doc *models.Document
	if p != "" {
		data, err := s.read(p)
		if err != nil {
			return editor.State{}, err
		}
		doc, err = parser.Parse(data)
		if err != nil {
			return editor.State{}, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
		}
	}
	st, err := s.sessions.Open(p, doc)
	if err != nil {
		return editor.State{}, err
	}
	s.notify(st.ID, false)
	return st, nil
}

// ListSessions returns the open sessions.
func (s *Service) ListSessions() []editor.Summary {
	return s.sessions.List()
}

// CloseSession discards a session.
func (s *Service) CloseSession(id string) error {
	if err := s.sessions.Close(id); err != nil {
		return err
	}
	s.notify(id, true)
	return nil
}

// Inspect runs fn with exclusive, read-only intent access to a session.
func (s *Service) Inspect(id string, fn func(*editor.Session) error) error {
	return s.sessions.Do(id, fn)
}

// Edit runs fn with exclusive access to a session and announces the change
// when fn succeeds.
func (s *Service) Edit(id string, fn func(*editor.Session) error) error {
	if err := s.sessions.Do(id, fn); err != nil {
		return err
	}
	s.notify(id, false)
	return nil
}

// SaveSession exports a session into the library. p defaults to the path
// the session was opened from. An existing story is replaced subject to
// ifMatch; otherwise a new story is created.
func (s *Service) SaveSession(ctx context.Context, id, p, ifMatch string) (*StoryDetail, error) {
	var data []byte
	err := s.sessions.Do(id, func(sess *editor.Session) error {
		if p == "" {
			p = sess.Source
		}
		var err error
		data, err = sess.Export("")
		return err
	})
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, fmt.Errorf("%w: session has no target path", apperr.ErrInvalid)
	}

	detail, err := s.UpdateStory(ctx, p, data, ifMatch)
	if errors.Is(err, apperr.ErrNotFound) {
		detail, err = s.CreateStory(ctx, p, data)
	}
	if err != nil {
		return nil, err
	}

	_ = s.sessions.Do(id, func(sess *editor.Session) error {
		sess.Source = p
		return nil
	})
	s.notify(id, false)
	return detail, nil
}

func (s *Service) notify(id string, closed bool) {
	if s.notifier != nil {
		s.notifier.PublishSessionEvent(id, closed)
	}
}
