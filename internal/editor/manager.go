package editor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/storyloom/internal/models"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("editor: session not found")
	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("editor: too many open sessions")
)

// Summary is a lightweight description of an open session.
type Summary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	Nodes     int       `json:"nodes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type slot struct {
	mu sync.Mutex
	s  *Session
}

// Manager owns the open sessions. Each session is used by one caller at a
// time through Do.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*slot
	max      int
}

// NewManager returns a manager allowing at most limit open sessions.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = 64
	}
	return &Manager{sessions: make(map[string]*slot), max: limit}
}

// Open creates a session. When doc is non-nil the session starts from it;
// source records where doc came from.
func (m *Manager) Open(source string, doc *models.Document) (State, error) {
	s := NewSession(uuid.NewString())
	s.Source = source
	if doc != nil {
		if err := s.Load(doc); err != nil {
			return State{}, err
		}
		// A freshly opened story starts at its first node.
		if first := doc.FirstNodeID(); first != "" {
			_ = s.SetStartNode(first)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.max {
		return State{}, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.max)
	}
	m.sessions[s.ID] = &slot{s: s}
	return s.State(), nil
}

// Do runs fn with exclusive access to the session id.
func (m *Manager) Do(id string, fn func(*Session) error) error {
	m.mu.Lock()
	sl, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.s)
}

// Close discards a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// List returns summaries of all open sessions, oldest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	slots := make([]*slot, 0, len(m.sessions))
	for _, sl := range m.sessions {
		slots = append(slots, sl)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		out = append(out, Summary{
			ID:        sl.s.ID,
			Source:    sl.s.Source,
			Nodes:     sl.s.graph.Len(),
			CreatedAt: sl.s.CreatedAt,
			UpdatedAt: sl.s.UpdatedAt,
		})
		sl.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
