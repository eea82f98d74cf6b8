// Package editor holds editing sessions: one story graph, its character
// registry, a clipboard and an optional playback preview. Presentation
// layers drive a session through its operations or through Apply; the
// session never calls back into them.
package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/starford/storyloom/internal/character"
	"github.com/starford/storyloom/internal/codec"
	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/parser"
	"github.com/starford/storyloom/internal/playback"
)

var (
	// ErrEmptyClipboard is returned by Paste before anything was copied.
	ErrEmptyClipboard = errors.New("editor: clipboard is empty")
	// ErrNoPlayback is returned by playback operations before Preview.
	ErrNoPlayback = errors.New("editor: no playback in progress")
)

// Session is one editing session. It is not safe for concurrent use; the
// Manager serialises access.
type Session struct {
	ID        string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time

	graph     *graph.Graph
	chars     *character.Registry
	clipboard *graph.Snapshot
	player    *playback.Player
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		graph:     graph.New(),
		chars:     character.NewRegistry(nil),
	}
}

// State is a read-only view of the session's graph.
type State struct {
	ID           string             `json:"id"`
	Source       string             `json:"source,omitempty"`
	StartNodeID  string             `json:"start_node_id,omitempty"`
	Nodes        []graph.Node       `json:"nodes"`
	Edges        []graph.Edge       `json:"edges"`
	Characters   []models.Character `json:"characters"`
	HasClipboard bool               `json:"has_clipboard"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	return State{
		ID:           s.ID,
		Source:       s.Source,
		StartNodeID:  s.graph.StartNode(),
		Nodes:        s.graph.Nodes(),
		Edges:        s.graph.Edges(),
		Characters:   s.chars.All(),
		HasClipboard: s.clipboard != nil,
		UpdatedAt:    s.UpdatedAt,
	}
}

// AddNode creates a node and returns its id.
func (s *Session) AddNode(fields *graph.NodeFields, pos models.Position) string {
	defer s.touch()
	return s.graph.AddNode(fields, pos)
}

// UpdateNode replaces a node's editable fields.
func (s *Session) UpdateNode(id string, fields graph.NodeFields) error {
	return s.mutate(s.graph.UpdateNode(id, fields))
}

// MoveNode sets a node's canvas position.
func (s *Session) MoveNode(id string, pos models.Position) error {
	return s.mutate(s.graph.MoveNode(id, pos))
}

// DeleteNode removes a node with its edges.
func (s *Session) DeleteNode(id string) error {
	return s.mutate(s.graph.DeleteNode(id))
}

// Connect binds a source slot to a target node. slot is "default",
// "choice-<n>" or empty.
func (s *Session) Connect(source, target, slot string) (graph.Edge, error) {
	sl, err := graph.ParseSlot(slot)
	if err != nil {
		return graph.Edge{}, err
	}
	e, err := s.graph.Connect(source, target, sl)
	if err != nil {
		return graph.Edge{}, err
	}
	s.touch()
	return e, nil
}

// Disconnect removes edges by id.
func (s *Session) Disconnect(ids ...string) int {
	n := s.graph.DisconnectEdges(ids...)
	if n > 0 {
		s.touch()
	}
	return n
}

// SetStartNode designates the entry node.
func (s *Session) SetStartNode(id string) error {
	return s.mutate(s.graph.SetStartNode(id))
}

// Copy puts a snapshot of a node on the clipboard.
func (s *Session) Copy(id string) error {
	snap, err := s.graph.CopyNode(id)
	if err != nil {
		return err
	}
	s.clipboard = &snap
	return nil
}

// Paste adds the clipboard node under a new id at pos.
func (s *Session) Paste(pos models.Position) (string, error) {
	if s.clipboard == nil {
		return "", ErrEmptyClipboard
	}
	defer s.touch()
	return s.graph.PasteNode(*s.clipboard, pos), nil
}

// Characters returns the registered characters.
func (s *Session) Characters() []models.Character {
	return s.chars.All()
}

// AddCharacter registers a character.
func (s *Session) AddCharacter(id, name string) (models.Character, error) {
	c, err := s.chars.Add(id, name)
	if err != nil {
		return models.Character{}, err
	}
	s.touch()
	return c, nil
}

// RenameCharacter changes a character's display name.
func (s *Session) RenameCharacter(id, name string) error {
	return s.mutate(s.chars.Rename(id, name))
}

// RemoveCharacter unregisters a character. Nodes keep referring to its id.
func (s *Session) RemoveCharacter(id string) error {
	return s.mutate(s.chars.Remove(id))
}

// ImportCharacters replaces the registry from a characters.json payload.
func (s *Session) ImportCharacters(data []byte) error {
	f, err := parser.ParseCharacterFile(data)
	if err != nil {
		return err
	}
	s.chars.Replace(f.Characters)
	s.touch()
	return nil
}

// ExportCharacters encodes the registry as characters.json.
func (s *Session) ExportCharacters() ([]byte, error) {
	return s.chars.MarshalFile()
}

// Document projects the graph. startOverride, when set, replaces the
// designated start node for this projection only.
func (s *Session) Document(startOverride string) (*models.Document, error) {
	return codec.ToDocument(s.graph, s.startID(startOverride), s.chars.All())
}

// Export projects and encodes the graph.
func (s *Session) Export(startOverride string) ([]byte, error) {
	doc, err := s.Document(startOverride)
	if err != nil {
		return nil, err
	}
	return codec.Encode(doc)
}

// Import replaces the graph and characters with the contents of data.
// On error the session is left untouched.
func (s *Session) Import(data []byte) error {
	doc, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return s.Load(doc)
}

// Load replaces the graph and characters with doc.
func (s *Session) Load(doc *models.Document) error {
	res, err := codec.FromDocument(doc, s.graph.StartNode())
	if err != nil {
		return err
	}
	s.graph = res.Graph
	s.chars.Replace(res.Characters)
	s.player = nil
	s.touch()
	return nil
}

// Preview exports the graph and starts playback at the start node, or at
// startOverride when set.
func (s *Session) Preview(startOverride string) (playback.View, error) {
	start := s.startID(startOverride)
	doc, err := codec.ToDocument(s.graph, start, s.chars.All())
	if err != nil {
		return playback.View{}, err
	}
	s.player = playback.New(doc, start)
	return s.player.View()
}

// Choose advances playback to target.
func (s *Session) Choose(target string) (playback.View, error) {
	if s.player == nil {
		return playback.View{}, ErrNoPlayback
	}
	s.player.Choose(target)
	return s.player.View()
}

// Back steps playback back one node.
func (s *Session) Back() (playback.View, error) {
	if s.player == nil {
		return playback.View{}, ErrNoPlayback
	}
	s.player.Back()
	return s.player.View()
}

// View renders the current playback node.
func (s *Session) View() (playback.View, error) {
	if s.player == nil {
		return playback.View{}, ErrNoPlayback
	}
	return s.player.View()
}

// ClosePlayback discards the playback state.
func (s *Session) ClosePlayback() {
	s.player = nil
}

func (s *Session) startID(override string) string {
	if override != "" {
		return override
	}
	return s.graph.StartNode()
}

func (s *Session) mutate(err error) error {
	if err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// String implements fmt.Stringer for log attributes.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (%d nodes)", s.ID, s.graph.Len())
}
