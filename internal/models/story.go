// Package models defines the domain types for storyloom.
package models

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Character is a named participant that dialogue can refer to by id.
type Character struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Position is the canvas location of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChoiceRecord is one resolved branch of a NodeRecord. Next is empty when
// the choice has no bound target.
type ChoiceRecord struct {
	Text         string  `json:"text"`
	Next         string  `json:"next"`
	FunctionName *string `json:"function_name"`
	ID           string  `json:"id"`
}

// NodeRecord is the persisted form of a story node. A record is either
// branching (non-empty Choices) or linear (optional Next).
type NodeRecord struct {
	Text         string         `json:"text"`
	Choices      []ChoiceRecord `json:"choices"`
	IsEnding     bool           `json:"isEnding"`
	Position     *Position      `json:"position,omitempty"`
	FunctionName *string        `json:"function_name"`
	Speaker      *string        `json:"speaker"`
	IsMe         bool           `json:"is_me"`
	Next         string         `json:"next,omitempty"`
}

// Branching reports whether the record carries at least one choice.
func (n *NodeRecord) Branching() bool {
	return len(n.Choices) > 0
}

// NodeMap keeps node records in insertion order through JSON encoding.
type NodeMap = orderedmap.OrderedMap[string, *NodeRecord]

// NewNodeMap returns an empty NodeMap.
func NewNodeMap() *NodeMap {
	return orderedmap.New[string, *NodeRecord]()
}

// Document is the canonical persisted story: characters plus node records
// keyed by node id.
type Document struct {
	Characters []Character `json:"characters"`
	Nodes      *NodeMap    `json:"nodes"`
}

// NewDocument returns a document with no characters and no nodes.
func NewDocument() *Document {
	return &Document{
		Characters: []Character{},
		Nodes:      NewNodeMap(),
	}
}

// Node returns the record stored under id.
func (d *Document) Node(id string) (*NodeRecord, bool) {
	if d == nil || d.Nodes == nil {
		return nil, false
	}
	return d.Nodes.Get(id)
}

// NodeIDs returns node ids in document order.
func (d *Document) NodeIDs() []string {
	if d == nil || d.Nodes == nil {
		return nil
	}
	ids := make([]string, 0, d.Nodes.Len())
	for pair := d.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// FirstNodeID returns the first node id in document order, or "".
func (d *Document) FirstNodeID() string {
	if d == nil || d.Nodes == nil {
		return ""
	}
	if pair := d.Nodes.Oldest(); pair != nil {
		return pair.Key
	}
	return ""
}

// CharacterFile is the standalone characters.json shape.
type CharacterFile struct {
	Characters []Character `json:"characters"`
}

// Optional returns nil for an empty string, so that the field encodes as null.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional string, treating nil as "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StoryMetadata is a lightweight description of a story file in the library.
type StoryMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
