// Package graph is the editable story model: an id-indexed arena of nodes
// and a flat list of slot-tagged edges. Nodes never hold pointers to each
// other, so cycles need no special handling.
package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/starford/storyloom/internal/models"
)

// NextLabel is the display label of an edge leaving a linear node.
const NextLabel = "Next"

// Choice is one branching option of a node. Its index in Node.Choices is
// the slot key edges bind to.
type Choice struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	FunctionName string `json:"function_name,omitempty"`
}

// Node is a unit of dialogue.
type Node struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	Speaker      string          `json:"speaker,omitempty"`
	IsMe         bool            `json:"is_me"`
	IsEnding     bool            `json:"isEnding"`
	FunctionName string          `json:"function_name,omitempty"`
	Choices      []Choice        `json:"choices"`
	Position     models.Position `json:"position"`
}

// Branching reports whether the node has at least one choice.
func (n *Node) Branching() bool {
	return len(n.Choices) > 0
}

func (n Node) clone() Node {
	n.Choices = slices.Clone(n.Choices)
	if n.Choices == nil {
		n.Choices = []Choice{}
	}
	return n
}

// Edge connects Source to Target through one of Source's slots. Label is
// resolved when the edge is created and is not kept in sync afterwards.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Slot   Slot   `json:"slot"`
	Label  string `json:"label"`
}

// ChoiceFields is the editable part of a choice.
type ChoiceFields struct {
	Text         string `json:"text"`
	FunctionName string `json:"function_name"`
}

// NodeFields is the editable part of a node.
type NodeFields struct {
	Text         string         `json:"text"`
	Speaker      string         `json:"speaker"`
	IsMe         bool           `json:"is_me"`
	IsEnding     bool           `json:"isEnding"`
	FunctionName string         `json:"function_name"`
	Choices      []ChoiceFields `json:"choices"`
}

// Snapshot is a detached copy of a node used for copy/paste.
type Snapshot struct {
	node Node
}

// Node returns the copied node.
func (s Snapshot) Node() Node {
	return s.node.clone()
}

// Graph owns the nodes and edges of one story while it is being edited.
type Graph struct {
	order []string
	nodes map[string]*Node
	edges []Edge
	start string
	newID func() string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		newID: uuid.NewString,
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// AddNode creates a node with a fresh id. The first node added to an empty
// graph becomes the start node.
func (g *Graph) AddNode(fields *NodeFields, pos models.Position) string {
	n := &Node{ID: g.newID(), Choices: []Choice{}, Position: pos}
	if fields != nil {
		g.apply(n, *fields)
	}
	if len(g.order) == 0 {
		g.start = n.ID
	}
	g.put(n)
	return n.ID
}

// InsertNode adds n keeping its id. Choices without an id get a fresh one.
// It does not touch the start designation.
func (g *Graph) InsertNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("graph: insert: empty node id")
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("graph: insert: duplicate node id %q", n.ID)
	}
	c := n.clone()
	for i := range c.Choices {
		if c.Choices[i].ID == "" {
			c.Choices[i].ID = g.newID()
		}
	}
	g.put(&c)
	return nil
}

// DeleteNode removes the node and every edge touching it. Deleting the
// start node clears the start designation.
func (g *Graph) DeleteNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrNodeNotFound, id)
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(v string) bool { return v == id })
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
	if g.start == id {
		g.start = ""
	}
	return nil
}

// UpdateNode replaces the editable fields of a node. Choices are rebuilt
// with new ids; existing edges keep their slots.
func (g *Graph) UpdateNode(id string, fields NodeFields) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNodeNotFound, id)
	}
	g.apply(n, fields)
	return nil
}

// MoveNode sets the canvas position of a node.
func (g *Graph) MoveNode(id string, pos models.Position) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNodeNotFound, id)
	}
	n.Position = pos
	return nil
}

// Connect binds source's slot to target. Any edge between the two nodes,
// in either direction, and any edge already holding (source, slot) is
// replaced.
func (g *Graph) Connect(source, target string, slot Slot) (Edge, error) {
	src, err := g.endpoints(source, target)
	if err != nil {
		return Edge{}, err
	}
	if slot, err = ParseSlot(string(slot)); err != nil {
		return Edge{}, err
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return (e.Source == source && e.Target == target) ||
			(e.Source == target && e.Target == source) ||
			(e.Source == source && normalize(e.Slot) == slot)
	})
	e := Edge{ID: g.newID(), Source: source, Target: target, Slot: slot, Label: label(src, slot)}
	g.edges = append(g.edges, e)
	return e, nil
}

// AddEdge binds source's slot to target with an explicit label, replacing
// only an edge that already holds (source, slot). Import uses it to rebuild
// edges exactly as the document describes them.
func (g *Graph) AddEdge(source, target string, slot Slot, lbl string) (Edge, error) {
	if _, err := g.endpoints(source, target); err != nil {
		return Edge{}, err
	}
	slot, err := ParseSlot(string(slot))
	if err != nil {
		return Edge{}, err
	}
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return e.Source == source && normalize(e.Slot) == slot
	})
	e := Edge{ID: g.newID(), Source: source, Target: target, Slot: slot, Label: lbl}
	g.edges = append(g.edges, e)
	return e, nil
}

// DisconnectEdges removes the edges with the given ids and returns how many
// were removed. Unknown ids are ignored.
func (g *Graph) DisconnectEdges(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	before := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		return slices.Contains(ids, e.ID)
	})
	return before - len(g.edges)
}

// SetStartNode designates id as the story entry point.
func (g *Graph) SetStartNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrNodeNotFound, id)
	}
	g.start = id
	return nil
}

// StartNode returns the start node id, or "" when none is designated.
func (g *Graph) StartNode() string {
	return g.start
}

// CopyNode takes a snapshot of a node's fields.
func (g *Graph) CopyNode(id string) (Snapshot, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", models.ErrNodeNotFound, id)
	}
	return Snapshot{node: n.clone()}, nil
}

// PasteNode adds a copy of the snapshot under a new id at pos.
func (g *Graph) PasteNode(s Snapshot, pos models.Position) string {
	n := s.node.clone()
	n.ID = g.newID()
	n.Position = pos
	g.put(&n)
	return n.ID
}

// Node returns a copy of the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes in creation order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].clone())
	}
	return out
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutgoingEdge returns the edge holding (source, slot).
func (g *Graph) OutgoingEdge(source string, slot Slot) (Edge, bool) {
	slot = normalize(slot)
	for _, e := range g.edges {
		if e.Source == source && normalize(e.Slot) == slot {
			return e, true
		}
	}
	return Edge{}, false
}

func (g *Graph) put(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}

func (g *Graph) apply(n *Node, f NodeFields) {
	n.Text = f.Text
	n.Speaker = f.Speaker
	n.IsMe = f.IsMe
	n.IsEnding = f.IsEnding
	n.FunctionName = f.FunctionName
	n.Choices = make([]Choice, len(f.Choices))
	for i, c := range f.Choices {
		n.Choices[i] = Choice{ID: g.newID(), Text: c.Text, FunctionName: c.FunctionName}
	}
}

func (g *Graph) endpoints(source, target string) (*Node, error) {
	src, ok := g.nodes[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNodeNotFound, source)
	}
	if _, ok := g.nodes[target]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNodeNotFound, target)
	}
	return src, nil
}

func normalize(s Slot) Slot {
	if s.IsDefault() {
		return DefaultSlot
	}
	return s
}

// label is the choice text for a choice slot that exists, NextLabel otherwise.
func label(src *Node, slot Slot) string {
	if i, ok := slot.ChoiceIndex(); ok && i < len(src.Choices) {
		return src.Choices[i].Text
	}
	return NextLabel
}
