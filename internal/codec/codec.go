// Package codec converts between the editable story graph and the
// persisted story document.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/parser"
)

// ToDocument projects g into a story document. startID must name an
// existing node. Branching nodes list one choice record per choice in
// choice order, with Next "" when the choice slot has no edge. Linear nodes
// get Next only when their default slot has an edge.
func ToDocument(g *graph.Graph, startID string, chars []models.Character) (*models.Document, error) {
	if startID == "" {
		return nil, models.ErrNoStartNode
	}
	if _, ok := g.Node(startID); !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNoStartNode, startID)
	}

	doc := models.NewDocument()
	if chars != nil {
		doc.Characters = append(doc.Characters, chars...)
	}

	nodes := g.Nodes()
	for _, n := range nodes {
		pos := n.Position
		doc.Nodes.Set(n.ID, &models.NodeRecord{
			Text:         n.Text,
			Choices:      []models.ChoiceRecord{},
			IsEnding:     n.IsEnding,
			Position:     &pos,
			FunctionName: models.Optional(n.FunctionName),
			Speaker:      models.Optional(n.Speaker),
			IsMe:         n.IsMe,
		})
	}

	for _, n := range nodes {
		rec, _ := doc.Nodes.Get(n.ID)
		if n.Branching() {
			for i, c := range n.Choices {
				next := ""
				if e, ok := g.OutgoingEdge(n.ID, graph.ChoiceSlot(i)); ok {
					next = e.Target
				}
				rec.Choices = append(rec.Choices, models.ChoiceRecord{
					Text:         c.Text,
					Next:         next,
					FunctionName: models.Optional(c.FunctionName),
					ID:           c.ID,
				})
			}
			continue
		}
		if e, ok := g.OutgoingEdge(n.ID, graph.DefaultSlot); ok {
			rec.Next = e.Target
		}
	}
	return doc, nil
}

// Result is a graph rebuilt from a document.
type Result struct {
	Graph       *graph.Graph
	Characters  []models.Character
	StartNodeID string
}

// FromDocument rebuilds a graph from doc, keeping node ids. currentStart is
// kept as the start node when doc contains it. Positionless nodes are laid
// out on a grid in document order. Choice and next targets that do not
// resolve to a node are dropped without error.
func FromDocument(doc *models.Document, currentStart string) (*Result, error) {
	if doc == nil || doc.Nodes == nil {
		return nil, &parser.ImportParseError{Msg: `missing "nodes"`}
	}

	g := graph.New()
	var grid Grid
	for pair := doc.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		id, rec := pair.Key, pair.Value
		if rec == nil {
			return nil, &parser.ImportParseError{Msg: fmt.Sprintf("node %q is null", id)}
		}
		n := graph.Node{
			ID:           id,
			Text:         rec.Text,
			Speaker:      models.Value(rec.Speaker),
			IsMe:         rec.IsMe,
			IsEnding:     rec.IsEnding,
			FunctionName: models.Value(rec.FunctionName),
			Choices:      make([]graph.Choice, len(rec.Choices)),
		}
		for i, c := range rec.Choices {
			n.Choices[i] = graph.Choice{ID: c.ID, Text: c.Text, FunctionName: models.Value(c.FunctionName)}
		}
		if rec.Position != nil {
			n.Position = *rec.Position
		} else {
			n.Position = grid.Next()
		}
		if err := g.InsertNode(n); err != nil {
			return nil, &parser.ImportParseError{Msg: err.Error(), Err: err}
		}
	}

	for pair := doc.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		id, rec := pair.Key, pair.Value
		if rec.Branching() {
			for i, c := range rec.Choices {
				if _, ok := doc.Node(c.Next); !ok || c.Next == "" {
					continue
				}
				if _, err := g.AddEdge(id, c.Next, graph.ChoiceSlot(i), c.Text); err != nil {
					return nil, err
				}
			}
			continue
		}
		if _, ok := doc.Node(rec.Next); ok && rec.Next != "" {
			if _, err := g.AddEdge(id, rec.Next, graph.DefaultSlot, graph.NextLabel); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{Graph: g, Characters: []models.Character{}}
	res.Characters = append(res.Characters, doc.Characters...)
	if _, ok := g.Node(currentStart); ok && currentStart != "" {
		res.StartNodeID = currentStart
		if err := g.SetStartNode(currentStart); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Export projects g and encodes the result.
func Export(g *graph.Graph, startID string, chars []models.Character) ([]byte, error) {
	doc, err := ToDocument(g, startID, chars)
	if err != nil {
		return nil, err
	}
	return Encode(doc)
}

// Import parses data (canonical or legacy shape) and rebuilds a graph.
func Import(data []byte, currentStart string) (*Result, error) {
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, currentStart)
}
