// Package translate flattens story documents into a key -> text table for
// translation workflows.
package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/storyloom/internal/models"
)

// Table maps translation keys to source text in extraction order.
type Table = orderedmap.OrderedMap[string, string]

// NewTable returns an empty table.
func NewTable() *Table {
	return orderedmap.New[string, string]()
}

// NodeKey is the key of a node's text.
func NodeKey(nodeID string) string {
	return nodeID
}

// ChoiceKey is the key of the text of the choice at index i of a node.
func ChoiceKey(nodeID string, i int) string {
	return nodeID + "_choice_" + strconv.Itoa(i)
}

// Extract adds every non-empty node and choice text of doc to t.
// Existing keys are overwritten in place.
func Extract(t *Table, doc *models.Document) {
	if doc == nil || doc.Nodes == nil {
		return
	}
	for pair := doc.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		id, rec := pair.Key, pair.Value
		if rec == nil {
			continue
		}
		if rec.Text != "" {
			t.Set(NodeKey(id), rec.Text)
		}
		for i, c := range rec.Choices {
			if c.Text != "" {
				t.Set(ChoiceKey(id, i), c.Text)
			}
		}
	}
}

// Source is one named input of a batch.
type Source struct {
	Name string
	Data []byte
}

// Skipped records a batch input that could not be used.
type Skipped struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Report summarises a batch extraction.
type Report struct {
	Table     *Table    `json:"translations"`
	Processed int       `json:"processed"`
	Skipped   []Skipped `json:"skipped"`
}

// ParseFunc decodes one story file.
type ParseFunc func([]byte) (*models.Document, error)

// Batch extracts all sources in order; later sources overwrite equal keys.
// Sources that fail to parse are reported and skipped.
func Batch(sources []Source, parse ParseFunc) *Report {
	r := &Report{Table: NewTable(), Skipped: []Skipped{}}
	for _, src := range sources {
		doc, err := parse(src.Data)
		if err != nil {
			r.Skipped = append(r.Skipped, Skipped{Name: src.Name, Error: err.Error()})
			continue
		}
		Extract(r.Table, doc)
		r.Processed++
	}
	return r
}

// Encode renders t as indented JSON with a trailing newline.
func Encode(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("translate: encode: %w", err)
	}
	return buf.Bytes(), nil
}
