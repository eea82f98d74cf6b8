// Package parser decodes story and character files into models, normalising
// the legacy root-level story shape into the canonical one.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/starford/storyloom/internal/models"
)

const (
	keyNodes      = "nodes"
	keyCharacters = "characters"
)

// ImportParseError describes why a file could not be imported.
// It unwraps to models.ErrImportParse.
type ImportParseError struct {
	Msg string
	Err error
}

func (e *ImportParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return models.ErrImportParse.Error()
	}
	return fmt.Sprintf("%s: %s", models.ErrImportParse.Error(), e.Msg)
}

func (e *ImportParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{models.ErrImportParse}
	}
	return []error{models.ErrImportParse, e.Err}
}

// Shape identifies which story document layout was found.
type Shape int

const (
	// ShapeCanonical is {"characters": [...], "nodes": {...}}.
	ShapeCanonical Shape = iota
	// ShapeLegacy has node records at the document root and no characters.
	ShapeLegacy
)

func (s Shape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Parse decodes a story document. Both the canonical and the legacy shape
// are accepted; the result is always canonical.
func Parse(data []byte) (*models.Document, error) {
	doc, _, err := ParseShape(data)
	return doc, err
}

// ParseShape is Parse that also reports the detected input shape.
func ParseShape(data []byte) (*models.Document, Shape, error) {
	root := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, root); err != nil {
		return nil, 0, decodeError(err)
	}

	_, hasNodes := root.Get(keyNodes)
	_, hasCharacters := root.Get(keyCharacters)

	switch {
	case hasNodes:
		doc, err := parseCanonical(data)
		return doc, ShapeCanonical, err
	case hasCharacters:
		return nil, 0, &ImportParseError{Msg: `missing "nodes"`}
	default:
		doc, err := parseLegacy(root)
		return doc, ShapeLegacy, err
	}
}

func parseCanonical(data []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, decodeError(err)
	}
	if doc.Nodes == nil {
		return nil, &ImportParseError{Msg: `"nodes" must be an object`}
	}
	for pair := doc.Nodes.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return nil, &ImportParseError{Msg: fmt.Sprintf("node %q is null", pair.Key)}
		}
	}
	if doc.Characters == nil {
		doc.Characters = []models.Character{}
	}
	return &doc, nil
}

// parseLegacy lifts every root entry into the node map.
func parseLegacy(root *orderedmap.OrderedMap[string, json.RawMessage]) (*models.Document, error) {
	if root.Len() == 0 {
		return nil, &ImportParseError{Msg: `missing "nodes"`}
	}
	doc := models.NewDocument()
	for pair := root.Oldest(); pair != nil; pair = pair.Next() {
		raw := bytes.TrimSpace(pair.Value)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, &ImportParseError{Msg: fmt.Sprintf("node %q is not an object", pair.Key)}
		}
		var rec models.NodeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &ImportParseError{Msg: fmt.Sprintf("node %q: %v", pair.Key, err), Err: err}
		}
		doc.Nodes.Set(pair.Key, &rec)
	}
	return doc, nil
}

// ParseCharacterFile decodes a characters.json file.
func ParseCharacterFile(data []byte) (*models.CharacterFile, error) {
	var raw struct {
		Characters *[]models.Character `json:"characters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, decodeError(err)
	}
	if raw.Characters == nil {
		return nil, &ImportParseError{Msg: `missing "characters"`}
	}
	return &models.CharacterFile{Characters: *raw.Characters}, nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ImportParseError{Msg: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset), Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ImportParseError{Msg: fmt.Sprintf("invalid field type: %v", err), Err: err}
	}
	return &ImportParseError{Msg: err.Error(), Err: err}
}
