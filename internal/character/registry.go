// Package character holds the ordered character registry and the
// placeholder substitution that resolves {characterId} tokens in dialogue.
package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/storyloom/internal/models"
)

var (
	// ErrInvalidCharacter is returned for an empty id or name.
	ErrInvalidCharacter = errors.New("character: id and name are required")
	// ErrDuplicateID is returned when a character id is already registered.
	ErrDuplicateID = errors.New("character: id already exists")
	// ErrUnknownCharacter is returned when an id is not registered.
	ErrUnknownCharacter = errors.New("character: unknown id")
)

// Registry is an ordered list of characters with unique ids.
// Removing a character never touches nodes that reference it.
type Registry struct {
	chars []models.Character
}

// NewRegistry returns a registry seeded with chars.
func NewRegistry(chars []models.Character) *Registry {
	r := &Registry{}
	r.Replace(chars)
	return r
}

// Add appends a character. Id and name are trimmed.
func (r *Registry) Add(id, name string) (models.Character, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" || name == "" {
		return models.Character{}, ErrInvalidCharacter
	}
	if r.index(id) >= 0 {
		return models.Character{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	c := models.Character{ID: id, Name: name}
	r.chars = append(r.chars, c)
	return c, nil
}

// Rename changes the display name of an existing character.
func (r *Registry) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidCharacter
	}
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	r.chars[i].Name = name
	return nil
}

// Remove deletes the character with id.
func (r *Registry) Remove(id string) error {
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	r.chars = append(r.chars[:i], r.chars[i+1:]...)
	return nil
}

// Replace swaps the whole registry for chars, kept verbatim so that an
// imported character list exports unchanged.
func (r *Registry) Replace(chars []models.Character) {
	r.chars = make([]models.Character, len(chars))
	copy(r.chars, chars)
}

// Get returns the character registered under id.
func (r *Registry) Get(id string) (models.Character, bool) {
	i := r.index(id)
	if i < 0 {
		return models.Character{}, false
	}
	return r.chars[i], true
}

// DisplayName returns the name for id, the id itself when it is not
// registered, and "" for an empty id.
func (r *Registry) DisplayName(id string) string {
	return DisplayName(r.chars, id)
}

// All returns a copy of the registered characters in insertion order.
func (r *Registry) All() []models.Character {
	out := make([]models.Character, len(r.chars))
	copy(out, r.chars)
	return out
}

// Len returns the number of registered characters.
func (r *Registry) Len() int {
	return len(r.chars)
}

// MarshalFile encodes the registry as an indented characters.json document.
func (r *Registry) MarshalFile() ([]byte, error) {
	data, err := json.MarshalIndent(models.CharacterFile{Characters: r.All()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("character: marshal: %w", err)
	}
	return append(data, '\n'), nil
}

func (r *Registry) index(id string) int {
	for i, c := range r.chars {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// DisplayName resolves a speaker id against chars.
func DisplayName(chars []models.Character, id string) string {
	if id == "" {
		return ""
	}
	if c, ok := find(chars, id); ok {
		return c.Name
	}
	return id
}

func find(chars []models.Character, id string) (models.Character, bool) {
	for _, c := range chars {
		if c.ID == id {
			return c, true
		}
	}
	return models.Character{}, false
}
