package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSlot is returned for a slot that is neither "default" nor "choice-<n>".
var ErrInvalidSlot = errors.New("graph: invalid slot")

// Slot names the outgoing handle an edge is bound to: the single default
// path of a linear node, or one choice of a branching node.
type Slot string

const (
	// DefaultSlot is the only outgoing slot of a linear node.
	DefaultSlot Slot = "default"

	choicePrefix = "choice-"
)

// ChoiceSlot returns the slot bound to the choice at index i.
func ChoiceSlot(i int) Slot {
	return Slot(choicePrefix + strconv.Itoa(i))
}

// ParseSlot validates s. An empty string is the default slot.
func ParseSlot(s string) (Slot, error) {
	if s == "" || s == string(DefaultSlot) {
		return DefaultSlot, nil
	}
	if rest, ok := strings.CutPrefix(s, choicePrefix); ok {
		i, err := strconv.Atoi(rest)
		if err == nil && i >= 0 && strconv.Itoa(i) == rest {
			return Slot(s), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSlot, s)
}

// IsDefault reports whether s is the default slot. The empty slot counts as default.
func (s Slot) IsDefault() bool {
	return s == "" || s == DefaultSlot
}

// ChoiceIndex returns the choice index of a choice slot.
func (s Slot) ChoiceIndex() (int, bool) {
	rest, ok := strings.CutPrefix(string(s), choicePrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
