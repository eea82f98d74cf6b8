// Package playback walks a story document from a start node, one
// transition at a time, keeping a history for back-navigation.
package playback

import (
	"fmt"
	"slices"

	"github.com/starford/storyloom/internal/character"
	"github.com/starford/storyloom/internal/models"
)

// ContinueLabel is the label of the single action offered by a linear node.
const ContinueLabel = "Continue"

// Option is a transition the reader can take from the current node.
type Option struct {
	Label        string `json:"label"`
	Target       string `json:"target"`
	FunctionName string `json:"function_name,omitempty"`
}

// View is the rendered state of the current node.
type View struct {
	NodeID       string   `json:"node_id"`
	Speaker      string   `json:"speaker,omitempty"`
	IsMe         bool     `json:"is_me"`
	Text         string   `json:"text"`
	IsEnding     bool     `json:"is_ending"`
	FunctionName string   `json:"function_name,omitempty"`
	Choices      []Option `json:"choices"`
	Next         string   `json:"next,omitempty"`
	CanGoBack    bool     `json:"can_go_back"`
	Terminal     bool     `json:"terminal"`
}

// Actions returns every transition the view offers: its choices, or a
// single continue action for a linear node with a next target.
func (v View) Actions() []Option {
	if len(v.Choices) > 0 {
		return v.Choices
	}
	if v.Next != "" {
		return []Option{{Label: ContinueLabel, Target: v.Next}}
	}
	return nil
}

// Player is the traversal state over one document.
type Player struct {
	doc     *models.Document
	current string
	history []string
}

// New starts playback of doc at startID. The start id is not checked;
// an unknown id surfaces as ErrNodeNotFound from View.
func New(doc *models.Document, startID string) *Player {
	return &Player{
		doc:     doc,
		current: startID,
		history: []string{startID},
	}
}

// Current returns the current node id.
func (p *Player) Current() string {
	return p.current
}

// History returns the visited node ids, oldest first.
func (p *Player) History() []string {
	return slices.Clone(p.history)
}

// Choose moves to targetID. The target is trusted as given.
func (p *Player) Choose(targetID string) {
	p.current = targetID
	p.history = append(p.history, targetID)
}

// Back returns to the previous node. It reports false and does nothing
// when there is no previous node.
func (p *Player) Back() bool {
	if len(p.history) <= 1 {
		return false
	}
	p.history = p.history[:len(p.history)-1]
	p.current = p.history[len(p.history)-1]
	return true
}

// View renders the current node with placeholders substituted.
func (p *Player) View() (View, error) {
	rec, ok := p.doc.Node(p.current)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", models.ErrNodeNotFound, p.current)
	}
	chars := p.doc.Characters

	v := View{
		NodeID:       p.current,
		Speaker:      character.DisplayName(chars, models.Value(rec.Speaker)),
		IsMe:         rec.IsMe,
		Text:         character.Substitute(rec.Text, chars),
		IsEnding:     rec.IsEnding,
		FunctionName: models.Value(rec.FunctionName),
		Choices:      []Option{},
		CanGoBack:    len(p.history) > 1,
	}
	if rec.Branching() {
		for _, c := range rec.Choices {
			v.Choices = append(v.Choices, Option{
				Label:        character.Substitute(c.Text, chars),
				Target:       c.Next,
				FunctionName: models.Value(c.FunctionName),
			})
		}
	} else {
		v.Next = rec.Next
	}
	v.Terminal = len(v.Choices) == 0 && v.Next == ""
	return v, nil
}

// Walk starts at startID and follows path, where each entry is a choice
// index into the current node's actions (0 for a linear node's continue).
// It returns the player positioned at the end of the path.
func Walk(doc *models.Document, startID string, path []int) (*Player, error) {
	p := New(doc, startID)
	for step, idx := range path {
		v, err := p.View()
		if err != nil {
			return p, err
		}
		actions := v.Actions()
		if idx < 0 || idx >= len(actions) {
			return p, fmt.Errorf("playback: step %d: choice %d out of range at node %s (%d available)", step, idx, v.NodeID, len(actions))
		}
		p.Choose(actions[idx].Target)
	}
	return p, nil
}
