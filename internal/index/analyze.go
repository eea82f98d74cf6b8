package index

import (
	"path"
	"slices"
	"strings"

	"github.com/starford/storyloom/internal/character"
	"github.com/starford/storyloom/internal/models"
)

// Analysis is the indexable summary of a story document.
type Analysis struct {
	Row      StoryRow
	Lines    []Line
	Speakers []string
}

// Analyze derives the index row, dialogue lines and referenced character ids
// for the story stored at p.
func Analyze(p string, doc *models.Document) Analysis {
	a := Analysis{Row: StoryRow{
		Path:       p,
		Title:      strings.TrimSuffix(path.Base(p), path.Ext(p)),
		Characters: len(doc.Characters),
	}}
	seen := make(map[string]struct{})
	addSpeaker := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		a.Speakers = append(a.Speakers, id)
	}

	for _, id := range doc.NodeIDs() {
		rec, _ := doc.Node(id)
		if rec == nil {
			continue
		}
		a.Row.Nodes++
		if rec.IsEnding {
			a.Row.Endings++
		}
		speaker := models.Value(rec.Speaker)
		addSpeaker(speaker)
		for _, ph := range character.Placeholders(rec.Text) {
			addSpeaker(ph)
		}
		a.Lines = append(a.Lines, Line{NodeID: id, Kind: KindNode, Speaker: speaker, Text: rec.Text})

		if rec.Branching() {
			for i, c := range rec.Choices {
				a.Row.Choices++
				if !resolves(doc, c.Next) {
					a.Row.Unresolved++
				}
				for _, ph := range character.Placeholders(c.Text) {
					addSpeaker(ph)
				}
				a.Lines = append(a.Lines, Line{NodeID: id, Kind: KindChoice, Index: i, Speaker: speaker, Text: c.Text})
			}
			continue
		}
		if rec.Next != "" && !resolves(doc, rec.Next) {
			a.Row.Unresolved++
		}
	}
	slices.Sort(a.Speakers)
	return a
}

func resolves(doc *models.Document, id string) bool {
	if id == "" {
		return false
	}
	_, ok := doc.Node(id)
	return ok
}
