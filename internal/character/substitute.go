package character

import (
	"regexp"

	"github.com/starford/storyloom/internal/models"
)

// Unresolved replaces a placeholder whose id matches no character.
const Unresolved = "NULL"

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

// Substitute replaces every {id} placeholder in text with the matching
// character name, or Unresolved. Matches are replaced left to right in a
// single pass; substituted names are never rescanned.
func Substitute(text string, chars []models.Character) string {
	if len(text) < 3 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		id := match[1 : len(match)-1]
		if c, ok := find(chars, id); ok {
			return c.Name
		}
		return Unresolved
	})
}

// Placeholders returns the ids referenced by text, in order of appearance.
func Placeholders(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Substitute resolves placeholders against the registry.
func (r *Registry) Substitute(text string) string {
	return Substitute(text, r.chars)
}
