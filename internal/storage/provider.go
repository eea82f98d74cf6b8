// Package storage defines the story library file-system abstraction.
package storage

import (
	"strings"

	"github.com/starford/storyloom/internal/models"
)

// StoryExt is the file extension of story documents in the library.
const StoryExt = ".json"

// Provider is the interface for story library file operations.
type Provider interface {
	// List returns metadata for every story file under dir (relative to the library root).
	List(dir string) ([]models.StoryMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the library root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the library root).
	Move(oldPath, newPath string) error
}

// IsStoryFile reports whether name looks like a story document.
func IsStoryFile(name string) bool {
	return strings.HasSuffix(name, StoryExt) && !strings.HasPrefix(name, ".")
}
