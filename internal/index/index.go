package index

// StoryIndex defines the interface for story indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type StoryIndex interface {
	UpsertStory(s StoryRow, lines []Line, speakers []string) error
	DeleteStory(path string) error
	GetChecksum(path string) (string, error)
	GetStory(path string) (*StoryRow, error)
	ListStories(limit, offset int, sort string) ([]StoryRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	StoriesBySpeaker(characterID string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies StoryIndex at compile time.
var _ StoryIndex = (*DB)(nil)
