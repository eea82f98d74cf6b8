package api

import (
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/index"
	"github.com/starford/storyloom/internal/models"
	"github.com/starford/storyloom/internal/playback"
	"github.com/starford/storyloom/internal/storyservice"
)

// CreateStoryRequest is the request body for creating a story.
type CreateStoryRequest struct {
	Path    string `json:"path" example:"act1/tavern.json" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// UpdateStoryRequest is the request body for updating a story.
type UpdateStoryRequest struct {
	Content string `json:"content" validate:"required"`
}

// MoveStoryRequest is the request body for renaming a story.
type MoveStoryRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// StoryDetail is the full story response type (aliased from the domain layer).
type StoryDetail = storyservice.StoryDetail

// StoryListItem is a lightweight item in a list response.
type StoryListItem = storyservice.StoryListItem

// StoryListResponse wraps paginated story listings.
type StoryListResponse struct {
	Stories []StoryListItem `json:"stories" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// SpeakerStoriesResponse lists the stories that reference a character.
type SpeakerStoriesResponse struct {
	CharacterID string   `json:"character_id"`
	Stories     []string `json:"stories"`
}

// TranslationsRequest names the library stories to extract.
type TranslationsRequest struct {
	Paths []string `json:"paths" validate:"required"`
}

// OpenSessionRequest opens an editing session, optionally from a library story.
type OpenSessionRequest struct {
	Path string `json:"path,omitempty" example:"act1/tavern.json"`
}

// SessionListResponse wraps open sessions.
type SessionListResponse struct {
	Sessions []editor.Summary `json:"sessions"`
}

// CommandsRequest carries a batch of graph commands.
type CommandsRequest struct {
	Commands []editor.Command `json:"commands" validate:"required"`
}

// CommandsResponse reports applied commands and the resulting state.
type CommandsResponse struct {
	Outcomes []editor.Outcome `json:"outcomes"`
	State    editor.State     `json:"state"`
}

// AddNodeRequest creates a node.
type AddNodeRequest struct {
	Fields   *graph.NodeFields `json:"fields,omitempty"`
	Position models.Position   `json:"position"`
}

// NodeResponse returns a node id.
type NodeResponse struct {
	NodeID string `json:"node_id"`
}

// PositionRequest moves a node or places a pasted node.
type PositionRequest struct {
	Position models.Position `json:"position"`
}

// ConnectRequest binds a source slot to a target node.
type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Slot   string `json:"slot,omitempty" example:"choice-0"`
}

// StartRequest designates the start node.
type StartRequest struct {
	NodeID string `json:"node_id" validate:"required"`
}

// CharacterRequest adds or renames a character.
type CharacterRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SaveRequest writes a session into the library.
type SaveRequest struct {
	Path string `json:"path,omitempty"`
}

// PreviewRequest starts playback.
type PreviewRequest struct {
	Start string `json:"start,omitempty"`
}

// ChooseRequest advances playback.
type ChooseRequest struct {
	Target string `json:"target" validate:"required"`
}

// PlaybackView is the playback response type.
type PlaybackView = playback.View
