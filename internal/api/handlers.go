package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storyloom/internal/index"
	"github.com/starford/storyloom/internal/storyservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *storyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *storyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// storyPath extracts the story path from the URL (everything after /stories/).
// Encoded slashes (act1%2Ftavern.json) are accepted.
func storyPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListStories handles GET /api/stories.
//
//	@Summary		List library stories
//	@Tags			stories
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(path, title, updated_at, nodes)
//	@Success		200		{object}	StoryListResponse
//	@Security		BearerAuth
//	@Router			/stories [get]
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListStories(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list stories", err)
		return
	}
	if items == nil {
		items = []StoryListItem{}
	}
	writeJSON(w, http.StatusOK, StoryListResponse{Stories: items, Total: total})
}

// GetStory handles GET /api/stories/*.
//
//	@Summary		Get a story by path
//	@Tags			stories
//	@Produce		json
//	@Param			path	path		string	true	"Story path"
//	@Success		200		{object}	StoryDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stories/{path} [get]
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	path := storyPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	story, err := h.svc.GetStory(r.Context(), path)
	if err != nil {
		writeError(w, "get story", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", strconv.Quote(story.Checksum))
	writeJSON(w, http.StatusOK, story)
}

// CreateStory handles POST /api/stories.
//
//	@Summary		Create a story
//	@Tags			stories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateStoryRequest	true	"Story to create"
//	@Success		201		{object}	StoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stories [post]
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	story, err := h.svc.CreateStory(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create story", err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

// UpdateStory handles PUT /api/stories/*.
//
//	@Summary		Replace a story with optimistic concurrency
//	@Tags			stories
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Story path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum of the stored story"
//	@Param			body		body	UpdateStoryRequest	true	"Updated content"
//	@Success		200		{object}	StoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stories/{path} [put]
func (h *Handler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	path := storyPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateStoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	story, err := h.svc.UpdateStory(r.Context(), path, []byte(req.Content), ifMatch(r))
	if err != nil {
		writeError(w, "update story", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// DeleteStory handles DELETE /api/stories/*.
//
//	@Summary		Delete a story
//	@Tags			stories
//	@Param			path	path	string	true	"Story path"
//	@Success		204		"Story deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stories/{path} [delete]
func (h *Handler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	path := storyPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteStory(r.Context(), path); err != nil {
		writeError(w, "delete story", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveStory handles POST /api/move.
//
//	@Summary		Rename a story inside the library
//	@Tags			stories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveStoryRequest	true	"Old and new path"
//	@Success		200		{object}	StoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) MoveStory(w http.ResponseWriter, r *http.Request) {
	var req MoveStoryRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	story, err := h.svc.MoveStory(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move story", err, slog.String("from", req.From), slog.String("to", req.To))
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across dialogue lines
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// SpeakerStories handles GET /api/speakers/{id}/stories.
//
//	@Summary		Stories that reference a character
//	@Tags			search
//	@Produce		json
//	@Param			id	path		string	true	"Character id"
//	@Success		200	{object}	SpeakerStoriesResponse
//	@Security		BearerAuth
//	@Router			/speakers/{id}/stories [get]
func (h *Handler) SpeakerStories(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	paths, err := h.svc.StoriesBySpeaker(r.Context(), id)
	if err != nil {
		writeError(w, "stories by speaker", err, slog.String("character_id", id))
		return
	}
	writeJSON(w, http.StatusOK, SpeakerStoriesResponse{CharacterID: id, Stories: paths})
}

// Translations handles POST /api/translations.
//
//	@Summary		Extract a translation table from library stories
//	@Tags			translations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TranslationsRequest	true	"Story paths"
//	@Success		200		{object}	translate.Report
//	@Security		BearerAuth
//	@Router			/translations [post]
func (h *Handler) Translations(w http.ResponseWriter, r *http.Request) {
	var req TranslationsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if len(req.Paths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("paths are required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Translations(r.Context(), req.Paths))
}

// ifMatch returns the If-Match header; "*" matches any stored version.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "*" {
		return ""
	}
	return v
}
