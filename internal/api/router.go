package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storyloom/internal/storyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *storyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library.
	r.Get("/stories", h.ListStories)
	r.Post("/stories", h.CreateStory)
	r.Get("/stories/*", h.GetStory)
	r.Put("/stories/*", h.UpdateStory)
	r.Delete("/stories/*", h.DeleteStory)
	r.Post("/move", h.MoveStory)

	r.Get("/search", h.Search)
	r.Get("/speakers/{id}/stories", h.SpeakerStories)
	r.Post("/translations", h.Translations)

	// Editing sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.OpenSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.SessionState)
			r.Delete("/", h.CloseSession)
			r.Post("/commands", h.ApplyCommands)

			r.Post("/nodes", h.AddNode)
			r.Put("/nodes/{nodeID}", h.UpdateNode)
			r.Delete("/nodes/{nodeID}", h.DeleteNode)
			r.Put("/nodes/{nodeID}/position", h.MoveNode)
			r.Post("/nodes/{nodeID}/copy", h.CopyNode)
			r.Post("/paste", h.Paste)

			r.Post("/edges", h.Connect)
			r.Delete("/edges/{edgeID}", h.Disconnect)
			r.Put("/start", h.SetStart)

			r.Get("/characters", h.ListCharacters)
			r.Post("/characters", h.AddCharacter)
			r.Get("/characters/export", h.ExportCharacters)
			r.Put("/characters/import", h.ImportCharacters)
			r.Put("/characters/{charID}", h.RenameCharacter)
			r.Delete("/characters/{charID}", h.RemoveCharacter)

			r.Get("/export", h.ExportStory)
			r.Post("/import", h.ImportStory)
			r.Post("/save", h.SaveSession)

			r.Post("/playback", h.StartPlayback)
			r.Get("/playback", h.PlaybackView)
			r.Delete("/playback", h.StopPlayback)
			r.Post("/playback/choose", h.Choose)
			r.Post("/playback/back", h.Back)
		})
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
