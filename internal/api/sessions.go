package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storyloom/internal/apperr"
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/graph"
)

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	false	"Library story to load"
//	@Success		201		{object}	editor.State
//	@Failure		404		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	st, err := h.svc.OpenSession(r.Context(), req.Path)
	if err != nil {
		writeError(w, "open session", err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List open editing sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: h.svc.ListSessions()})
}

// CloseSession handles DELETE /api/sessions/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// inspect runs a read-only session operation and writes its result.
func (h *Handler) inspect(w http.ResponseWriter, r *http.Request, op string, fn func(*editor.Session) (any, error)) {
	id := chi.URLParam(r, "id")
	var out any
	err := h.svc.Inspect(id, func(s *editor.Session) error {
		var err error
		out, err = fn(s)
		return err
	})
	if err != nil {
		writeError(w, op, err, slog.String("session", id))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// edit runs a mutating session operation and writes its result.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, op string, fn func(*editor.Session) (any, error)) {
	id := chi.URLParam(r, "id")
	var out any
	err := h.svc.Edit(id, func(s *editor.Session) error {
		var err error
		out, err = fn(s)
		return err
	})
	if err != nil {
		writeError(w, op, err, slog.String("session", id))
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SessionState handles GET /api/sessions/{id}.
func (h *Handler) SessionState(w http.ResponseWriter, r *http.Request) {
	h.inspect(w, r, "session state", func(s *editor.Session) (any, error) {
		return s.State(), nil
	})
}

// ApplyCommands handles POST /api/sessions/{id}/commands.
//
//	@Summary		Apply a batch of graph commands
//	@Description	Commands run in order; the batch stops at the first failure.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		CommandsRequest	true	"Commands"
//	@Success		200		{object}	CommandsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/commands [post]
func (h *Handler) ApplyCommands(w http.ResponseWriter, r *http.Request) {
	var req CommandsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	h.edit(w, r, "apply commands", func(s *editor.Session) (any, error) {
		outs, err := s.ApplyAll(req.Commands)
		if err != nil {
			return nil, err
		}
		return CommandsResponse{Outcomes: outs, State: s.State()}, nil
	})
}

// AddNode handles POST /api/sessions/{id}/nodes.
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	h.edit(w, r, "add node", func(s *editor.Session) (any, error) {
		return NodeResponse{NodeID: s.AddNode(req.Fields, req.Position)}, nil
	})
}

// UpdateNode handles PUT /api/sessions/{id}/nodes/{nodeID}.
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var fields graph.NodeFields
	if !decodeJSON(w, r, &fields, false) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	h.edit(w, r, "update node", func(s *editor.Session) (any, error) {
		return nil, s.UpdateNode(nodeID, fields)
	})
}

// MoveNode handles PUT /api/sessions/{id}/nodes/{nodeID}/position.
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	h.edit(w, r, "move node", func(s *editor.Session) (any, error) {
		return nil, s.MoveNode(nodeID, req.Position)
	})
}

// DeleteNode handles DELETE /api/sessions/{id}/nodes/{nodeID}.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	h.edit(w, r, "delete node", func(s *editor.Session) (any, error) {
		return nil, s.DeleteNode(nodeID)
	})
}

// CopyNode handles POST /api/sessions/{id}/nodes/{nodeID}/copy.
func (h *Handler) CopyNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	h.inspect(w, r, "copy node", func(s *editor.Session) (any, error) {
		return NodeResponse{NodeID: nodeID}, s.Copy(nodeID)
	})
}

// Paste handles POST /api/sessions/{id}/paste.
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	h.edit(w, r, "paste", func(s *editor.Session) (any, error) {
		id, err := s.Paste(req.Position)
		return NodeResponse{NodeID: id}, err
	})
}

// Connect handles POST /api/sessions/{id}/edges.
//
//	@Summary		Connect a source slot to a target node
//	@Description	Replaces any edge between the two nodes and the edge already bound to the slot.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		ConnectRequest	true	"Connection"
//	@Success		200		{object}	graph.Edge
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/edges [post]
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	h.edit(w, r, "connect", func(s *editor.Session) (any, error) {
		return s.Connect(req.Source, req.Target, req.Slot)
	})
}

// Disconnect handles DELETE /api/sessions/{id}/edges/{edgeID}.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	edgeID := chi.URLParam(r, "edgeID")
	h.edit(w, r, "disconnect", func(s *editor.Session) (any, error) {
		if s.Disconnect(edgeID) == 0 {
			return nil, fmt.Errorf("%w: edge %s", apperr.ErrNotFound, edgeID)
		}
		return nil, nil
	})
}

// SetStart handles PUT /api/sessions/{id}/start.
func (h *Handler) SetStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	h.edit(w, r, "set start", func(s *editor.Session) (any, error) {
		return nil, s.SetStartNode(req.NodeID)
	})
}

// ListCharacters handles GET /api/sessions/{id}/characters.
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	h.inspect(w, r, "list characters", func(s *editor.Session) (any, error) {
		return s.Characters(), nil
	})
}

// AddCharacter handles POST /api/sessions/{id}/characters.
func (h *Handler) AddCharacter(w http.ResponseWriter, r *http.Request) {
	var req CharacterRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	h.edit(w, r, "add character", func(s *editor.Session) (any, error) {
		return s.AddCharacter(req.ID, req.Name)
	})
}

// RenameCharacter handles PUT /api/sessions/{id}/characters/{charID}.
func (h *Handler) RenameCharacter(w http.ResponseWriter, r *http.Request) {
	var req CharacterRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	charID := chi.URLParam(r, "charID")
	h.edit(w, r, "rename character", func(s *editor.Session) (any, error) {
		return nil, s.RenameCharacter(charID, req.Name)
	})
}

// RemoveCharacter handles DELETE /api/sessions/{id}/characters/{charID}.
func (h *Handler) RemoveCharacter(w http.ResponseWriter, r *http.Request) {
	charID := chi.URLParam(r, "charID")
	h.edit(w, r, "remove character", func(s *editor.Session) (any, error) {
		return nil, s.RemoveCharacter(charID)
	})
}

// ExportCharacters handles GET /api/sessions/{id}/characters/export.
func (h *Handler) ExportCharacters(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "export characters", "characters.json", func(s *editor.Session) ([]byte, error) {
		return s.ExportCharacters()
	})
}

// ImportCharacters handles PUT /api/sessions/{id}/characters/import.
func (h *Handler) ImportCharacters(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	h.edit(w, r, "import characters", func(s *editor.Session) (any, error) {
		if err := s.ImportCharacters(data); err != nil {
			return nil, err
		}
		return s.Characters(), nil
	})
}

// ExportStory handles GET /api/sessions/{id}/export.
//
//	@Summary		Export the session graph as a story document
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Param			start	query		string	false	"Start node override"
//	@Success		200		{object}	models.Document
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export [get]
func (h *Handler) ExportStory(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	h.download(w, r, "export story", "story.json", func(s *editor.Session) ([]byte, error) {
		return s.Export(start)
	})
}

// ImportStory handles POST /api/sessions/{id}/import.
func (h *Handler) ImportStory(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	h.edit(w, r, "import story", func(s *editor.Session) (any, error) {
		if err := s.Import(data); err != nil {
			return nil, err
		}
		return s.State(), nil
	})
}

// SaveSession handles POST /api/sessions/{id}/save.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	id := chi.URLParam(r, "id")
	story, err := h.svc.SaveSession(r.Context(), id, req.Path, ifMatch(r))
	if err != nil {
		writeError(w, "save session", err, slog.String("session", id))
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// StartPlayback handles POST /api/sessions/{id}/playback.
func (h *Handler) StartPlayback(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	h.edit(w, r, "start playback", func(s *editor.Session) (any, error) {
		return s.Preview(req.Start)
	})
}

// PlaybackView handles GET /api/sessions/{id}/playback.
func (h *Handler) PlaybackView(w http.ResponseWriter, r *http.Request) {
	h.inspect(w, r, "playback view", func(s *editor.Session) (any, error) {
		return s.View()
	})
}

// Choose handles POST /api/sessions/{id}/playback/choose.
func (h *Handler) Choose(w http.ResponseWriter, r *http.Request) {
	var req ChooseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	h.edit(w, r, "choose", func(s *editor.Session) (any, error) {
		return s.Choose(req.Target)
	})
}

// Back handles POST /api/sessions/{id}/playback/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, "back", func(s *editor.Session) (any, error) {
		return s.Back()
	})
}

// StopPlayback handles DELETE /api/sessions/{id}/playback.
func (h *Handler) StopPlayback(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, "stop playback", func(s *editor.Session) (any, error) {
		s.ClosePlayback()
		return nil, nil
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, op, filename string, fn func(*editor.Session) ([]byte, error)) {
	id := chi.URLParam(r, "id")
	var data []byte
	err := h.svc.Inspect(id, func(s *editor.Session) error {
		var err error
		data, err = fn(s)
		return err
	})
	if err != nil {
		writeError(w, op, err, slog.String("session", id))
		return
	}
	writeRaw(w, filename, data)
}
