package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/storyloom/internal/apperr"
	"github.com/starford/storyloom/internal/character"
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/models"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeRaw sends an already encoded JSON document as a download.
func writeRaw(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON decodes a size-limited JSON body into v. An empty body leaves
// v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
	return false
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return nil, false
	}
	return data, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, editor.ErrSessionNotFound),
		errors.Is(err, models.ErrNodeNotFound),
		errors.Is(err, character.ErrUnknownCharacter):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrAlreadyExists),
		errors.Is(err, character.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalid),
		errors.Is(err, models.ErrImportParse),
		errors.Is(err, graph.ErrInvalidSlot),
		errors.Is(err, character.ErrInvalidCharacter),
		errors.Is(err, editor.ErrUnknownCommand),
		errors.Is(err, editor.ErrMissingFields):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoStartNode),
		errors.Is(err, editor.ErrEmptyClipboard),
		errors.Is(err, editor.ErrNoPlayback):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrTooManySessions):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client. Unexpected errors are logged and
// hidden behind a generic message.
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
