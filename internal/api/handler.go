// Package api provides HTTP handlers for the Roddle API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roddlehq/roddle/internal/crypt"
	"github.com/roddlehq/roddle/internal/game"
	"github.com/roddlehq/roddle/internal/llm"
	"github.com/roddlehq/roddle/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
	gate *crypt.Gate
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, gate *crypt.Gate) *Handler {
	return &Handler{repo: repo, gate: gate}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a request body into v, capping the body at 1 MiB.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}

// ServiceError maps domain errors to HTTP responses. Unmatched errors are
// logged and become a 500.
func ServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrAlreadyCompletedToday):
		Error(w, http.StatusConflict, "already completed this difficulty today")
	case errors.Is(err, game.ErrSessionNotFound):
		Error(w, http.StatusNotFound, "riddle not found")
	case errors.Is(err, game.ErrNotSessionOwner):
		Error(w, http.StatusForbidden, "riddle belongs to another user")
	case errors.Is(err, game.ErrPremiumRequired):
		Error(w, http.StatusPaymentRequired, "premium required")
	case errors.Is(err, llm.ErrAuthRequired):
		Error(w, http.StatusUnauthorized, "API key required for this model")
	case errors.Is(err, llm.ErrBackendUnavailable), errors.Is(err, llm.ErrProviderUnavailable):
		Error(w, http.StatusServiceUnavailable, "model backend unavailable")
	case errors.Is(err, llm.ErrEmptyResponse), errors.Is(err, llm.ErrMalformedResponse), errors.Is(err, llm.ErrProviderError):
		Error(w, http.StatusBadGateway, "model returned an unusable response")
	default:
		slog.Error("Unhandled service error", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
