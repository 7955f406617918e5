package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/llm"
)

// ModelsHandler handles local model management and the detailed health check.
type ModelsHandler struct {
	*Handler
	local        llm.LocalBackend
	defaultModel string
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(base *Handler, local llm.LocalBackend, defaultModel string) *ModelsHandler {
	return &ModelsHandler{Handler: base, local: local, defaultModel: defaultModel}
}

// RegisterRoutes registers model routes behind the auth middleware.
func (h *ModelsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/models/available", h.Available)
	r.Post("/api/models/pull", h.Pull)
}

// RegisterPublicRoutes registers routes that need no bearer token.
func (h *ModelsHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Available lists local models, flagging the caller's active one.
func (h *ModelsHandler) Available(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	active := h.defaultModel
	if user != nil && user.Settings.PreferredModel != "" {
		active = user.Settings.PreferredModel
	}

	models, err := h.local.ListModels(r.Context())
	if err != nil {
		slog.Warn("Failed to list local models", "error", err)
		JSON(w, http.StatusOK, []any{})
		return
	}

	out := make([]map[string]any, 0, len(models))
	for _, m := range models {
		out = append(out, map[string]any{
			"name":   m.Name,
			"type":   "local",
			"size":   m.Size,
			"active": m.Name == active || strings.HasPrefix(m.Name, active+":"),
		})
	}
	JSON(w, http.StatusOK, out)
}

type pullRequest struct {
	ModelName string `json:"model_name"`
	Model     string `json:"model"`
}

// Pull starts a model download on the local backend. The download keeps
// running after this request returns; progress shows up in backend logs.
func (h *ModelsHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.ModelName)
	if name == "" {
		name = strings.TrimSpace(req.Model)
	}
	if name == "" {
		Error(w, http.StatusBadRequest, "model_name is required")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := h.local.Pull(ctx, name); err != nil {
			slog.Error("Model pull failed", "model", name, "error", err)
			return
		}
		slog.Info("Model pull finished", "model", name)
	}()

	JSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("model %q download started", name),
	})
}

// Health reports database and local backend reachability.
func (h *ModelsHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.repo.Ping(r.Context()) == nil
	backendOK := h.local.IsAvailable(r.Context(), h.defaultModel)

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, map[string]any{
		"database":      dbOK,
		"model_backend": backendOK,
	})
}
