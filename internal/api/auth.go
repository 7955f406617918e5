package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/store"
)

// AuthHandler handles registration, login, and the identity endpoint.
type AuthHandler struct {
	*Handler
	tokens *auth.Tokens
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *Handler, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{Handler: base, tokens: tokens}
}

// RegisterPublicRoutes registers routes that need no bearer token.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
}

// RegisterRoutes registers routes behind the auth middleware.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/auth/me", h.Me)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

// Register creates an account and returns a signed token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 32 {
		Error(w, http.StatusBadRequest, "username must be 3-32 characters")
		return
	}
	if len(req.Password) < 8 {
		Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			Error(w, http.StatusBadRequest, "username already exists")
			return
		}
		slog.Error("Failed to create user", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("User registered", "user_id", user.ID, "username", user.Username)
	JSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  map[string]any{"id": user.ID, "username": user.Username},
	})
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		slog.Error("Failed to look up user", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("User logged in", "user_id", user.ID, "username", user.Username)
	JSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  map[string]any{"id": user.ID, "username": user.Username},
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"premium":     user.Premium,
		"total_score": user.TotalScore,
		"settings":    publicSettings(user),
	})
}

// publicSettings strips stored API key ciphertext down to provider names.
func publicSettings(user *domain.User) map[string]any {
	providers := make([]string, 0, len(user.Settings.APIKeys))
	for provider := range user.Settings.APIKeys {
		providers = append(providers, provider)
	}

	return map[string]any{
		"theme":            user.EffectiveTheme(),
		"preferred_model":  user.Settings.PreferredModel,
		"api_keys_set":     providers,
		"ui_color_primary": user.Settings.UIColorPrimary,
		"ui_color_accent":  user.Settings.UIColorAccent,
		"background_url":   user.Settings.BackgroundURL,
	}
}
