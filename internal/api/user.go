package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/game"
	"github.com/roddlehq/roddle/internal/prompt"
)

// UserHandler handles settings, premium, friends, and leaderboards.
type UserHandler struct {
	*Handler
}

// NewUserHandler creates a new user handler.
func NewUserHandler(base *Handler) *UserHandler {
	return &UserHandler{Handler: base}
}

// RegisterRoutes registers user routes behind the auth middleware.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Patch("/api/user/settings", h.UpdateSettings)
	r.Post("/api/premium/unlock", h.UnlockPremium)
	r.Post("/api/friends/add", h.AddFriend)
	r.Get("/api/leaderboard/global", h.GlobalLeaderboard)
	r.Get("/api/leaderboard/friends", h.FriendsLeaderboard)
}

// settingsRequest is a partial update: absent fields keep their value.
type settingsRequest struct {
	Theme          *string           `json:"theme"`
	PreferredModel *string           `json:"preferred_model"`
	APIKeys        map[string]string `json:"api_keys"`
	UIColorPrimary *string           `json:"ui_color_primary"`
	UIColorAccent  *string           `json:"ui_color_accent"`
	BackgroundURL  *string           `json:"background_url"`
}

// UpdateSettings applies a partial settings update. Non-default themes need
// premium; provider API keys are encrypted before they are stored.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := user.Settings

	if req.Theme != nil {
		theme := strings.TrimSpace(*req.Theme)
		if !prompt.KnownTheme(theme) {
			Error(w, http.StatusBadRequest, "unknown theme")
			return
		}
		if theme != "default" && !user.Premium {
			ServiceError(w, game.ErrPremiumRequired)
			return
		}
		settings.Theme = theme
	}
	if req.PreferredModel != nil {
		settings.PreferredModel = strings.TrimSpace(*req.PreferredModel)
	}
	if req.UIColorPrimary != nil {
		settings.UIColorPrimary = *req.UIColorPrimary
	}
	if req.UIColorAccent != nil {
		settings.UIColorAccent = *req.UIColorAccent
	}
	if req.BackgroundURL != nil {
		settings.BackgroundURL = *req.BackgroundURL
	}

	if len(req.APIKeys) > 0 {
		if settings.APIKeys == nil {
			settings.APIKeys = make(map[string]string, len(req.APIKeys))
		}
		for provider, key := range req.APIKeys {
			provider = strings.ToLower(strings.TrimSpace(provider))
			if provider == "" {
				continue
			}
			if key == "" {
				// Empty value clears a stored key.
				delete(settings.APIKeys, provider)
				continue
			}
			encrypted, err := h.gate.Encrypt(key)
			if err != nil {
				slog.Error("Failed to encrypt API key", "provider", provider, "error", err)
				Error(w, http.StatusInternalServerError, "internal error")
				return
			}
			settings.APIKeys[provider] = encrypted
		}
	}

	if err := h.repo.UpdateSettings(r.Context(), user.ID, settings); err != nil {
		slog.Error("Failed to update settings", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	user.Settings = settings
	JSON(w, http.StatusOK, map[string]any{
		"message":  "settings updated",
		"settings": publicSettings(user),
	})
}

// UnlockPremium flips the premium flag. Payment is out of scope; this is the
// mock unlock the frontend calls.
func (h *UserHandler) UnlockPremium(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	if err := h.repo.SetPremium(r.Context(), user.ID, true); err != nil {
		slog.Error("Failed to set premium", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("Premium unlocked", "user_id", user.ID)
	JSON(w, http.StatusOK, map[string]any{"premium": true})
}

type addFriendRequest struct {
	Username       string `json:"username"`
	FriendUsername string `json:"friend_username"`
}

func (r addFriendRequest) name() string {
	if r.Username != "" {
		return r.Username
	}
	return r.FriendUsername
}

// AddFriend links two users by username. The link is mutual: both users
// gain each other. Adding twice is a no-op.
func (h *UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req addFriendRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	friend, err := h.repo.GetUserByUsername(r.Context(), strings.TrimSpace(req.name()))
	if err != nil {
		slog.Error("Failed to look up friend", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if friend == nil {
		Error(w, http.StatusNotFound, "user not found")
		return
	}
	if friend.ID == user.ID {
		Error(w, http.StatusBadRequest, "cannot add yourself")
		return
	}

	if err := h.repo.AddFriend(r.Context(), user.ID, friend.ID); err != nil {
		slog.Error("Failed to add friend", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.repo.AddFriend(r.Context(), friend.ID, user.ID); err != nil {
		slog.Error("Failed to add reciprocal friend", "error", err, "user_id", friend.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"message": "friend added", "username": friend.Username})
}

// GlobalLeaderboard returns the top users by total score.
func (h *UserHandler) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.TopUsers(r.Context(), 100)
	if err != nil {
		slog.Error("Failed to load leaderboard", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	JSON(w, http.StatusOK, entries)
}

// FriendsLeaderboard returns the caller and their friends ranked by score.
func (h *UserHandler) FriendsLeaderboard(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	ids := append([]string{user.ID}, user.Friends...)
	entries, err := h.repo.ScoresByUserIDs(r.Context(), ids)
	if err != nil {
		slog.Error("Failed to load friends leaderboard", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	JSON(w, http.StatusOK, entries)
}
