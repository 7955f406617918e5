package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/game"
)

// RiddleHandler handles riddle generation, guessing, and daily status.
type RiddleHandler struct {
	*Handler
	svc *game.Service
}

// NewRiddleHandler creates a new riddle handler.
func NewRiddleHandler(base *Handler, svc *game.Service) *RiddleHandler {
	return &RiddleHandler{Handler: base, svc: svc}
}

// RegisterRoutes registers riddle routes behind the auth middleware.
func (h *RiddleHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/riddle/generate", h.Generate)
	r.Post("/api/riddle/guess", h.Guess)
	r.Get("/api/riddles/daily-status", h.DailyStatus)
	r.Get("/api/user/stats", h.Stats)
}

type generateRequest struct {
	Difficulty string `json:"difficulty"`
}

// Generate returns the user's riddle for today at the requested difficulty,
// creating one if needed. Premium tiers are gated here, before the game
// service is involved.
func (h *RiddleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	difficulty := domain.Difficulty(req.Difficulty)
	if !difficulty.Valid() {
		Error(w, http.StatusBadRequest, "unknown difficulty")
		return
	}
	if difficulty.Premium() && !user.Premium {
		ServiceError(w, game.ErrPremiumRequired)
		return
	}

	view, err := h.svc.GetOrCreateSession(r.Context(), user, difficulty)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

type guessRequest struct {
	RiddleID      string `json:"riddle_id"`
	Guess         string `json:"guess"`
	TimeRemaining int    `json:"time_remaining"`
	GuessesUsed   int    `json:"guesses_used"`
}

// Guess evaluates one guess against the caller's session.
func (h *RiddleHandler) Guess(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req guessRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RiddleID == "" {
		Error(w, http.StatusBadRequest, "riddle_id is required")
		return
	}

	result, err := h.svc.SubmitGuess(r.Context(), user, req.RiddleID, req.Guess, req.TimeRemaining, req.GuessesUsed)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// DailyStatus returns the per-difficulty overview for the current game day.
func (h *RiddleHandler) DailyStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	status, err := h.svc.Status(r.Context(), user)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

// Stats returns the user's aggregated score history.
func (h *RiddleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	stats, err := h.svc.Stats(r.Context(), user)
	if err != nil {
		ServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}
