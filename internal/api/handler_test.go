package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/crypt"
	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/game"
	"github.com/roddlehq/roddle/internal/llm"
	"github.com/roddlehq/roddle/internal/store"
)

type stubGenerator struct {
	riddle string
	answer string
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, difficulty domain.Difficulty, theme, preferredModel string, apiKeys map[string]string) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}
	return g.riddle, g.answer, nil
}

type stubLocal struct {
	models    []llm.ModelInfo
	available bool
	pulled    chan string
}

func (s *stubLocal) IsAvailable(ctx context.Context, model string) bool { return s.available }
func (s *stubLocal) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return s.models, nil
}
func (s *stubLocal) Pull(ctx context.Context, name string) error {
	if s.pulled != nil {
		s.pulled <- name
	}
	return nil
}
func (s *stubLocal) Generate(ctx context.Context, model, prompt string) (string, error) {
	return "", llm.ErrBackendUnavailable
}

type testEnv struct {
	router chi.Router
	repo   store.Repository
	tokens *auth.Tokens
	gen    *stubGenerator
	local  *stubLocal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	gate, err := crypt.New("api-test-secret")
	if err != nil {
		t.Fatalf("Failed to create gate: %v", err)
	}

	gen := &stubGenerator{riddle: "What has keys but no locks?", answer: "KEYBOARD"}
	svc := game.NewService(repo, gen, gate)
	tokens := auth.NewTokens("api-test-jwt-secret")
	local := &stubLocal{available: true, models: []llm.ModelInfo{{Name: "neural-chat"}}}

	base := NewHandler(repo, gate)
	authHandler := NewAuthHandler(base, tokens)
	riddleHandler := NewRiddleHandler(base, svc)
	userHandler := NewUserHandler(base)
	modelsHandler := NewModelsHandler(base, local, "neural-chat")

	r := chi.NewRouter()
	authHandler.RegisterPublicRoutes(r)
	modelsHandler.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(repo, tokens))
		authHandler.RegisterRoutes(r)
		riddleHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
		modelsHandler.RegisterRoutes(r)
	})

	return &testEnv{router: r, repo: repo, tokens: tokens, gen: gen, local: local}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// registerUser registers an account and returns its bearer token.
func (e *testEnv) registerUser(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Register failed with status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	token := env.registerUser(t, "alice")

	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Me failed with status %d: %s", rec.Code, rec.Body)
	}
	var me struct {
		Username string `json:"username"`
		Premium  bool   `json:"premium"`
	}
	decodeBody(t, rec, &me)
	if me.Username != "alice" || me.Premium {
		t.Errorf("Unexpected profile: %+v", me)
	}

	// Duplicate username is rejected.
	rec = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate username, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("Expected login success, got %d: %s", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "hunter2hunter2"},
		{"short password", "alice", "short"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
				"username": tt.username, "password": tt.password,
			})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestGenerateAndGuessFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/riddle/generate", token, map[string]string{"difficulty": "easy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Generate failed with status %d: %s", rec.Code, rec.Body)
	}
	var view struct {
		RiddleID     string `json:"riddle_id"`
		Riddle       string `json:"riddle"`
		AnswerLength int    `json:"answer_length"`
		MaxGuesses   int    `json:"max_guesses"`
	}
	decodeBody(t, rec, &view)
	if view.Riddle == "" || view.AnswerLength != len("KEYBOARD") || view.MaxGuesses != 5 {
		t.Errorf("Unexpected session view: %+v", view)
	}

	rec = env.do(t, http.MethodPost, "/api/riddle/guess", token, map[string]any{
		"riddle_id": view.RiddleID, "guess": "keyboard", "time_remaining": 30, "guesses_used": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Guess failed with status %d: %s", rec.Code, rec.Body)
	}
	var result struct {
		Correct bool   `json:"correct"`
		Answer  string `json:"answer"`
		Score   int    `json:"score"`
	}
	decodeBody(t, rec, &result)
	if !result.Correct || result.Answer != "KEYBOARD" {
		t.Errorf("Expected correct guess with answer, got %+v", result)
	}
	// easy base 10 + time 60 + (5-1)*50.
	if result.Score != 270 {
		t.Errorf("Expected score 270, got %d", result.Score)
	}

	// The day is now spent for this difficulty.
	rec = env.do(t, http.MethodPost, "/api/riddle/generate", token, map[string]string{"difficulty": "easy"})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 after completion, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/riddles/daily-status", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Daily status failed with status %d", rec.Code)
	}
	var status struct {
		Status map[string]struct {
			Completed bool `json:"completed"`
		} `json:"status"`
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode daily status: %v", err)
	}
	// Legacy frontend reads needs_generation; the field must be present.
	if _, ok := raw["needs_generation"]; !ok {
		t.Error("Expected needs_generation in daily status response")
	}
	decodeBody(t, rec, &status)
	if !status.Status["easy"].Completed {
		t.Error("Expected easy marked completed in daily status")
	}

	rec = env.do(t, http.MethodGet, "/api/user/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Stats failed with status %d", rec.Code)
	}
	var stats struct {
		TotalGames int `json:"total_games"`
		TotalScore int `json:"total_score"`
	}
	decodeBody(t, rec, &stats)
	if stats.TotalGames != 1 || stats.TotalScore != 270 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "carol")

	rec := env.do(t, http.MethodPost, "/api/riddle/generate", token, map[string]string{"difficulty": "nightmare"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown difficulty, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/riddle/generate", token, map[string]string{"difficulty": "insane"})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected 402 for premium difficulty without premium, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/riddle/generate", "", map[string]string{"difficulty": "easy"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}

func TestGenerateBackendDown(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "dave")
	env.gen.err = llm.ErrBackendUnavailable

	rec := env.do(t, http.MethodPost, "/api/riddle/generate", token, map[string]string{"difficulty": "easy"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when backend is down, got %d", rec.Code)
	}
}

func TestPremiumUnlockAndSettings(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "erin")

	// Premium theme is rejected before unlock.
	rec := env.do(t, http.MethodPatch, "/api/user/settings", token, map[string]any{"theme": "cyberpunk"})
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected 402 for premium theme, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/premium/unlock", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Unlock failed with status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/user/settings", token, map[string]any{
		"theme":           "cyberpunk",
		"preferred_model": "gpt-4o",
		"api_keys":        map[string]string{"openai": "sk-test"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Settings update failed with status %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Settings struct {
			Theme      string   `json:"theme"`
			APIKeysSet []string `json:"api_keys_set"`
		} `json:"settings"`
	}
	decodeBody(t, rec, &resp)
	if resp.Settings.Theme != "cyberpunk" {
		t.Errorf("Expected theme cyberpunk, got %q", resp.Settings.Theme)
	}
	if len(resp.Settings.APIKeysSet) != 1 || resp.Settings.APIKeysSet[0] != "openai" {
		t.Errorf("Expected openai key flagged as set, got %v", resp.Settings.APIKeysSet)
	}

	// The stored key is ciphertext, not the plaintext.
	user, err := env.repo.GetUserByUsername(context.Background(), "erin")
	if err != nil || user == nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if user.Settings.APIKeys["openai"] == "sk-test" {
		t.Error("API key stored in plaintext")
	}

	rec = env.do(t, http.MethodPatch, "/api/user/settings", token, map[string]any{"theme": "neon-vaporwave"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown theme, got %d", rec.Code)
	}
}

func TestFriendsAndLeaderboards(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "alice")
	env.registerUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/friends/add", aliceToken, map[string]string{"username": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("AddFriend failed with status %d: %s", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodPost, "/api/friends/add", aliceToken, map[string]string{"username": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when adding self, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/friends/add", aliceToken, map[string]string{"username": "nobody"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown friend, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/global", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Global leaderboard failed with status %d", rec.Code)
	}
	var global []struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &global)
	if len(global) != 2 {
		t.Errorf("Expected 2 global entries, got %d", len(global))
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/friends", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Friends leaderboard failed with status %d", rec.Code)
	}
	var friends []struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &friends)
	if len(friends) != 2 {
		t.Errorf("Expected alice and bob on friends board, got %d entries", len(friends))
	}
}

func TestAddFriendIsMutual(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "alice")
	bobToken := env.registerUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/friends/add", aliceToken, map[string]string{"username": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("AddFriend failed with status %d: %s", rec.Code, rec.Body)
	}

	alice, err := env.repo.GetUserByUsername(context.Background(), "alice")
	if err != nil || alice == nil {
		t.Fatalf("Failed to reload alice: %v", err)
	}
	bob, err := env.repo.GetUserByUsername(context.Background(), "bob")
	if err != nil || bob == nil {
		t.Fatalf("Failed to reload bob: %v", err)
	}
	if len(alice.Friends) != 1 || alice.Friends[0] != bob.ID {
		t.Errorf("Expected alice's friends to be [%s], got %v", bob.ID, alice.Friends)
	}
	if len(bob.Friends) != 1 || bob.Friends[0] != alice.ID {
		t.Errorf("Expected bob's friends to be [%s], got %v", alice.ID, bob.Friends)
	}

	// Bob sees alice on his friends board without adding her back.
	rec = env.do(t, http.MethodGet, "/api/leaderboard/friends", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Friends leaderboard failed with status %d", rec.Code)
	}
	var board []struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &board)
	if len(board) != 2 {
		t.Errorf("Expected bob's board to list both users, got %d entries", len(board))
	}
}

func TestAddFriendAcceptsLegacyFieldName(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerUser(t, "alice")
	env.registerUser(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/friends/add", aliceToken, map[string]string{"friend_username": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("AddFriend via friend_username failed with status %d: %s", rec.Code, rec.Body)
	}

	alice, err := env.repo.GetUserByUsername(context.Background(), "alice")
	if err != nil || alice == nil {
		t.Fatalf("Failed to reload alice: %v", err)
	}
	if len(alice.Friends) != 1 {
		t.Errorf("Expected one friend, got %v", alice.Friends)
	}
}

func TestModelsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "frank")
	env.local.pulled = make(chan string, 1)

	rec := env.do(t, http.MethodGet, "/api/models/available", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Available failed with status %d", rec.Code)
	}
	var models []struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	decodeBody(t, rec, &models)
	if len(models) != 1 || !models[0].Active {
		t.Errorf("Expected one active model, got %+v", models)
	}

	rec = env.do(t, http.MethodPost, "/api/models/pull", token, map[string]string{"model_name": "tinyllama"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Pull failed with status %d: %s", rec.Code, rec.Body)
	}
	if got := <-env.local.pulled; got != "tinyllama" {
		t.Errorf("Expected pull of tinyllama, got %q", got)
	}

	rec = env.do(t, http.MethodPost, "/api/models/pull", token, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing model name, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Health failed with status %d", rec.Code)
	}
	var health struct {
		Database     bool `json:"database"`
		ModelBackend bool `json:"model_backend"`
	}
	decodeBody(t, rec, &health)
	if !health.Database || !health.ModelBackend {
		t.Errorf("Expected healthy report, got %+v", health)
	}
}
