// Package game implements the daily riddle rules: session lifecycle, guess
// evaluation, scoring, and the one-riddle-per-user-per-day invariant.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roddlehq/roddle/internal/crypt"
	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/store"
)

var (
	// ErrAlreadyCompletedToday means the user already finished this
	// difficulty for the current game day.
	ErrAlreadyCompletedToday = errors.New("difficulty already completed today")

	// ErrSessionNotFound means no riddle session exists with the given id.
	ErrSessionNotFound = errors.New("riddle session not found")

	// ErrNotSessionOwner means the session belongs to a different user.
	ErrNotSessionOwner = errors.New("not the session owner")

	// ErrPremiumRequired means the requested difficulty or theme needs a
	// premium account.
	ErrPremiumRequired = errors.New("premium required")
)

// Generator produces one riddle/answer pair. Implemented by the llm
// orchestrator; faked in tests.
type Generator interface {
	Generate(ctx context.Context, difficulty domain.Difficulty, theme, preferredModel string, apiKeys map[string]string) (riddle, answer string, err error)
}

// SessionView is what a player sees of a session: the riddle, never the
// answer.
type SessionView struct {
	SessionID    string            `json:"riddle_id"`
	Riddle       string            `json:"riddle"`
	AnswerLength int               `json:"answer_length"`
	MaxGuesses   int               `json:"max_guesses"`
	Difficulty   domain.Difficulty `json:"difficulty"`
	Day          int               `json:"day"`
	Month        string            `json:"month"`
}

// GuessResult is the outcome of one guess submission. Answer is revealed
// for correct guesses and once the guess budget is exhausted.
type GuessResult struct {
	Correct   bool                   `json:"correct"`
	Answer    string                 `json:"answer,omitempty"`
	Score     int                    `json:"score,omitempty"`
	Breakdown *domain.ScoreBreakdown `json:"breakdown,omitempty"`
}

// DifficultyStatus describes one tier in the daily status map.
type DifficultyStatus struct {
	Accessible bool `json:"accessible"`
	Completed  bool `json:"completed"`
	Started    bool `json:"started"`
	Locked     bool `json:"locked"`
}

// DailyStatus is the per-difficulty overview for the current game day.
// NeedsGeneration is always false: riddles are generated on demand per
// request, never pre-batched, but the legacy frontend still reads the field.
type DailyStatus struct {
	Day             int                                    `json:"day"`
	Month           string                                 `json:"month"`
	Status          map[domain.Difficulty]DifficultyStatus `json:"status"`
	NeedsGeneration bool                                   `json:"needs_generation"`
}

// Service owns session lifecycle and guess evaluation.
type Service struct {
	repo store.Repository
	gen  Generator
	gate *crypt.Gate
	now  func() time.Time

	// Per-identity-tuple mutexes serialize the check-generate-insert
	// sequence. The store's UNIQUE constraint backstops the window where a
	// lock entry is dropped between holders.
	sessionLocks sync.Map
}

// NewService creates a game service.
func NewService(repo store.Repository, gen Generator, gate *crypt.Gate) *Service {
	return &Service{
		repo: repo,
		gen:  gen,
		gate: gate,
		now:  time.Now,
	}
}

// NewServiceWithClock creates a game service with a fixed clock for tests.
func NewServiceWithClock(repo store.Repository, gen Generator, gate *crypt.Gate, now func() time.Time) *Service {
	svc := NewService(repo, gen, gate)
	svc.now = now
	return svc
}

func sessionLockKey(userID, month string, day int, difficulty domain.Difficulty) string {
	return fmt.Sprintf("%s|%s|%d|%s", userID, month, day, difficulty)
}

// GetOrCreateSession returns the user's riddle session for the current game
// day and difficulty, generating and persisting a new one if none exists.
//
// Resuming an existing session is idempotent and side-effect free. Premium
// entitlement for locked difficulties must be verified by the caller before
// invocation.
func (s *Service) GetOrCreateSession(ctx context.Context, user *domain.User, difficulty domain.Difficulty) (*SessionView, error) {
	day, month := GameDay(s.now())

	key := sessionLockKey(user.ID, month, day, difficulty)
	lock, _ := s.sessionLocks.LoadOrStore(key, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer func() {
		mutex.Unlock()
		s.sessionLocks.Delete(key)
	}()

	// Step A: a completion mark means the day is spent, regardless of
	// whether the session record still exists.
	mark, err := s.repo.FindProgress(ctx, user.ID, month, day, difficulty)
	if err != nil {
		return nil, fmt.Errorf("check daily progress: %w", err)
	}
	if mark != nil {
		return nil, ErrAlreadyCompletedToday
	}

	// Step B: resume an existing session.
	existing, err := s.repo.FindSession(ctx, user.ID, month, day, difficulty)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if existing != nil {
		if existing.HasContent() {
			slog.Info("Resuming riddle session", "user_id", user.ID, "difficulty", difficulty, "session_id", existing.ID)
			return s.viewOf(existing)
		}
		// Partial record with no ciphertext cannot be resumed; clear it
		// and generate fresh.
		slog.Warn("Deleting partial riddle session", "user_id", user.ID, "session_id", existing.ID)
		if err := s.repo.DeleteSession(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("delete partial session: %w", err)
		}
	}

	// Step C: generate, encrypt, insert. Generation is expensive, so it is
	// detached from the caller's cancellation: a disconnect mid-generation
	// still completes and persists, and the retry resumes the result.
	genCtx := context.WithoutCancel(ctx)

	theme := user.EffectiveTheme()
	riddleText, answerText, err := s.gen.Generate(genCtx, difficulty, theme, user.Settings.PreferredModel, s.decryptAPIKeys(user))
	if err != nil {
		return nil, err
	}

	encryptedRiddle, err := s.gate.Encrypt(riddleText)
	if err != nil {
		return nil, fmt.Errorf("encrypt riddle: %w", err)
	}
	encryptedAnswer, err := s.gate.Encrypt(answerText)
	if err != nil {
		return nil, fmt.Errorf("encrypt answer: %w", err)
	}

	session := &domain.RiddleSession{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Month:           month,
		Day:             day,
		Difficulty:      difficulty,
		Theme:           theme,
		EncryptedRiddle: encryptedRiddle,
		EncryptedAnswer: encryptedAnswer,
		AnswerLength:    len(answerText),
		StartedAt:       s.now().UTC(),
	}

	if err := s.repo.InsertSession(genCtx, session); err != nil {
		if errors.Is(err, store.ErrDuplicateSession) {
			// A concurrent writer won the insert race; their session is
			// the canonical one for this day.
			slog.Info("Concurrent generation lost insert race, resuming winner's session",
				"user_id", user.ID, "difficulty", difficulty)
			winner, err := s.repo.FindSession(ctx, user.ID, month, day, difficulty)
			if err != nil {
				return nil, fmt.Errorf("reread after insert conflict: %w", err)
			}
			if winner == nil {
				return nil, ErrSessionNotFound
			}
			return s.viewOf(winner)
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	slog.Info("Created riddle session",
		"user_id", user.ID, "difficulty", difficulty, "theme", theme, "session_id", session.ID)
	return s.viewOf(session)
}

func (s *Service) viewOf(session *domain.RiddleSession) (*SessionView, error) {
	riddleText, err := s.gate.Decrypt(session.EncryptedRiddle)
	if err != nil {
		return nil, fmt.Errorf("decrypt riddle for session %s: %w", session.ID, err)
	}

	return &SessionView{
		SessionID:    session.ID,
		Riddle:       riddleText,
		AnswerLength: session.AnswerLength,
		MaxGuesses:   session.Difficulty.MaxGuesses(),
		Difficulty:   session.Difficulty,
		Day:          session.Day,
		Month:        session.Month,
	}, nil
}

// decryptAPIKeys decrypts the user's stored provider keys. Keys that fail
// to decrypt are skipped; the orchestrator reports AuthRequired if the
// needed one is absent.
func (s *Service) decryptAPIKeys(user *domain.User) map[string]string {
	if len(user.Settings.APIKeys) == 0 {
		return nil
	}

	keys := make(map[string]string, len(user.Settings.APIKeys))
	for provider, encrypted := range user.Settings.APIKeys {
		plain, err := s.gate.Decrypt(encrypted)
		if err != nil {
			slog.Error("Failed to decrypt stored API key", "provider", provider, "error", err)
			continue
		}
		keys[provider] = plain
	}
	return keys
}

// SubmitGuess evaluates one guess against the stored answer.
//
// The comparison is exact after trimming and upper-casing the guess; the
// stored answer was normalized at creation time. The guess keeps its
// punctuation, so "Keyboard!" does not match "KEYBOARD". Once a session's
// day is marked solved, further submissions return the stored answer
// without recomputing or re-awarding score.
func (s *Service) SubmitGuess(ctx context.Context, user *domain.User, sessionID, guess string, timeRemaining, guessesUsed int) (*GuessResult, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != user.ID {
		return nil, ErrNotSessionOwner
	}

	answer, err := s.gate.Decrypt(session.EncryptedAnswer)
	if err != nil {
		return nil, fmt.Errorf("decrypt answer for session %s: %w", session.ID, err)
	}

	mark, err := s.repo.FindProgress(ctx, session.UserID, session.Month, session.Day, session.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("check daily progress: %w", err)
	}
	if mark != nil && mark.Solved {
		return &GuessResult{Correct: true, Answer: answer}, nil
	}

	correct := strings.ToUpper(strings.TrimSpace(guess)) == answer
	if !correct {
		result := &GuessResult{Correct: false}
		if guessesUsed+1 >= session.Difficulty.MaxGuesses() {
			// Budget exhausted; reveal the answer so the client can show it.
			result.Answer = answer
		}
		return result, nil
	}

	breakdown := Score(session.Difficulty, timeRemaining, guessesUsed)
	total := breakdown.Total()

	// The progress mark is the exactly-once gate: if a concurrent submit
	// already wrote it, the score was already awarded.
	progressMark := &domain.DailyProgressMark{
		UserID:      session.UserID,
		Month:       session.Month,
		Day:         session.Day,
		Difficulty:  session.Difficulty,
		Solved:      true,
		Score:       total,
		CompletedAt: s.now().UTC(),
	}
	if err := s.repo.InsertProgress(ctx, progressMark); err != nil {
		if errors.Is(err, store.ErrDuplicateProgress) {
			return &GuessResult{Correct: true, Answer: answer}, nil
		}
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	outcome := &domain.GuessOutcome{
		ID:            uuid.NewString(),
		UserID:        session.UserID,
		Username:      user.Username,
		SessionID:     session.ID,
		Difficulty:    session.Difficulty,
		Score:         total,
		Breakdown:     breakdown,
		TimeRemaining: timeRemaining,
		GuessesUsed:   guessesUsed,
		Month:         session.Month,
		Day:           session.Day,
		SubmittedAt:   s.now().UTC(),
	}
	if err := s.repo.InsertOutcome(ctx, outcome); err != nil {
		return nil, fmt.Errorf("insert outcome: %w", err)
	}
	if err := s.repo.AddScore(ctx, user.ID, total); err != nil {
		return nil, fmt.Errorf("update total score: %w", err)
	}

	slog.Info("Riddle solved",
		"user_id", user.ID, "difficulty", session.Difficulty, "score", total)

	return &GuessResult{
		Correct:   true,
		Answer:    answer,
		Score:     total,
		Breakdown: &breakdown,
	}, nil
}

// Status returns the per-difficulty overview for the current game day.
func (s *Service) Status(ctx context.Context, user *domain.User) (*DailyStatus, error) {
	day, month := GameDay(s.now())

	marks, err := s.repo.ProgressForDay(ctx, user.ID, month, day)
	if err != nil {
		return nil, fmt.Errorf("list daily progress: %w", err)
	}
	sessions, err := s.repo.SessionsForDay(ctx, user.ID, month, day)
	if err != nil {
		return nil, fmt.Errorf("list daily sessions: %w", err)
	}

	completed := make(map[domain.Difficulty]bool, len(marks))
	for _, m := range marks {
		completed[m.Difficulty] = true
	}
	started := make(map[domain.Difficulty]bool, len(sessions))
	for _, sess := range sessions {
		started[sess.Difficulty] = true
	}

	status := make(map[domain.Difficulty]DifficultyStatus, len(domain.Difficulties))
	for _, diff := range domain.Difficulties {
		accessible := !diff.Premium() || user.Premium
		status[diff] = DifficultyStatus{
			Accessible: accessible,
			Completed:  completed[diff],
			Started:    started[diff],
			Locked:     !accessible,
		}
	}

	return &DailyStatus{Day: day, Month: month, Status: status}, nil
}

// UserStats aggregates a user's score history.
type UserStats struct {
	TotalGames      int                                 `json:"total_games"`
	TotalScore      int                                 `json:"total_score"`
	AverageScore    int                                 `json:"average_score"`
	DifficultyStats map[domain.Difficulty]DifficultyAgg `json:"difficulty_stats"`
}

// DifficultyAgg is the per-difficulty slice of UserStats.
type DifficultyAgg struct {
	Count      int `json:"count"`
	TotalScore int `json:"total_score"`
}

// Stats computes aggregates over the user's recorded outcomes.
func (s *Service) Stats(ctx context.Context, user *domain.User) (*UserStats, error) {
	outcomes, err := s.repo.OutcomesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}

	stats := &UserStats{
		TotalScore:      user.TotalScore,
		DifficultyStats: make(map[domain.Difficulty]DifficultyAgg),
	}

	sum := 0
	for _, o := range outcomes {
		stats.TotalGames++
		sum += o.Score
		agg := stats.DifficultyStats[o.Difficulty]
		agg.Count++
		agg.TotalScore += o.Score
		stats.DifficultyStats[o.Difficulty] = agg
	}
	if stats.TotalGames > 0 {
		stats.AverageScore = sum / stats.TotalGames
	}

	return stats, nil
}
