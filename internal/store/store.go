// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/roddlehq/roddle/internal/domain"
)

var (
	// ErrDuplicateUser indicates the username is already taken.
	ErrDuplicateUser = errors.New("username already exists")

	// ErrDuplicateSession indicates a riddle session already exists for the
	// (user, month, day, difficulty) identity tuple. Callers treat this as
	// "someone else already created it" and re-read.
	ErrDuplicateSession = errors.New("riddle session already exists for this day")

	// ErrDuplicateProgress indicates a completion mark was already written
	// for the identity tuple.
	ErrDuplicateProgress = errors.New("daily progress already recorded")
)

// Repository defines the interface for persisting users, riddle sessions,
// and score history. Lookups return (nil, nil) when nothing matches.
type Repository interface {
	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// CreateUser inserts a new user. Returns ErrDuplicateUser if the
	// username is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// UpdateSettings replaces a user's settings document.
	UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error

	// SetPremium flips the premium flag.
	SetPremium(ctx context.Context, userID string, premium bool) error

	// AddFriend appends friendID to the user's friend list if not present.
	AddFriend(ctx context.Context, userID, friendID string) error

	// AddScore increments the user's total score.
	AddScore(ctx context.Context, userID string, delta int) error

	// TopUsers returns up to limit users ordered by total score descending.
	TopUsers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

	// ScoresByUserIDs returns leaderboard entries for the given users,
	// ordered by total score descending.
	ScoresByUserIDs(ctx context.Context, ids []string) ([]domain.LeaderboardEntry, error)

	// FindSession retrieves the riddle session for an identity tuple.
	FindSession(ctx context.Context, userID, month string, day int, difficulty domain.Difficulty) (*domain.RiddleSession, error)

	// GetSession retrieves a riddle session by its id.
	GetSession(ctx context.Context, sessionID string) (*domain.RiddleSession, error)

	// InsertSession inserts a new riddle session. Returns
	// ErrDuplicateSession if the identity tuple is already taken — the
	// store-level half of the one-riddle-per-day invariant.
	InsertSession(ctx context.Context, session *domain.RiddleSession) error

	// DeleteSession removes a riddle session by id. Used only to clear
	// partial records that carry no content.
	DeleteSession(ctx context.Context, sessionID string) error

	// SessionsForDay lists the user's sessions for one game day.
	SessionsForDay(ctx context.Context, userID, month string, day int) ([]*domain.RiddleSession, error)

	// FindProgress retrieves the completion mark for an identity tuple.
	FindProgress(ctx context.Context, userID, month string, day int, difficulty domain.Difficulty) (*domain.DailyProgressMark, error)

	// InsertProgress writes a completion mark. Returns ErrDuplicateProgress
	// if one already exists.
	InsertProgress(ctx context.Context, mark *domain.DailyProgressMark) error

	// ProgressForDay lists the user's completion marks for one game day.
	ProgressForDay(ctx context.Context, userID, month string, day int) ([]*domain.DailyProgressMark, error)

	// InsertOutcome records a solved session.
	InsertOutcome(ctx context.Context, outcome *domain.GuessOutcome) error

	// OutcomesForUser lists a user's recorded outcomes, newest first.
	OutcomesForUser(ctx context.Context, userID string) ([]*domain.GuessOutcome, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
