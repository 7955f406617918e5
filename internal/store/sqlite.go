package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		premium INTEGER NOT NULL DEFAULT 0,
		total_score INTEGER NOT NULL DEFAULT 0,
		friends_json TEXT NOT NULL DEFAULT '[]',
		settings_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_total_score ON users(total_score DESC);

	CREATE TABLE IF NOT EXISTS riddle_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		day INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		theme TEXT NOT NULL DEFAULT 'default',
		encrypted_riddle TEXT,
		encrypted_answer TEXT,
		answer_length INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		UNIQUE(user_id, month, day, difficulty)
	);

	CREATE TABLE IF NOT EXISTS daily_progress (
		user_id TEXT NOT NULL,
		month TEXT NOT NULL,
		day INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		solved INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY(user_id, month, day, difficulty)
	);

	CREATE TABLE IF NOT EXISTS guess_outcomes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		session_id TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		score INTEGER NOT NULL,
		base INTEGER NOT NULL,
		time_bonus INTEGER NOT NULL,
		guess_bonus INTEGER NOT NULL,
		time_remaining INTEGER NOT NULL,
		guesses_used INTEGER NOT NULL,
		month TEXT NOT NULL,
		day INTEGER NOT NULL,
		submitted_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_user ON guess_outcomes(user_id, submitted_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var friendsJSON, settingsJSON string
	var premium int
	var createdAt int64

	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash,
		&premium, &user.TotalScore, &friendsJSON, &settingsJSON, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Premium = premium != 0
	user.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := json.Unmarshal([]byte(friendsJSON), &user.Friends); err != nil {
		return nil, fmt.Errorf("decode friends: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &user.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	return &user, nil
}

const userColumns = `id, username, password_hash, premium, total_score, friends_json, settings_json, created_at`

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	friendsJSON, err := json.Marshal(user.Friends)
	if err != nil {
		return fmt.Errorf("encode friends: %w", err)
	}
	settingsJSON, err := json.Marshal(user.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	query := `
	INSERT INTO users (id, username, password_hash, premium, total_score, friends_json, settings_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash,
		boolToInt(user.Premium), user.TotalScore,
		string(friendsJSON), string(settingsJSON), user.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateSettings replaces a user's settings document.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, userID string, settings domain.Settings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET settings_json = ? WHERE id = ?`, string(settingsJSON), userID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateSettings affected 0 rows", "user_id", userID)
	}
	return nil
}

// SetPremium flips the premium flag.
func (s *SQLiteStore) SetPremium(ctx context.Context, userID string, premium bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET premium = ? WHERE id = ?`, boolToInt(premium), userID)
	if err != nil {
		return fmt.Errorf("update premium: %w", err)
	}
	return nil
}

// AddFriend appends friendID to the user's friend list if not present.
func (s *SQLiteStore) AddFriend(ctx context.Context, userID, friendID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	if slices.Contains(user.Friends, friendID) {
		return nil
	}

	friendsJSON, err := json.Marshal(append(user.Friends, friendID))
	if err != nil {
		return fmt.Errorf("encode friends: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET friends_json = ? WHERE id = ?`, string(friendsJSON), userID); err != nil {
		return fmt.Errorf("update friends: %w", err)
	}
	return nil
}

// AddScore increments the user's total score.
func (s *SQLiteStore) AddScore(ctx context.Context, userID string, delta int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET total_score = total_score + ? WHERE id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("increment total score: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("AddScore affected 0 rows", "user_id", userID)
	}
	return nil
}

// TopUsers returns up to limit users ordered by total score descending.
func (s *SQLiteStore) TopUsers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, total_score FROM users ORDER BY total_score DESC, username ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer closeRows(rows, "leaderboard")

	return scanLeaderboard(rows)
}

// ScoresByUserIDs returns leaderboard entries for the given users.
func (s *SQLiteStore) ScoresByUserIDs(ctx context.Context, ids []string) ([]domain.LeaderboardEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT username, total_score FROM users WHERE id IN (`+placeholders+`) ORDER BY total_score DESC, username ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query friend scores: %w", err)
	}
	defer closeRows(rows, "friend scores")

	return scanLeaderboard(rows)
}

func scanLeaderboard(rows *sql.Rows) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.TotalScore); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

const sessionColumns = `id, user_id, month, day, difficulty, theme, encrypted_riddle, encrypted_answer, answer_length, started_at`

func scanSession(scan func(dest ...interface{}) error) (*domain.RiddleSession, error) {
	var sess domain.RiddleSession
	var riddle, answer sql.NullString
	var startedAt int64

	err := scan(
		&sess.ID, &sess.UserID, &sess.Month, &sess.Day, &sess.Difficulty,
		&sess.Theme, &riddle, &answer, &sess.AnswerLength, &startedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.EncryptedRiddle = riddle.String
	sess.EncryptedAnswer = answer.String
	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	return &sess, nil
}

// FindSession retrieves the riddle session for an identity tuple.
func (s *SQLiteStore) FindSession(ctx context.Context, userID, month string, day int, difficulty domain.Difficulty) (*domain.RiddleSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM riddle_sessions
		 WHERE user_id = ? AND month = ? AND day = ? AND difficulty = ?`,
		userID, month, day, string(difficulty))
	return scanSession(row.Scan)
}

// GetSession retrieves a riddle session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.RiddleSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM riddle_sessions WHERE id = ?`, sessionID)
	return scanSession(row.Scan)
}

// InsertSession inserts a new riddle session. The UNIQUE constraint on the
// identity tuple makes this the serialization point for concurrent
// generation: the loser of a race gets ErrDuplicateSession and re-reads.
func (s *SQLiteStore) InsertSession(ctx context.Context, session *domain.RiddleSession) error {
	query := `
	INSERT INTO riddle_sessions (id, user_id, month, day, difficulty, theme, encrypted_riddle, encrypted_answer, answer_length, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Month, session.Day, string(session.Difficulty),
		session.Theme, session.EncryptedRiddle, session.EncryptedAnswer,
		session.AnswerLength, session.StartedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// DeleteSession removes a riddle session by id.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM riddle_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionsForDay lists the user's sessions for one game day.
func (s *SQLiteStore) SessionsForDay(ctx context.Context, userID, month string, day int) ([]*domain.RiddleSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM riddle_sessions
		 WHERE user_id = ? AND month = ? AND day = ?`,
		userID, month, day)
	if err != nil {
		return nil, fmt.Errorf("query sessions for day: %w", err)
	}
	defer closeRows(rows, "sessions for day")

	var sessions []*domain.RiddleSession
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

const progressColumns = `user_id, month, day, difficulty, solved, score, completed_at`

func scanProgress(scan func(dest ...interface{}) error) (*domain.DailyProgressMark, error) {
	var mark domain.DailyProgressMark
	var solved int
	var completedAt int64

	err := scan(&mark.UserID, &mark.Month, &mark.Day, &mark.Difficulty, &solved, &mark.Score, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}

	mark.Solved = solved != 0
	mark.CompletedAt = time.Unix(completedAt, 0).UTC()
	return &mark, nil
}

// FindProgress retrieves the completion mark for an identity tuple.
func (s *SQLiteStore) FindProgress(ctx context.Context, userID, month string, day int, difficulty domain.Difficulty) (*domain.DailyProgressMark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM daily_progress
		 WHERE user_id = ? AND month = ? AND day = ? AND difficulty = ?`,
		userID, month, day, string(difficulty))
	return scanProgress(row.Scan)
}

// InsertProgress writes a completion mark.
func (s *SQLiteStore) InsertProgress(ctx context.Context, mark *domain.DailyProgressMark) error {
	query := `
	INSERT INTO daily_progress (user_id, month, day, difficulty, solved, score, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		mark.UserID, mark.Month, mark.Day, string(mark.Difficulty),
		boolToInt(mark.Solved), mark.Score, mark.CompletedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return ErrDuplicateProgress
		}
		return fmt.Errorf("insert progress: %w", err)
	}
	return nil
}

// ProgressForDay lists the user's completion marks for one game day.
func (s *SQLiteStore) ProgressForDay(ctx context.Context, userID, month string, day int) ([]*domain.DailyProgressMark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM daily_progress
		 WHERE user_id = ? AND month = ? AND day = ?`,
		userID, month, day)
	if err != nil {
		return nil, fmt.Errorf("query progress for day: %w", err)
	}
	defer closeRows(rows, "progress for day")

	var marks []*domain.DailyProgressMark
	for rows.Next() {
		mark, err := scanProgress(rows.Scan)
		if err != nil {
			return nil, err
		}
		marks = append(marks, mark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return marks, nil
}

// InsertOutcome records a solved session.
func (s *SQLiteStore) InsertOutcome(ctx context.Context, outcome *domain.GuessOutcome) error {
	query := `
	INSERT INTO guess_outcomes (id, user_id, username, session_id, difficulty, score, base, time_bonus, guess_bonus, time_remaining, guesses_used, month, day, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		outcome.ID, outcome.UserID, outcome.Username, outcome.SessionID,
		string(outcome.Difficulty), outcome.Score,
		outcome.Breakdown.Base, outcome.Breakdown.TimeBonus, outcome.Breakdown.GuessBonus,
		outcome.TimeRemaining, outcome.GuessesUsed,
		outcome.Month, outcome.Day, outcome.SubmittedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// OutcomesForUser lists a user's recorded outcomes, newest first.
func (s *SQLiteStore) OutcomesForUser(ctx context.Context, userID string) ([]*domain.GuessOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, username, session_id, difficulty, score, base, time_bonus, guess_bonus, time_remaining, guesses_used, month, day, submitted_at
		 FROM guess_outcomes WHERE user_id = ? ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer closeRows(rows, "outcomes")

	var outcomes []*domain.GuessOutcome
	for rows.Next() {
		var o domain.GuessOutcome
		var submittedAt int64
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Username, &o.SessionID, &o.Difficulty, &o.Score,
			&o.Breakdown.Base, &o.Breakdown.TimeBonus, &o.Breakdown.GuessBonus,
			&o.TimeRemaining, &o.GuessesUsed, &o.Month, &o.Day, &submittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
