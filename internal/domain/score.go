package domain

import (
	"time"
)

// ScoreBreakdown itemizes how a solved riddle's score was computed.
type ScoreBreakdown struct {
	Base       int `json:"base"`
	TimeBonus  int `json:"time_bonus"`
	GuessBonus int `json:"guess_bonus"`
}

// Total returns the sum of all components.
func (b ScoreBreakdown) Total() int {
	return b.Base + b.TimeBonus + b.GuessBonus
}

// GuessOutcome records a solved session. Created exactly once per solved
// session and never mutated.
type GuessOutcome struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	SessionID     string         `json:"session_id"`
	Difficulty    Difficulty     `json:"difficulty"`
	Score         int            `json:"score"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	TimeRemaining int            `json:"time_remaining"`
	GuessesUsed   int            `json:"guesses_used"`
	Month         string         `json:"month"`
	Day           int            `json:"day"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// LeaderboardEntry is one row of a score ranking.
type LeaderboardEntry struct {
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
}
