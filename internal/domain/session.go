package domain

import (
	"time"
)

// Difficulty is one of the five fixed riddle tiers.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
	DifficultyInsane   Difficulty = "insane"
)

// Difficulties lists all tiers in ascending order.
var Difficulties = []Difficulty{
	DifficultyEasy,
	DifficultyMedium,
	DifficultyHard,
	DifficultyVeryHard,
	DifficultyInsane,
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard, DifficultyInsane:
		return true
	}
	return false
}

// Premium reports whether the tier requires a premium account.
func (d Difficulty) Premium() bool {
	return d == DifficultyVeryHard || d == DifficultyInsane
}

// MaxGuesses returns the guess budget for the tier.
func (d Difficulty) MaxGuesses() int {
	switch d {
	case DifficultyEasy:
		return 5
	case DifficultyMedium:
		return 4
	case DifficultyHard:
		return 3
	case DifficultyVeryHard:
		return 2
	case DifficultyInsane:
		return 1
	default:
		return 3
	}
}

// RiddleSession is one riddle instance bound to a user, game day, and
// difficulty. Riddle and answer text are stored encrypted and never mutated
// after creation; at most one session may exist per identity tuple
// (user_id, month, day, difficulty).
type RiddleSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Month           string     `json:"month"` // "YYYY-MM"
	Day             int        `json:"day"`   // 1..31
	Difficulty      Difficulty `json:"difficulty"`
	Theme           string     `json:"theme"`
	EncryptedRiddle string     `json:"-"`
	EncryptedAnswer string     `json:"-"`
	AnswerLength    int        `json:"answer_length"`
	StartedAt       time.Time  `json:"started_at"`
}

// HasContent reports whether the session carries persisted riddle text.
// Legacy records could exist without ciphertext; those are deleted and
// regenerated rather than resumed.
func (s *RiddleSession) HasContent() bool {
	return s.EncryptedRiddle != "" && s.EncryptedAnswer != ""
}

// DailyProgressMark is the authoritative "already played" record for one
// (user, month, day, difficulty) tuple, written exactly once when the
// session is finished.
type DailyProgressMark struct {
	UserID      string     `json:"user_id"`
	Month       string     `json:"month"`
	Day         int        `json:"day"`
	Difficulty  Difficulty `json:"difficulty"`
	Solved      bool       `json:"solved"`
	Score       int        `json:"score"`
	CompletedAt time.Time  `json:"completed_at"`
}
