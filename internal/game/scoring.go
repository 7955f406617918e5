package game

import (
	"github.com/roddlehq/roddle/internal/domain"
)

// baseScores is the per-difficulty base award for a solved riddle.
var baseScores = map[domain.Difficulty]int{
	domain.DifficultyEasy:     10,
	domain.DifficultyMedium:   20,
	domain.DifficultyHard:     40,
	domain.DifficultyVeryHard: 80,
	domain.DifficultyInsane:   150,
}

// Score computes the breakdown for a correct guess. Pure function; no score
// is ever computed for incorrect guesses.
//
//	base       = difficulty table value
//	timeBonus  = max(0, timeRemaining) * 2
//	guessBonus = max(0, maxGuesses - guessesUsed) * 50
func Score(difficulty domain.Difficulty, timeRemaining, guessesUsed int) domain.ScoreBreakdown {
	base, ok := baseScores[difficulty]
	if !ok {
		base = baseScores[domain.DifficultyMedium]
	}

	if timeRemaining < 0 {
		timeRemaining = 0
	}

	guessesLeft := difficulty.MaxGuesses() - guessesUsed
	if guessesLeft < 0 {
		guessesLeft = 0
	}

	return domain.ScoreBreakdown{
		Base:       base,
		TimeBonus:  timeRemaining * 2,
		GuessBonus: guessesLeft * 50,
	}
}
