// Package prompt builds generation instructions for the riddle backends.
// Everything here is a pure mapping from (difficulty, theme) to text.
package prompt

import (
	"log/slog"

	"github.com/roddlehq/roddle/internal/domain"
)

// Markers the parser expects in generated output. The format contract sent
// to every backend is phrased around these.
const (
	RiddleMarker = "RIDDLE:"
	AnswerMarker = "ANSWER:"
)

// formatContract is prepended for remote providers, which need the output
// shape spelled out in the prompt itself.
const formatContract = "You are a riddle generator. Output ONLY a riddle and its answer. " +
	"Format EXACTLY as: RIDDLE: [riddle text] ANSWER: [one word answer]."

var difficultyInstructions = map[domain.Difficulty]string{
	domain.DifficultyEasy:     "Create a very easy riddle for children. The answer must be a single common word (3-6 letters). Make it simple and fun.",
	domain.DifficultyMedium:   "Create a medium difficulty riddle. The answer must be a single word (4-8 letters). Make it clever but not too hard.",
	domain.DifficultyHard:     "Create a challenging riddle. The answer must be a single word (5-10 letters). Make it require creative thinking.",
	domain.DifficultyVeryHard: "Create a very difficult riddle. The answer must be a single uncommon word (6-12 letters). Make it cryptic and complex.",
	domain.DifficultyInsane:   "Create an extremely difficult, mind-bending riddle. The answer must be a single word (7-15 letters). Make it require deep lateral thinking.",
}

var themeInstructions = map[string]string{
	"default":   "",
	"cyberpunk": "Style: Cyberpunk. Use high-tech, neon, dystopian, or hacking related metaphors. The answer should still be a regular word, but the riddle phrasing should feel futuristic and gritty.",
	"fantasy":   "Style: High Fantasy. Use archaic language, mention magic, dragons, dungeons, or medieval elements. The riddle should feel like it was found in an ancient scroll.",
	"horror":    "Style: Horror. Use spooky, eerie, and dark language. The riddle should be unsettling and mysterious (but acceptable for a general audience).",
	"scifi":     "Style: Sci-Fi. Use space, alien, physics, or cosmic metaphors.",
	"noir":      "Style: Film Noir. Write it like a 1940s detective narrating a mystery. Gritty, rain-soaked, and cynical.",
}

// Instruction returns the combined difficulty and theme instruction.
// Unknown difficulties fall back to medium; unknown themes to no styling.
// Both fallbacks are logged rather than guessed silently.
func Instruction(difficulty domain.Difficulty, theme string) string {
	base, ok := difficultyInstructions[difficulty]
	if !ok {
		slog.Warn("Unknown difficulty, using medium instruction", "difficulty", difficulty)
		base = difficultyInstructions[domain.DifficultyMedium]
	}

	style, ok := themeInstructions[theme]
	if !ok {
		slog.Warn("Unknown theme, using default styling", "theme", theme)
		style = ""
	}

	if style == "" {
		return base
	}
	return base + " " + style
}

// ForRemote wraps an instruction with the strict format contract required by
// the remote chat-completion providers.
func ForRemote(instruction string) string {
	return formatContract + " " + instruction
}

// ForLocal wraps an instruction in the instruct-style template the local
// inference service responds to best, including an in-context example of the
// expected format.
func ForLocal(instruction string) string {
	return `### System:
You are a riddle generator. Output ONLY a riddle and its answer in the specified format. Do not add greetings or extra text.

### User:
` + instruction + `

Format your response EXACTLY as follows:
RIDDLE: [the riddle question here]
ANSWER: [the one-word or short phrase answer here]

Example:
RIDDLE: I speak without a mouth and hear without ears. I have no body, but I come alive with wind. What am I?
ANSWER: echo

### Assistant:
`
}

// KnownTheme reports whether theme has a styling entry.
func KnownTheme(theme string) bool {
	_, ok := themeInstructions[theme]
	return ok
}
