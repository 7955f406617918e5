package llm

import (
	"fmt"
	"strings"

	"github.com/roddlehq/roddle/internal/prompt"
)

// ParseRiddle extracts a (riddle, answer) pair from raw model output.
//
// The text must contain a RIDDLE: marker followed by an ANSWER: marker. The
// riddle is the trimmed text between the markers; the answer is the first
// whitespace token after the answer marker, truncated at the first newline,
// upper-cased, with trailing punctuation stripped. Anything else fails with
// ErrMalformedResponse — this is the single point of format compliance, and
// callers must not paper over its failures with substitute content.
func ParseRiddle(text string) (riddle, answer string, err error) {
	riddleIdx := strings.Index(text, prompt.RiddleMarker)
	answerIdx := strings.Index(text, prompt.AnswerMarker)

	if riddleIdx == -1 || answerIdx == -1 || answerIdx < riddleIdx {
		return "", "", fmt.Errorf("%w: missing RIDDLE/ANSWER markers", ErrMalformedResponse)
	}

	riddle = strings.TrimSpace(text[riddleIdx+len(prompt.RiddleMarker) : answerIdx])

	answer = text[answerIdx+len(prompt.AnswerMarker):]
	if nl := strings.IndexByte(answer, '\n'); nl != -1 {
		answer = answer[:nl]
	}
	answer = strings.TrimSpace(answer)
	if fields := strings.Fields(answer); len(fields) > 0 {
		answer = fields[0]
	}
	answer = strings.TrimRight(answer, ".!?,;:\"'")
	answer = strings.ToUpper(answer)

	if riddle == "" || answer == "" {
		return "", "", fmt.Errorf("%w: empty riddle or answer segment", ErrMalformedResponse)
	}

	return riddle, answer, nil
}
