package prompt

import (
	"strings"
	"testing"

	"github.com/roddlehq/roddle/internal/domain"
)

func TestInstructionPerDifficulty(t *testing.T) {
	tests := []struct {
		difficulty domain.Difficulty
		want       string
	}{
		{domain.DifficultyEasy, "3-6 letters"},
		{domain.DifficultyMedium, "4-8 letters"},
		{domain.DifficultyHard, "5-10 letters"},
		{domain.DifficultyVeryHard, "6-12 letters"},
		{domain.DifficultyInsane, "7-15 letters"},
	}

	for _, tt := range tests {
		t.Run(string(tt.difficulty), func(t *testing.T) {
			got := Instruction(tt.difficulty, "default")
			if !strings.Contains(got, tt.want) {
				t.Errorf("Instruction(%s) = %q, want substring %q", tt.difficulty, got, tt.want)
			}
		})
	}
}

func TestInstructionUnknownDifficultyFallsBackToMedium(t *testing.T) {
	got := Instruction(domain.Difficulty("nightmare"), "default")
	want := Instruction(domain.DifficultyMedium, "default")
	if got != want {
		t.Errorf("unknown difficulty = %q, want medium instruction %q", got, want)
	}
}

func TestInstructionAppendsThemeStyle(t *testing.T) {
	plain := Instruction(domain.DifficultyHard, "default")
	themed := Instruction(domain.DifficultyHard, "noir")

	if !strings.HasPrefix(themed, plain) {
		t.Errorf("themed instruction should start with the base instruction")
	}
	if !strings.Contains(themed, "Film Noir") {
		t.Errorf("themed instruction missing style text: %q", themed)
	}
}

func TestInstructionUnknownThemeIsUnstyled(t *testing.T) {
	got := Instruction(domain.DifficultyEasy, "vaporwave")
	want := Instruction(domain.DifficultyEasy, "default")
	if got != want {
		t.Errorf("unknown theme = %q, want unstyled %q", got, want)
	}
}

func TestForRemoteStatesContract(t *testing.T) {
	got := ForRemote("make a riddle")
	for _, marker := range []string{RiddleMarker, AnswerMarker, "make a riddle"} {
		if !strings.Contains(got, marker) {
			t.Errorf("ForRemote output missing %q", marker)
		}
	}
}

func TestForLocalUsesInstructTemplate(t *testing.T) {
	got := ForLocal("make a riddle")
	for _, part := range []string{"### System:", "### User:", "### Assistant:", RiddleMarker, AnswerMarker, "make a riddle"} {
		if !strings.Contains(got, part) {
			t.Errorf("ForLocal output missing %q", part)
		}
	}
}

func TestKnownTheme(t *testing.T) {
	for _, theme := range []string{"default", "cyberpunk", "fantasy", "horror", "scifi", "noir"} {
		if !KnownTheme(theme) {
			t.Errorf("KnownTheme(%q) = false, want true", theme)
		}
	}
	if KnownTheme("vaporwave") {
		t.Error("KnownTheme(vaporwave) = true, want false")
	}
}
