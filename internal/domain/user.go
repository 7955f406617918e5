// Package domain contains core domain types for the Roddle application.
package domain

import (
	"time"
)

// Settings holds per-user preferences. API keys are stored encrypted and
// decrypted only when handed to the generation layer.
type Settings struct {
	Theme          string            `json:"theme,omitempty"`
	PreferredModel string            `json:"preferred_model,omitempty"`
	APIKeys        map[string]string `json:"api_keys,omitempty"`
	UIColorPrimary string            `json:"ui_color_primary,omitempty"`
	UIColorAccent  string            `json:"ui_color_accent,omitempty"`
	BackgroundURL  string            `json:"background_url,omitempty"`
}

// User represents a registered player.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Premium      bool      `json:"premium"`
	TotalScore   int       `json:"total_score"`
	Friends      []string  `json:"friends"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"created_at"`
}

// EffectiveTheme returns the user's theme, falling back to default for
// non-premium users so premium-only styles never leak through stale settings.
func (u *User) EffectiveTheme() string {
	if u.Settings.Theme == "" {
		return "default"
	}
	if u.Settings.Theme != "default" && !u.Premium {
		return "default"
	}
	return u.Settings.Theme
}
