package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ENCRYPTION_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("Expected default ollama url, got %q", cfg.OllamaURL)
	}
	if cfg.DefaultModel != "neural-chat" {
		t.Errorf("Expected default model neural-chat, got %q", cfg.DefaultModel)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode with no FRONTEND_URL")
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENCRYPTION_KEY", "k")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("Expected JWT_SECRET error, got %v", err)
	}

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ENCRYPTION_KEY", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ENCRYPTION_KEY") {
		t.Errorf("Expected ENCRYPTION_KEY error, got %v", err)
	}
}

func TestIsDevelopment(t *testing.T) {
	prod := &Config{FrontendURL: "https://roddle.example.com"}
	if prod.IsDevelopment() {
		t.Error("Expected production mode for public frontend URL")
	}
	dev := &Config{FrontendURL: "http://localhost:5173"}
	if !dev.IsDevelopment() {
		t.Error("Expected development mode for localhost frontend URL")
	}
}
