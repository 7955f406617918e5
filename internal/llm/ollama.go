package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// Local generation can be slow on CPU-only hosts.
	ollamaGenerateTimeout = 120 * time.Second
	// Model downloads are multi-gigabyte.
	ollamaPullTimeout = 600 * time.Second
)

// OllamaClient talks to an Ollama-compatible local inference service.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
	pullClient *http.Client
}

// NewOllamaClient creates a client for the service at baseURL
// (e.g. "http://127.0.0.1:11434").
func NewOllamaClient(baseURL string) *OllamaClient {
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: ollamaGenerateTimeout},
		pullClient: &http.Client{Timeout: ollamaPullTimeout},
	}
}

type ollamaTagsResponse struct {
	Models []ModelInfo `json:"models"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// ListModels returns the models the service reports via /api/tags.
func (c *OllamaClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build tags request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tags returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return tags.Models, nil
}

// IsAvailable probes the service with a list-models call. If the configured
// model name is not among the returned tags the probe still reports
// available, because tag naming is unreliable; the mismatch is logged so
// operators can spot it.
func (c *OllamaClient) IsAvailable(ctx context.Context, model string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		slog.Warn("Ollama availability probe failed", "error", err)
		return false
	}

	for _, m := range models {
		if strings.Contains(m.Name, model) {
			return true
		}
	}

	slog.Warn("Configured model not found in Ollama tags, proceeding anyway",
		"model", model, "available", len(models))
	return true
}

// Pull asks the service to download the named model. Blocks until the
// service reports completion or the pull timeout elapses.
func (c *OllamaClient) Pull(ctx context.Context, name string) error {
	body, err := json.Marshal(ollamaPullRequest{Name: name, Stream: false})
	if err != nil {
		return fmt.Errorf("marshal pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.pullClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: pull returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	slog.Info("Model pull completed", "model", name)
	return nil
}

// Generate runs one completion with fixed sampling parameters and returns
// the raw text.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	payload := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.8,
			"top_p":       0.9,
			"num_predict": 200,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Info("Requesting local generation", "model", model)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: generate returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var gen ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	text := strings.TrimSpace(gen.Response)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
