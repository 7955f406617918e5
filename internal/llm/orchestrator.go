package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roddlehq/roddle/internal/domain"
	"github.com/roddlehq/roddle/internal/prompt"
)

// Orchestrator drives prompt building, backend selection, and response
// parsing for one generation request.
//
// The default model identifier is read-only process-wide configuration;
// per-request overrides travel as call parameters all the way down to the
// adapters. Nothing here mutates shared state between requests.
type Orchestrator struct {
	local        LocalBackend
	openai       RemoteBackend
	anthropic    RemoteBackend
	defaultModel string
}

// NewOrchestrator wires the three backends around a default local model.
func NewOrchestrator(local LocalBackend, openai, anthropic RemoteBackend, defaultModel string) *Orchestrator {
	return &Orchestrator{
		local:        local,
		openai:       openai,
		anthropic:    anthropic,
		defaultModel: defaultModel,
	}
}

// ResolveProvider maps a model identifier to the backend that serves it.
// "gpt-*" goes to OpenAI, "claude-*" to Anthropic, anything else to the
// local service with the identifier as the model name.
func ResolveProvider(model string) Provider {
	switch {
	case strings.HasPrefix(model, "gpt-"):
		return ProviderOpenAI
	case strings.HasPrefix(model, "claude-"):
		return ProviderAnthropic
	default:
		return ProviderLocal
	}
}

// Generate produces one parsed riddle/answer pair.
//
// A failure on the selected backend is terminal for the request: there is
// no automatic fallback to another backend, and parse failures surface
// unchanged rather than being patched with substitute content.
func (o *Orchestrator) Generate(ctx context.Context, difficulty domain.Difficulty, theme, preferredModel string, apiKeys map[string]string) (riddle, answer string, err error) {
	model := preferredModel
	if model == "" {
		model = o.defaultModel
	}

	instruction := prompt.Instruction(difficulty, theme)
	provider := ResolveProvider(model)

	slog.Info("Generating riddle",
		"difficulty", difficulty,
		"theme", theme,
		"provider", provider,
		"model", model)

	var raw string
	switch provider {
	case ProviderOpenAI:
		key := apiKeys["openai"]
		if key == "" {
			return "", "", fmt.Errorf("%w: model %s", ErrAuthRequired, model)
		}
		raw, err = o.openai.Generate(ctx, key, model, prompt.ForRemote(instruction))

	case ProviderAnthropic:
		key := apiKeys["anthropic"]
		if key == "" {
			return "", "", fmt.Errorf("%w: model %s", ErrAuthRequired, model)
		}
		raw, err = o.anthropic.Generate(ctx, key, model, prompt.ForRemote(instruction))

	default:
		if !o.local.IsAvailable(ctx, model) {
			slog.Warn("Local backend availability probe failed, attempting generation anyway", "model", model)
		}
		raw, err = o.local.Generate(ctx, model, prompt.ForLocal(instruction))
	}

	if err != nil {
		return "", "", err
	}

	riddle, answer, err = ParseRiddle(raw)
	if err != nil {
		slog.Error("Generation output failed to parse", "provider", provider, "model", model, "error", err)
		return "", "", err
	}

	return riddle, answer, nil
}
