// Package llm provides the riddle generation backends and the orchestrator
// that selects between them.
//
// Three backends exist: a local inference service (Ollama-compatible HTTP
// API) and two key-authenticated remote providers. All of them return raw
// model text; parsing the text into a riddle/answer pair is the parser's
// job, never the adapter's.
package llm

import (
	"context"
	"errors"
)

// Failure taxonomy. Adapter and parser failures propagate unchanged to the
// orchestrator's caller; there is no silent substitution of content and no
// cross-backend fallback.
var (
	// ErrAuthRequired means the selected remote provider needs an API key
	// and none was supplied.
	ErrAuthRequired = errors.New("api key required for selected model")

	// ErrBackendUnavailable means the local inference service could not be
	// reached or answered with a non-2xx status.
	ErrBackendUnavailable = errors.New("inference backend unavailable")

	// ErrProviderError means a remote provider answered with a non-2xx
	// status.
	ErrProviderError = errors.New("provider returned an error")

	// ErrProviderUnavailable means a remote provider could not be reached.
	ErrProviderUnavailable = errors.New("provider unreachable")

	// ErrEmptyResponse means the backend answered successfully but with
	// blank text.
	ErrEmptyResponse = errors.New("backend returned empty response")

	// ErrMalformedResponse means the generated text did not follow the
	// RIDDLE:/ANSWER: contract.
	ErrMalformedResponse = errors.New("malformed generation response")
)

// Provider identifies which backend serves a model identifier.
type Provider string

const (
	ProviderLocal     Provider = "local"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ModelInfo describes one model known to the local inference service.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// LocalBackend is the capability set of the local inference service.
type LocalBackend interface {
	// IsAvailable probes the service. A configured-model/tag mismatch is
	// tolerated (tag matching is unreliable) and only logged.
	IsAvailable(ctx context.Context, model string) bool

	// ListModels returns the models the service reports.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Pull asks the service to download the named model.
	Pull(ctx context.Context, name string) error

	// Generate runs a single completion and returns the raw text.
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// RemoteBackend is a key-authenticated single-completion provider. The key
// is a call parameter on purpose: adapters hold no per-request mutable
// state.
type RemoteBackend interface {
	Generate(ctx context.Context, apiKey, model, prompt string) (string, error)
}
