// Package provider maps provider names to chat-capable model clients.
//
// The registry is a static table fixed at construction; providers and
// their model lists never change at runtime. ChatClient is the minimal
// capability the conversation core needs from any provider: a fully
// rendered prompt in, a reply out — either whole or as a stream of
// text fragments.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/memory"
)

// Sentinel errors for registry operations.
var (
	// ErrUnknownProvider indicates the provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrClientConstruction indicates the factory rejected the model ID
	// or the credential is structurally invalid.
	ErrClientConstruction = errors.New("client construction failed")
)

// StreamCallback is called for each text fragment of a streaming reply.
// Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, fragment string) error

// Prompt is the fully rendered input to a chat model: system
// instructions (persona + document context), replayed history, and the
// new user input.
type Prompt struct {
	System  string
	History []memory.Turn
	Input   string
}

// ChatClient is the invocation capability required from any provider.
// If cb is non-nil, fragments are surfaced through it as they are
// produced; the complete reply is always returned after generation
// finishes. Implementations do not retry — a provider failure is the
// caller's to surface.
type ChatClient interface {
	Generate(ctx context.Context, p Prompt, cb StreamCallback) (string, error)
}

// factory constructs a ChatClient for one provider.
type factory func(ctx context.Context, modelID, apiKey string) (ChatClient, error)

// entry is one row of the static provider table.
type entry struct {
	name    string
	models  []string
	keyless bool // local providers need a host, not a credential
	build   factory
}

// Registry is the static provider → models/factory table.
// Read-only after construction; safe for concurrent use.
type Registry struct {
	entries []entry
	logger  *slog.Logger
}

// NewRegistry builds the provider table.
// Model lists are fixed; ollama's host comes from configuration.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{logger: logger}
	r.entries = []entry{
		{
			name:   config.ProviderGroq,
			models: []string{"llama-3.1-8b-instant", "gemma2-9b-it", "deepseek-r1-distill-llama-70b", "whisper-large-v3-turbo"},
			build:  newGroqClient,
		},
		{
			name:   config.ProviderOpenAI,
			models: []string{"gpt-4o-mini", "gpt-4o", "o1-preview", "o1-mini"},
			build:  newOpenAIClient,
		},
		{
			name:   config.ProviderGoogleAI,
			models: []string{"gemini-2.5-flash", "gemini-2.5-pro"},
			build:  newGoogleAIClient,
		},
		{
			name:    config.ProviderOllama,
			models:  []string{"gemma3:latest", "llama3:latest"},
			keyless: true,
			build: func(ctx context.Context, modelID, _ string) (ChatClient, error) {
				return newOllamaClient(ctx, modelID, cfg.OllamaHost)
			},
		},
	}
	return r
}

// Info describes one provider for listing surfaces.
type Info struct {
	Name        string   `json:"name"`
	Models      []string `json:"models"`
	RequiresKey bool     `json:"requires_key"`
}

// List returns all providers with their model lists, in display order.
func (r *Registry) List() []Info {
	infos := make([]Info, len(r.entries))
	for i, e := range r.entries {
		models := make([]string, len(e.models))
		copy(models, e.models)
		infos[i] = Info{Name: e.name, Models: models, RequiresKey: !e.keyless}
	}
	return infos
}

// Providers returns provider names in display order.
func (r *Registry) Providers() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Models returns the model IDs offered by a provider, in display order.
func (r *Registry) Models(provider string) ([]string, error) {
	e, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}
	models := make([]string, len(e.models))
	copy(models, e.models)
	return models, nil
}

// NewClient constructs a chat client for the given provider and model.
// The credential must be non-empty unless the provider is keyless; the
// model ID must be one the provider offers.
func (r *Registry) NewClient(ctx context.Context, provider, modelID, apiKey string) (ChatClient, error) {
	e, err := r.lookup(provider)
	if err != nil {
		return nil, err
	}

	if !e.keyless && apiKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrClientConstruction, provider)
	}
	if !contains(e.models, modelID) {
		return nil, fmt.Errorf("%w: provider %s does not offer model %q", ErrClientConstruction, provider, modelID)
	}

	client, err := e.build(ctx, modelID, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientConstruction, err)
	}

	r.logger.Info("chat client constructed", "provider", provider, "model", modelID)
	return client, nil
}

func (r *Registry) lookup(provider string) (entry, error) {
	for _, e := range r.entries {
		if e.name == provider {
			return e, nil
		}
	}
	return entry{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
