package provider

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/log"
)

func testRegistry() *Registry {
	cfg := &config.Config{OllamaHost: "http://localhost:11434"}
	return NewRegistry(cfg, log.NewNop())
}

func TestProviders_Order(t *testing.T) {
	r := testRegistry()

	want := []string{
		config.ProviderGroq,
		config.ProviderOpenAI,
		config.ProviderGoogleAI,
		config.ProviderOllama,
	}
	if got := r.Providers(); !slices.Equal(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}
}

func TestModels(t *testing.T) {
	r := testRegistry()

	models, err := r.Models(config.ProviderGroq)
	if err != nil {
		t.Fatalf("Models(groq) error: %v", err)
	}
	if len(models) == 0 || models[0] != "llama-3.1-8b-instant" {
		t.Errorf("Models(groq) = %v", models)
	}

	// The returned slice is a copy; mutating it must not corrupt the table.
	models[0] = "mutated"
	again, _ := r.Models(config.ProviderGroq)
	if again[0] != "llama-3.1-8b-instant" {
		t.Error("Models() exposed internal slice")
	}
}

func TestModels_UnknownProvider(t *testing.T) {
	r := testRegistry()

	_, err := r.Models("replicate")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestNewClient_Groq(t *testing.T) {
	r := testRegistry()

	c, err := r.NewClient(context.Background(), config.ProviderGroq, "llama-3.1-8b-instant", "gsk-test")
	if err != nil {
		t.Fatalf("NewClient(groq) error: %v", err)
	}

	gc, ok := c.(*Client)
	if !ok {
		t.Fatalf("client type = %T, want *Client", c)
	}
	if got := gc.Model(); got != "groq/llama-3.1-8b-instant" {
		t.Errorf("Model() = %q, want %q", got, "groq/llama-3.1-8b-instant")
	}
}

func TestNewClient_Validation(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		model    string
		key      string
		wantErr  error
	}{
		{"unknown provider", "replicate", "x", "k", ErrUnknownProvider},
		{"empty key", config.ProviderGroq, "llama-3.1-8b-instant", "", ErrClientConstruction},
		{"unknown model", config.ProviderGroq, "gpt-4o", "gsk_key", ErrClientConstruction},
		{"openai empty key", config.ProviderOpenAI, "gpt-4o", "", ErrClientConstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.NewClient(ctx, tt.provider, tt.model, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewClient error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
