package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	oai "github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/openai/openai-go/option"

	"github.com/lcrdev/docchat/internal/memory"
)

// groqBaseURL is Groq's OpenAI-compatible endpoint.
const groqBaseURL = "https://api.groq.com/openai/v1"

// Client wraps a Genkit instance bound to one provider-qualified model.
// Each initialize action builds a fresh Client; nothing is shared
// between re-initializations.
type Client struct {
	g     *genkit.Genkit
	model string // provider-qualified, e.g. "groq/llama-3.1-8b-instant"
}

// Model returns the provider-qualified model name the client is bound to.
func (c *Client) Model() string { return c.model }

// Generate renders the prompt into Genkit messages and invokes the model.
// Fragments reach cb as the model produces them; the accumulated reply
// is returned once the stream completes. Errors are returned unwrapped
// for the caller to classify.
func (c *Client) Generate(ctx context.Context, p Prompt, cb StreamCallback) (string, error) {
	msgs := make([]*ai.Message, 0, len(p.History)+1)
	for _, t := range p.History {
		switch t.Role {
		case memory.RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(t.Content)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(t.Content)))
		}
	}
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(p.Input)))

	opts := []ai.GenerateOption{
		ai.WithSystem(p.System),
		ai.WithMessages(msgs...),
		ai.WithModelName(c.model),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				if err := cb(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", c.model, err)
	}
	return resp.Text(), nil
}

// newGroqClient wires Groq through the OpenAI-compatible plugin with
// Groq's base URL. Groq has no dedicated plugin; its API is
// OpenAI-compatible by design.
func newGroqClient(ctx context.Context, modelID, apiKey string) (ChatClient, error) {
	plugin := &compat_oai.OpenAICompatible{
		Provider: "groq",
		Opts: []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithBaseURL(groqBaseURL),
		},
	}
	g := genkit.Init(ctx, genkit.WithPlugins(plugin))
	if g == nil {
		return nil, errors.New("initializing genkit with groq provider")
	}

	// Compat models are not auto-discovered; register the chosen one.
	// DefineModel on the compat plugin reports failure with a nil model.
	model := plugin.DefineModel("groq", modelID, ai.ModelOptions{
		Label: "Groq " + modelID,
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	})
	if model == nil {
		return nil, fmt.Errorf("defining groq model %q", modelID)
	}

	return &Client{g: g, model: "groq/" + modelID}, nil
}

// newOpenAIClient wires the OpenAI plugin.
func newOpenAIClient(ctx context.Context, modelID, apiKey string) (ChatClient, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&oai.OpenAI{APIKey: apiKey}))
	if g == nil {
		return nil, errors.New("initializing genkit with openai provider")
	}
	return &Client{g: g, model: "openai/" + modelID}, nil
}

// newGoogleAIClient wires the Google AI plugin.
func newGoogleAIClient(ctx context.Context, modelID, apiKey string) (ChatClient, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: apiKey}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	return &Client{g: g, model: "googleai/" + modelID}, nil
}

// newOllamaClient wires a local Ollama server.
// Ollama requires explicit model registration (no auto-discovery).
func newOllamaClient(ctx context.Context, modelID, host string) (ChatClient, error) {
	plugin := &ollama.Ollama{ServerAddress: host}
	g := genkit.Init(ctx, genkit.WithPlugins(plugin))
	if g == nil {
		return nil, errors.New("initializing genkit with ollama provider")
	}
	plugin.DefineModel(g, ollama.ModelDefinition{Name: modelID, Type: "chat"}, nil)
	return &Client{g: g, model: "ollama/" + modelID}, nil
}

// NewClientForModel binds an existing Genkit instance to a
// provider-qualified model name. Used by tests to point the pipeline at
// a registered mock model.
func NewClientForModel(g *genkit.Genkit, model string) *Client {
	return &Client{g: g, model: model}
}
