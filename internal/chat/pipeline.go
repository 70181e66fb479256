package chat

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/memory"
	"github.com/lcrdev/docchat/internal/provider"
)

// fallbackReply is returned when the provider produces an empty
// response, so the caller always has something to record and display.
const fallbackReply = "I could not produce a response. Please try rephrasing your question."

// Vars carries the per-turn inputs bound into the prompt.
type Vars struct {
	Input           string
	History         []memory.Turn
	DocumentType    document.SourceType
	DocumentContent string
}

// PipelineConfig holds the dependencies for a Pipeline.
type PipelineConfig struct {
	Client  provider.ChatClient
	Logger  *slog.Logger
	Limiter *rate.Limiter // optional; paces invocations when set
}

func (c *PipelineConfig) validate() error {
	if c.Client == nil {
		return fmt.Errorf("chat client is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Pipeline binds a chat client to the persona prompt. It is immutable
// after construction; reconfiguring provider or model means building a
// new Pipeline.
type Pipeline struct {
	client  provider.ChatClient
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewPipeline validates the configuration and builds a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		client:  cfg.Client,
		logger:  cfg.Logger,
		limiter: cfg.Limiter,
	}, nil
}

// InvokeStreaming renders the prompt from vars and invokes the model,
// forwarding fragments to cb as they arrive. It returns the complete
// reply. Invocation failures, including mid-stream ones, are reported
// as ErrProviderInvocation.
func (p *Pipeline) InvokeStreaming(ctx context.Context, vars Vars, cb provider.StreamCallback) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %w", ErrProviderInvocation, err)
		}
	}

	prompt := provider.Prompt{
		System:  renderSystem(string(vars.DocumentType), vars.DocumentContent),
		History: vars.History,
		Input:   vars.Input,
	}

	reply, err := p.client.Generate(ctx, prompt, cb)
	if err != nil {
		p.logger.Error("model invocation failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrProviderInvocation, err)
	}

	if reply == "" {
		p.logger.Warn("model returned empty response, using fallback")
		reply = fallbackReply
	}

	return reply, nil
}
