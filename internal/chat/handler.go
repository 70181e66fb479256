package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/memory"
)

// SessionState is the view of conversation state a Handler needs. It
// is satisfied by session.State.
type SessionState interface {
	// Snapshot returns the current pipeline, document and memory
	// under a single lock. ok is false until a document has been
	// loaded.
	Snapshot() (pipeline *Pipeline, doc document.Document, mem *memory.Memory, ok bool)
}

// HandlerConfig holds the dependencies for a Handler.
type HandlerConfig struct {
	State  SessionState
	Logger *slog.Logger

	// MaxHistoryTurns caps how many trailing turns are replayed into
	// each prompt. Zero or negative means unlimited.
	MaxHistoryTurns int
}

// Handler runs conversation turns against the session. It serializes
// turns with an internal mutex, so memory is only ever mutated by one
// completed turn at a time.
type Handler struct {
	state      SessionState
	logger     *slog.Logger
	maxHistory int

	mu sync.Mutex // serializes turns
}

// NewHandler builds a Handler over the given session state.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.State == nil {
		return nil, fmt.Errorf("session state is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Handler{
		state:      cfg.State,
		logger:     cfg.Logger,
		maxHistory: cfg.MaxHistoryTurns,
	}, nil
}

// Submit runs one conversation turn. Fragments are forwarded to sink
// as they arrive (sink may be nil for buffered callers), and the
// complete reply is returned.
//
// Memory is only updated when the turn fully succeeds: first the user
// input is appended, then the reply. On any failure memory is left
// untouched, so the failed turn never contaminates later prompts.
func (h *Handler) Submit(ctx context.Context, input string, sink func(ctx context.Context, fragment string) error) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pipeline, doc, mem, ok := h.state.Snapshot()
	if !ok {
		return "", ErrNotInitialized
	}

	// History is snapshotted before the invocation; a concurrent
	// clear does not alter the prompt of an in-flight turn.
	history := mem.Turns()
	if h.maxHistory > 0 && len(history) > h.maxHistory {
		history = history[len(history)-h.maxHistory:]
	}
	vars := Vars{
		Input:           input,
		History:         history,
		DocumentType:    doc.SourceType,
		DocumentContent: doc.Content,
	}

	reply, err := pipeline.InvokeStreaming(ctx, vars, sink)
	if err != nil {
		return "", err
	}

	mem.AppendUser(input)
	mem.AppendAssistant(reply)

	h.logger.Debug("turn completed",
		"input_len", len(input),
		"reply_len", len(reply),
		"history_turns", mem.Len(),
	)

	return reply, nil
}
