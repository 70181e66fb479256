package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/memory"
	"github.com/lcrdev/docchat/internal/session"
	"github.com/lcrdev/docchat/internal/sse"
)

// chatHandler serves conversation turns and history.
type chatHandler struct {
	handler *chat.Handler
	state   *session.State
	logger  *slog.Logger
}

type streamRequest struct {
	Message string `json:"message"`
}

// stream runs one conversation turn over SSE.
// POST /api/v1/chat/stream
//
// Events: "chunk" {text} per fragment, then "done" {response}, or
// "error" {code,message}. Failures before the stream opens are plain
// JSON errors; failures after are reported as error events because
// the 200 status is already on the wire.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	if !h.state.Initialized() {
		writeError(w, http.StatusConflict, "not_initialized", "load a document before chatting")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	ctx := r.Context()
	reply, err := h.handler.Submit(ctx, req.Message, func(ctx context.Context, fragment string) error {
		return writer.WriteChunk(ctx, fragment)
	})
	if err != nil {
		code := "provider_error"
		if errors.Is(err, chat.ErrNotInitialized) {
			code = "not_initialized"
		}
		h.logger.Error("turn failed", "error", err)
		if werr := writer.WriteError(code, err.Error()); werr != nil {
			h.logger.Debug("failed to write error event", "error", werr)
		}
		return
	}

	if err := writer.WriteDone(ctx, reply); err != nil {
		h.logger.Debug("failed to write done event", "error", err)
	}
}

type historyResponse struct {
	Turns []memory.Turn `json:"turns"`
}

// getHistory returns the full conversation transcript in order.
// GET /api/v1/history
func (h *chatHandler) getHistory(w http.ResponseWriter, _ *http.Request) {
	turns := h.state.Memory().Turns()
	if turns == nil {
		turns = []memory.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Turns: turns})
}

// clearHistory discards the conversation transcript. The loaded
// document and pipeline are untouched.
// POST /api/v1/history/clear
func (h *chatHandler) clearHistory(w http.ResponseWriter, _ *http.Request) {
	h.state.ClearHistory()
	h.logger.Info("conversation history cleared")
	w.WriteHeader(http.StatusNoContent)
}
