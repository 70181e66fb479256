// Package sse provides Server-Sent Events utilities for streaming
// chat responses.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Writer wraps an http.ResponseWriter for SSE streaming. All payloads
// are JSON objects, one event per message.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a new SSE writer and sets appropriate headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// writeEvent marshals payload and writes one SSE event. JSON never
// contains raw newlines, so a single data line is always enough.
func (w *Writer) writeEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}

	w.flusher.Flush()
	return nil
}

// WriteChunk sends one streamed reply fragment.
func (w *Writer) WriteChunk(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	return w.writeEvent("chunk", map[string]string{"text": text})
}

// WriteDone sends the terminal event carrying the complete reply.
func (w *Writer) WriteDone(ctx context.Context, response string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context canceled: %w", ctx.Err())
	default:
	}

	return w.writeEvent("done", map[string]string{"response": response})
}

// WriteError sends an error event. It ignores context state so a
// failure can still be reported on a closing stream.
func (w *Writer) WriteError(code, message string) error {
	return w.writeEvent("error", map[string]string{"code": code, "message": message})
}
