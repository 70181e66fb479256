package sse

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriterSetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := NewWriter(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

func TestWriteChunk(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteChunk(context.Background(), "hello"))
	assert.Equal(t, "event: chunk\ndata: {\"text\":\"hello\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriteChunkEscapesNewlines(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteChunk(context.Background(), "line1\nline2"))
	// JSON encoding keeps the payload on a single data line.
	assert.Contains(t, rec.Body.String(), `data: {"text":"line1\nline2"}`)
}

func TestWriteChunkCanceledContext(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, w.WriteChunk(ctx, "hello"))
	assert.Empty(t, rec.Body.String())
}

func TestWriteDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteDone(context.Background(), "full reply"))
	assert.Equal(t, "event: done\ndata: {\"response\":\"full reply\"}\n\n", rec.Body.String())
}

func TestWriteErrorIgnoresContext(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteError("provider_error", "stream reset"))
	assert.Equal(t, "event: error\ndata: {\"code\":\"provider_error\",\"message\":\"stream reset\"}\n\n", rec.Body.String())
}
