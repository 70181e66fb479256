// Package api exposes the conversation session over a JSON HTTP API
// with SSE streaming for chat replies.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/provider"
	"github.com/lcrdev/docchat/internal/session"
)

// ProviderCatalog lists the known providers and constructs chat clients
// for them. *provider.Registry satisfies it.
type ProviderCatalog interface {
	List() []provider.Info
	Models(provider string) ([]string, error)
	NewClient(ctx context.Context, provider, modelID, apiKey string) (provider.ChatClient, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Loader      *document.Loader // Required
	Registry    ProviderCatalog  // Required
	State       *session.State   // Required
	Handler     *chat.Handler    // Required
	Limiter     *rate.Limiter    // Optional: paces model invocations
	CORSOrigins []string         // Allowed origins for CORS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Loader == nil {
		return nil, errors.New("document loader is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("provider registry is required")
	}
	if cfg.State == nil {
		return nil, errors.New("session state is required")
	}
	if cfg.Handler == nil {
		return nil, errors.New("chat handler is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sh := &sessionHandler{
		loader:   cfg.Loader,
		registry: cfg.Registry,
		state:    cfg.State,
		limiter:  cfg.Limiter,
		logger:   logger,
	}

	ch := &chatHandler{
		handler: cfg.Handler,
		state:   cfg.State,
		logger:  logger,
	}

	mux := http.NewServeMux()

	// Provider catalog and credentials
	mux.HandleFunc("GET /api/v1/providers", sh.listProviders)
	mux.HandleFunc("PUT /api/v1/keys", sh.setKey)

	// Session lifecycle
	mux.HandleFunc("POST /api/v1/initialize", sh.initialize)
	mux.HandleFunc("GET /api/v1/session", sh.getSession)

	// Chat
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)

	// History
	mux.HandleFunc("GET /api/v1/history", ch.getHistory)
	mux.HandleFunc("POST /api/v1/history/clear", ch.clearHistory)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → Routes
	// RequestID must be before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
