package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/provider"
	"github.com/lcrdev/docchat/internal/session"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	a.Loader = document.NewLoader(cfg.Scraper, logger)
	a.Registry = provider.NewRegistry(cfg, logger)
	a.State = session.New(cfg.APIKeys())

	handler, err := chat.NewHandler(chat.HandlerConfig{
		State:           a.State,
		Logger:          logger,
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	})
	if err != nil {
		a.otelCleanup()
		return nil, fmt.Errorf("building turn handler: %w", err)
	}
	a.Handler = handler

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before any genkit
// initialization, registering the span processor with genkit's
// TracerProvider. Disabled entirely when no endpoint is configured.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	tc := cfg.Tracing
	if tc.Endpoint == "" {
		return func() {}
	}

	// Set OTEL env vars for genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this runs exactly
	// once during startup, before goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(tc.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", tc.Endpoint,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
