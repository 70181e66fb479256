// Package app provides application initialization and dependency
// wiring. Setup builds the loader, provider registry, session state
// and turn handler from configuration; Close releases what Setup
// acquired.
package app

import (
	"log/slog"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/provider"
	"github.com/lcrdev/docchat/internal/session"
)

// App is the core application container.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Loader   *document.Loader
	Registry *provider.Registry
	State    *session.State
	Handler  *chat.Handler

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	if a.Logger != nil {
		a.Logger.Info("application shut down")
	}
	return nil
}
