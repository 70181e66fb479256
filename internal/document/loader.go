package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcrdev/docchat/internal/config"
)

// Loader turns a load request into a normalized Document.
//
// Each source type maps one-to-one to a loader method; an unknown type
// fails with ErrUnsupportedSource rather than being skipped.
type Loader struct {
	scraper config.ScraperConfig
	client  *http.Client // transcript and caption fetches
	logger  *slog.Logger
}

// NewLoader creates a Loader.
// A nil logger falls back to slog.Default().
func NewLoader(scraper config.ScraperConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		scraper: scraper,
		client:  &http.Client{Timeout: time.Duration(scraper.TimeoutMs) * time.Millisecond},
		logger:  logger,
	}
}

// Load produces a Document for the request, dispatching on source type.
// All failures wrap ErrLoad except an unknown type, which wraps
// ErrUnsupportedSource. The returned document's SourceType always
// equals the request's.
func (l *Loader) Load(ctx context.Context, req Request) (Document, error) {
	start := time.Now()

	var (
		content string
		err     error
	)
	switch req.Type {
	case Site:
		content, err = l.loadSite(ctx, req.URL)
	case Video:
		content, err = l.loadVideo(ctx, req.URL)
	case Pdf:
		content, err = l.loadPdf(req.Bytes)
	case Csv:
		content, err = l.loadCsv(req.Bytes)
	case Text:
		content, err = l.loadText(req.Bytes)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedSource, req.Type)
	}
	if err != nil {
		return Document{}, err
	}

	l.logger.Debug("document loaded",
		"type", req.Type,
		"content_bytes", len(content),
		"elapsed", time.Since(start),
	)

	return Document{SourceType: req.Type, Content: content}, nil
}
