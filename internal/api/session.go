package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/provider"
	"github.com/lcrdev/docchat/internal/session"
)

// maxUploadBytes bounds document uploads (multipart or embedded).
const maxUploadBytes = 32 << 20

// sessionHandler serves the provider catalog, credential storage, and
// session initialization.
type sessionHandler struct {
	loader   *document.Loader
	registry ProviderCatalog
	state    *session.State
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// listProviders returns all providers with their model lists.
// GET /api/v1/providers
func (h *sessionHandler) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.registry.List(),
	})
}

type setKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// setKey stores an API key for a provider in the session.
// PUT /api/v1/keys
func (h *sessionHandler) setKey(w http.ResponseWriter, r *http.Request) {
	var req setKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if _, err := h.registry.Models(req.Provider); err != nil {
		writeError(w, http.StatusBadRequest, "unknown_provider", "unknown provider: "+req.Provider)
		return
	}

	h.state.SetAPIKey(req.Provider, req.APIKey)
	h.logger.Info("api key stored", "provider", req.Provider)
	w.WriteHeader(http.StatusNoContent)
}

// initializeRequest is the JSON form of POST /api/v1/initialize.
// File-based source types use the multipart form instead.
type initializeRequest struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
}

type initializeResponse struct {
	SourceType   string `json:"source_type"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	ContentChars int    `json:"content_chars"`
}

// initialize loads a document and binds a provider/model to the
// session, replacing any previous pipeline and document.
// POST /api/v1/initialize
func (h *sessionHandler) initialize(w http.ResponseWriter, r *http.Request) {
	req, docReq, ok := h.parseInitialize(w, r)
	if !ok {
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey, _ = h.state.APIKey(req.Provider)
	}

	doc, err := h.loader.Load(r.Context(), docReq)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrUnsupportedSource):
			writeError(w, http.StatusBadRequest, "invalid_source_type", err.Error())
		case errors.Is(err, document.ErrLoad):
			writeError(w, http.StatusUnprocessableEntity, "document_load_failed", err.Error())
		default:
			h.logger.Error("document load failed", "error", err, "source_type", req.SourceType)
			writeError(w, http.StatusInternalServerError, "internal_error", "document load failed")
		}
		return
	}

	client, err := h.registry.NewClient(r.Context(), req.Provider, req.Model, apiKey)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			writeError(w, http.StatusBadRequest, "unknown_provider", err.Error())
		case errors.Is(err, provider.ErrClientConstruction):
			writeError(w, http.StatusBadRequest, "client_construction_failed", err.Error())
		default:
			h.logger.Error("client construction failed", "error", err, "provider", req.Provider)
			writeError(w, http.StatusInternalServerError, "internal_error", "client construction failed")
		}
		return
	}

	pipeline, err := chat.NewPipeline(chat.PipelineConfig{
		Client:  client,
		Logger:  h.logger,
		Limiter: h.limiter,
	})
	if err != nil {
		h.logger.Error("pipeline construction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "pipeline construction failed")
		return
	}

	h.state.Initialize(pipeline, doc)
	if req.APIKey != "" {
		h.state.SetAPIKey(req.Provider, req.APIKey)
	}

	h.logger.Info("session initialized",
		"source_type", doc.SourceType,
		"provider", req.Provider,
		"model", req.Model,
		"content_chars", utf8.RuneCountInString(doc.Content),
	)

	writeJSON(w, http.StatusOK, initializeResponse{
		SourceType:   string(doc.SourceType),
		Provider:     req.Provider,
		Model:        req.Model,
		ContentChars: utf8.RuneCountInString(doc.Content),
	})
}

// parseInitialize decodes either the JSON or the multipart form of the
// initialize request. It writes the error response itself when parsing
// fails.
func (h *sessionHandler) parseInitialize(w http.ResponseWriter, r *http.Request) (initializeRequest, document.Request, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		return h.parseInitializeMultipart(w, r)
	}

	var req initializeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return initializeRequest{}, document.Request{}, false
	}

	st, err := document.ParseSourceType(req.SourceType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_source_type", err.Error())
		return initializeRequest{}, document.Request{}, false
	}
	if !st.URLBased() {
		writeError(w, http.StatusBadRequest, "invalid_request", "file source types require a multipart upload")
		return initializeRequest{}, document.Request{}, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required for "+req.SourceType+" sources")
		return initializeRequest{}, document.Request{}, false
	}

	return req, document.Request{Type: st, URL: req.URL}, true
}

func (h *sessionHandler) parseInitializeMultipart(w http.ResponseWriter, r *http.Request) (initializeRequest, document.Request, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed multipart form")
		return initializeRequest{}, document.Request{}, false
	}

	req := initializeRequest{
		SourceType: r.FormValue("source_type"),
		Provider:   r.FormValue("provider"),
		Model:      r.FormValue("model"),
		APIKey:     r.FormValue("api_key"),
	}

	st, err := document.ParseSourceType(req.SourceType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_source_type", err.Error())
		return initializeRequest{}, document.Request{}, false
	}
	if st.URLBased() {
		writeError(w, http.StatusBadRequest, "invalid_request", "url source types take a JSON body, not an upload")
		return initializeRequest{}, document.Request{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file upload is required for "+req.SourceType+" sources")
		return initializeRequest{}, document.Request{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read upload")
		return initializeRequest{}, document.Request{}, false
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "upload exceeds size limit")
		return initializeRequest{}, document.Request{}, false
	}

	return req, document.Request{Type: st, Bytes: data, Filename: header.Filename}, true
}

type sessionResponse struct {
	Initialized  bool   `json:"initialized"`
	SourceType   string `json:"source_type,omitempty"`
	ContentChars int    `json:"content_chars,omitempty"`
	HistoryTurns int    `json:"history_turns"`
}

// getSession reports whether a document is loaded and how much history
// has accumulated.
// GET /api/v1/session
func (h *sessionHandler) getSession(w http.ResponseWriter, _ *http.Request) {
	resp := sessionResponse{
		Initialized:  h.state.Initialized(),
		HistoryTurns: h.state.Memory().Len(),
	}
	if doc, ok := h.state.Document(); ok {
		resp.SourceType = string(doc.SourceType)
		resp.ContentChars = utf8.RuneCountInString(doc.Content)
	}
	writeJSON(w, http.StatusOK, resp)
}
