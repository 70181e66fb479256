// Package session holds the mutable conversation state shared by the
// CLI and the HTTP API: the active pipeline, the loaded document, the
// conversation memory, and per-provider API keys.
package session

import (
	"sync"

	"github.com/lcrdev/docchat/internal/chat"
	"github.com/lcrdev/docchat/internal/document"
	"github.com/lcrdev/docchat/internal/memory"
)

// State is the single source of truth for one conversation session.
// All fields are guarded by one mutex, so initialize, clear and
// snapshot are atomic with respect to each other.
//
// The zero value is not usable; construct with New.
type State struct {
	mu       sync.RWMutex
	pipeline *chat.Pipeline
	document *document.Document
	memory   *memory.Memory
	apiKeys  map[string]string
}

// New returns an empty State with no document loaded. Keys present in
// apiKeys seed the per-provider key store; a nil map is fine.
func New(apiKeys map[string]string) *State {
	keys := make(map[string]string, len(apiKeys))
	for p, k := range apiKeys {
		if k != "" {
			keys[p] = k
		}
	}
	return &State{
		memory:  memory.New(),
		apiKeys: keys,
	}
}

// Initialize installs a new pipeline and document, replacing any
// previous ones. The conversation memory is preserved across
// re-initialization so the user can switch documents mid-conversation.
func (s *State) Initialize(pipeline *chat.Pipeline, doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = pipeline
	s.document = &doc
}

// Snapshot returns the pipeline, document and memory under one lock.
// ok is false until Initialize has been called.
func (s *State) Snapshot() (*chat.Pipeline, document.Document, *memory.Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pipeline == nil || s.document == nil {
		return nil, document.Document{}, nil, false
	}
	return s.pipeline, *s.document, s.memory, true
}

// Initialized reports whether a document and pipeline are loaded.
func (s *State) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline != nil
}

// Document returns the loaded document, if any.
func (s *State) Document() (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.document == nil {
		return document.Document{}, false
	}
	return *s.document, true
}

// Memory returns the current conversation memory. The returned value
// stays valid until ClearHistory replaces it.
func (s *State) Memory() *memory.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory
}

// ClearHistory replaces the conversation memory wholesale. An
// in-flight turn holding the old memory finishes against it and its
// appends are discarded with it.
func (s *State) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = memory.New()
}

// SetAPIKey stores an API key for a provider. An empty key removes
// the stored one.
func (s *State) SetAPIKey(provider, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		delete(s.apiKeys, provider)
		return
	}
	s.apiKeys[provider] = key
}

// APIKey returns the stored key for a provider.
func (s *State) APIKey(provider string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.apiKeys[provider]
	return k, ok
}
