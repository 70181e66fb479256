// Package memory holds the in-process conversation log for the active
// session.
//
// The log is append-only: turns are never edited or removed, only
// cleared wholesale. Only the turn handler appends to it; the session
// state may replace the whole instance on an explicit clear, which is
// observably equivalent to Clear().
package memory

import "sync"

// Role identifies the author of a conversation turn.
type Role string

// Valid roles. The set is closed; there is no system or tool role in
// the conversation log — system instructions live in the prompt
// template, not in history.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation.
// Created once, never mutated.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Memory is an ordered, append-only log of conversation turns.
// Insertion order defines both prompt history order and display order.
//
// Safe for concurrent use.
//
// The zero value is NOT useful - use New() to create instances.
type Memory struct {
	mu    sync.RWMutex
	turns []Turn
}

// New creates an empty conversation log.
func New() *Memory {
	return &Memory{turns: make([]Turn, 0)}
}

// AppendUser appends a user turn.
func (m *Memory) AppendUser(content string) {
	m.append(Turn{Role: RoleUser, Content: content})
}

// AppendAssistant appends an assistant turn.
func (m *Memory) AppendAssistant(content string) {
	m.append(Turn{Role: RoleAssistant, Content: content})
}

func (m *Memory) append(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
}

// Turns returns a copy of all turns in insertion order.
// The copy keeps callers from observing later appends mid-iteration.
func (m *Memory) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Turn, len(m.turns))
	copy(result, m.turns)
	return result
}

// Len returns the number of turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Clear removes all turns.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = make([]Turn, 0)
}
