// Package flow provides the per-caller conversation state machine and the
// menu-driven message dispatcher.
package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
)

// SessionStore keeps per-caller conversation state between independent
// messages. Implementations must be safe for concurrent callers; state for
// different callers is never shared.
type SessionStore interface {
	// Get returns the caller's state, or a zero NONE state if none is held.
	Get(callerID string) models.ConversationState
	// Set replaces the caller's state.
	Set(callerID string, state models.ConversationState)
	// Clear removes the caller's state entirely.
	Clear(callerID string)
}

// InMemorySessionStore is a mutex-guarded map of caller id to conversation
// state. Entries never expire on their own: an abandoned multi-turn entry
// stays until the caller backs out or completes it.
type InMemorySessionStore struct {
	mu     sync.RWMutex
	states map[string]models.ConversationState
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{states: make(map[string]models.ConversationState)}
}

func (s *InMemorySessionStore) Get(callerID string) models.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[callerID]; ok {
		return state
	}
	return models.ConversationState{Mode: models.ModeNone}
}

func (s *InMemorySessionStore) Set(callerID string, state models.ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.UpdatedAt = time.Now()
	s.states[callerID] = state
	slog.Debug("SessionStore state set", "caller", callerID, "mode", state.Mode)
}

func (s *InMemorySessionStore) Clear(callerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, callerID)
	slog.Debug("SessionStore state cleared", "caller", callerID)
}
