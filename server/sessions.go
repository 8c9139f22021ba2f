package server

import (
	"sync"
	"time"

	"github.com/papercomputeco/chatterbox/pkg/conversation"
)

// HandlerFactory creates the turn handler for a new session.
type HandlerFactory func() *conversation.Handler

// Sessions maps browser session IDs to their own conversation. Conversations idle
// for longer than the TTL are dropped, unless a reply is still pending.
type Sessions struct {
	ttl        time.Duration
	newHandler HandlerFactory
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	handler  *conversation.Handler
	lastSeen time.Time
}

// NewSessions returns an empty registry.
func NewSessions(ttl time.Duration, newHandler HandlerFactory) *Sessions {
	return &Sessions{
		ttl:        ttl,
		newHandler: newHandler,
		now:        time.Now,
		entries:    make(map[string]*sessionEntry),
	}
}

// Get returns the conversation for id, starting a new one if needed.
func (s *Sessions) Get(id string) *conversation.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{handler: s.newHandler()}
		s.entries[id] = e
	}
	e.lastSeen = now
	return e.handler
}

// Drop forgets the conversation for id.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

func (s *Sessions) sweep(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) <= s.ttl {
			continue
		}
		if e.handler.State() == conversation.StateAwaitingCompletion {
			continue
		}
		delete(s.entries, id)
	}
}
