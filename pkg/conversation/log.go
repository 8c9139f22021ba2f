// Package conversation holds a session's chat history and runs one chat turn at a
// time against a completion provider.
package conversation

import (
	"sync"

	"github.com/papercomputeco/chatterbox/pkg/llm"
)

// Log is an append-only, ordered record of turns for a single session.
// Turns are never reordered, deduplicated or edited in place.
type Log struct {
	mu    sync.RWMutex
	turns []llm.Turn
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds turn to the end of the log.
func (l *Log) Append(turn llm.Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, turn)
}

// Clear resets the log to empty.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = nil
}

// Snapshot returns a copy of the log, oldest turn first.
func (l *Log) Snapshot() []llm.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]llm.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.turns)
}

// truncate drops every turn after the first n.
func (l *Log) truncate(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < len(l.turns) {
		l.turns = l.turns[:n]
	}
}
