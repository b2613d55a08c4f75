// Package conversation drives the per-sender intake dialogue: a sender asks
// to send a message, the next text they write is classified and recorded.
package conversation

import (
	"sync"
	"time"
)

// State is the position of one sender in the dialogue.
type State string

// Dialogue states. A sender without a session is idle.
const (
	StateIdle            State = "idle"
	StateAwaitingRequest State = "awaiting_request"
)

// SessionStore keeps the dialogue state per sender. Implementations must be
// safe for concurrent use.
type SessionStore interface {
	Get(sender int64) State
	Set(sender int64, state State)
	// CompareAndSwap sets state to next only if it currently equals old and
	// reports whether it did.
	CompareAndSwap(sender int64, old, next State) bool
}

type session struct {
	state        State
	lastActivity time.Time
}

// MemoryStore is an in-process SessionStore. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
	now      func() time.Time
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithClock overrides the time source used for activity tracking.
func WithClock(now func() time.Time) StoreOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	m := &MemoryStore{sessions: make(map[int64]*session), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the state of sender, StateIdle when unknown.
func (m *MemoryStore) Get(sender int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sender]; ok {
		return s.state
	}
	return StateIdle
}

// Set stores state for sender. Idle senders are dropped from the map.
func (m *MemoryStore) Set(sender int64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setLocked(sender, state)
}

// CompareAndSwap implements SessionStore.
func (m *MemoryStore) CompareAndSwap(sender int64, old, next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := StateIdle
	if s, ok := m.sessions[sender]; ok {
		current = s.state
	}
	if current != old {
		return false
	}
	m.setLocked(sender, next)
	return true
}

func (m *MemoryStore) setLocked(sender int64, state State) {
	if state == StateIdle {
		delete(m.sessions, sender)
		return
	}
	m.sessions[sender] = &session{state: state, lastActivity: m.now()}
}

// EvictIdle drops sessions without activity for longer than maxIdle and
// returns how many were removed.
func (m *MemoryStore) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for sender, s := range m.sessions {
		if now.Sub(s.lastActivity) > maxIdle {
			delete(m.sessions, sender)
			removed++
		}
	}
	return removed
}

// Len returns the number of non-idle sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}
