package form

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// Session holds one client's edit-form state. State access goes through
// With so HTTP and websocket writers never race on the same form.
type Session struct {
	ID           string
	CreatedAt    time.Time
	lastActiveAt time.Time

	mu    sync.Mutex
	state *types.FormState
}

// NewSession wraps a loaded form state in a fresh session.
func NewSession(state *types.FormState) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		lastActiveAt: now,
		state:        state,
	}
}

// With runs fn with exclusive access to the form state and refreshes the
// session's activity timestamp.
func (s *Session) With(fn func(*types.FormState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
	return fn(s.state)
}

// IsExpired reports whether the session exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle reports whether the session has been inactive past the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActiveAt) > timeout
}

// Manager handles edit-session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create registers a new session around the given state.
func (m *Manager) Create(state *types.FormState) *Session {
	s := NewSession(state)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
		}
	}
}
