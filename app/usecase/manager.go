package usecase

import "sync"

// SessionManager owns the live sessions in server mode. Each session stays
// single-threaded internally; the manager only hands out references.
type SessionManager struct {
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

func (m *SessionManager) Create() *Session {
	s := NewSession(m.deps)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove stops and forgets the session. Unknown ids are a no-op.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Stop()
	}
}
