package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager keeps at most one live Session per attempt so a reconnecting
// WebSocket resumes the same countdown instead of forking a second one.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

// Get returns the live session for an attempt, if any.
func (m *Manager) Get(attemptID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[attemptID]
	return s, ok
}

// GetOrCreate returns the existing session for the attempt or builds one with
// the supplied constructor. The constructor runs under the manager lock so
// two connections racing on the same attempt cannot both build.
func (m *Manager) GetOrCreate(attemptID uuid.UUID, build func() (*Session, error)) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[attemptID]; ok {
		return s, false, nil
	}
	s, err := build()
	if err != nil {
		return nil, false, err
	}
	m.sessions[attemptID] = s
	return s, true, nil
}

// Remove drops the session and stops its countdown.
func (m *Manager) Remove(attemptID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[attemptID]
	if ok {
		delete(m.sessions, attemptID)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// Shutdown stops every live countdown. Called on server exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
