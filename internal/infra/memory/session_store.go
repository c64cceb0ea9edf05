package memory

import (
	"sync"

	"certprep-study-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Acquire returns the profile's session, building it on first use, and retains it.
func (s *SessionStore) Acquire(profileID string, build func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[profileID]; ok {
		session.Retain()
		return session
	}
	session := build()
	session.Retain()
	s.sessions[profileID] = session
	return session
}

func (s *SessionStore) Get(profileID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[profileID]
	return session, ok
}

// DeleteIfIdle drops and closes the session once no connection is attached.
func (s *SessionStore) DeleteIfIdle(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[profileID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, profileID)
		session.Close()
	}
}

// Len is the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
