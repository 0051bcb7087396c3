package stream

import (
	"sync"
	"time"

	"mcpbridge/internal/domain"
)

// Session tracks one open stream. Only the goroutine serving the stream
// mutates it; Snapshot may be called from anywhere.
type Session struct {
	mu            sync.RWMutex
	id            string
	openedAt      time.Time
	lastHeartbeat time.Time
	state         domain.SessionState
}

// SessionInfo is a point-in-time copy of a session.
type SessionInfo struct {
	ID            string              `json:"id"`
	OpenedAt      time.Time           `json:"openedAt"`
	LastHeartbeat time.Time           `json:"lastHeartbeat,omitempty"`
	State         domain.SessionState `json:"state"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, openedAt: now, state: domain.SessionInit}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Snapshot() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionInfo{
		ID:            s.id,
		OpenedAt:      s.openedAt,
		LastHeartbeat: s.lastHeartbeat,
		State:         s.state,
	}
}

// transition moves the session forward. Terminal states are sticky.
func (s *Session) transition(next domain.SessionState) (domain.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	if prev.Terminal() {
		return prev, false
	}
	s.state = next
	return prev, true
}

func (s *Session) beat(now time.Time) {
	s.mu.Lock()
	s.lastHeartbeat = now
	s.mu.Unlock()
}
