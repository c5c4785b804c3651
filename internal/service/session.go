package service

import "sync"

// Session holds the current-user pointer for one caller.
//
// A persistent session mirrors every login and logout into the
// intan_current_user storage key; a transport-scoped session (for example one
// rebuilt from an HTTP cookie) lives only in memory.
type Session struct {
	mu         sync.RWMutex
	userID     string
	persistent bool
}

// NewSession creates a transport-scoped session for userID. An empty id means logged out.
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// IsLoggedIn reports whether a current user is set
func (s *Session) IsLoggedIn() bool {
	return s.CurrentUserID() != ""
}

// CurrentUserID returns the current user id, or "" when logged out
func (s *Session) CurrentUserID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) set(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}
