package client

import "sync"

// SessionStore holds the current authenticated identity. It has a single
// writer contract: only the login and logout flows mutate it, everything
// else reads.
type SessionStore struct {
	mu       sync.RWMutex
	username string
	active   bool
}

// NewSessionStore returns an empty store with no identity.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Login records the authenticated identity. The value comes from the server
// response, never from the submitted form.
func (s *SessionStore) Login(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.active = true
}

// Clear drops the identity. Called on logout so the store never displays a
// stale logged-in user.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.active = false
}

// Current returns the identity and whether one is set.
func (s *SessionStore) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username, s.active
}
