package authsdk

import (
	"context"
	"sync"
)

// Session tracks a logged-in user for UI gating. It mirrors server state
// only as of the last call; the server remains the authority and a Session
// can go stale when the cookie expires.
type Session struct {
	client *SDKClient

	mu   sync.RWMutex
	user *User
}

// newSession creates a session for the user returned by Login.
func newSession(client *SDKClient, user User) *Session {
	return &Session{client: client, user: &user}
}

// User returns the cached identity, or nil after Logout.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsLoggedIn reports whether the session still holds a user.
func (s *Session) IsLoggedIn() bool {
	return s.User() != nil
}

// Refresh asks the server who the cookie belongs to and updates the cached
// user. A 401 clears the session.
func (s *Session) Refresh(ctx context.Context) (*User, error) {
	if !s.IsLoggedIn() {
		return nil, ErrNotLoggedIn
	}

	user, err := s.client.Me(ctx)
	if err != nil {
		if IsUnauthorized(err) {
			s.clear()
		}
		return nil, err
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return s.User(), nil
}

// Logout clears the server cookie and forgets the cached user.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.clear()
	return err
}

func (s *Session) clear() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}
