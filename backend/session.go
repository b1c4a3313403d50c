package backend

import (
	"sync"

	aatma "github.com/aatma-dev/aatma"
)

// Session is the authentication state shared by every in-flight request.
// It is written only by login and logout and read everywhere else. The
// token and the user identity are installed and cleared together, so one
// is present exactly when the other is.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *aatma.UserInfo
}

// NewSession returns an empty, logged-out session.
func NewSession() *Session {
	return &Session{}
}

// LoggedIn reports whether a credential is held.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the held credential, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the authenticated identity, or nil when logged
// out.
func (s *Session) User() *aatma.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Clear drops the credential and identity together.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Begin installs the credential and identity together. The request
// layer calls this on a successful login; it is the only way into the
// logged-in state.
func (s *Session) Begin(token string, user aatma.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
}
