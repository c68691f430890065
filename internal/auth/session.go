// Package auth holds the client-side authentication state and the HTTP client
// for the auth endpoints. The session is the single "authenticated" signal the
// participant store consults; nothing here validates tokens. The remote
// service is the authority, the client only carries the credential.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session owns the bearer credential and the logged-in user for the lifetime
// of the process. It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession() *Session {
	return &Session{}
}

// Authenticated reports whether a credential is currently held. Every store
// operation is gated on this.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current bearer credential, or "" when signed out. This
// satisfies the repository's TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in user, or nil when signed out.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetAuth stores the credential and user from a successful login/registration.
func (s *Session) SetAuth(token string, user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
}

// Clear signs the session out. Called on explicit logout and by the
// repository's unauthorized hook when the remote rejects the credential.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// ExpiresAt reads the exp claim from the held token without verifying the
// signature; the client has no key material and does not need any. An
// expired or forged token simply fails server-side with a 401.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return time.Time{}, false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
