package connection

import (
	"net/http"
	"sync"
)

// StaticSession is a SessionProvider backed by a session cookie handed to
// the client at startup. Logout clears it.
type StaticSession struct {
	name string

	mu    sync.RWMutex
	value string
}

// NewStaticSession creates a session from a cookie name and value.
func NewStaticSession(name, value string) *StaticSession {
	return &StaticSession{name: name, value: value}
}

// Authenticated reports whether a cookie is held.
func (s *StaticSession) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value != ""
}

// Logout drops the cookie. Subsequent dials carry no session.
func (s *StaticSession) Logout() {
	s.mu.Lock()
	s.value = ""
	s.mu.Unlock()
}

// Header returns the dial headers, suitable as a HeaderFunc.
func (s *StaticSession) Header() http.Header {
	header := http.Header{}

	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	if value != "" {
		// The value may already be URL-encoded by the browser; send it as is.
		header.Set("Cookie", s.name+"="+value)
	}
	return header
}
