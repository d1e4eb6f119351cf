package auth

import (
	"fmt"
	"net/http"
)

// CookieAuthenticator authenticates requests by their signed session cookie.
type CookieAuthenticator struct {
	CookieName string   // Defaults to SessionCookieName
	Secrets    []string // Newest first; any of them verifies
	Store      SessionStore
}

// Authenticate returns ErrNoSession when the request carries no session
// cookie, and an error wrapping ErrInvalidSignature or ErrNotAuthenticated
// when the cookie does not resolve to a logged-in user.
func (a *CookieAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	name := a.CookieName
	if name == "" {
		name = SessionCookieName
	}

	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return Identity{}, ErrNoSession
	}

	sid, err := UnsignSessionID(cookie.Value, a.Secrets)
	if err != nil {
		return Identity{}, err
	}

	id, err := a.Store.Lookup(r.Context(), sid)
	if err != nil {
		return Identity{}, fmt.Errorf("lookup session: %w", err)
	}
	return id, nil
}
