// Package auth authenticates realtime upgrades against the web app's
// express-session cookie and its Postgres session table.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// SessionCookieName is the cookie express-session sets by default.
const SessionCookieName = "connect.sid"

// signedPrefix marks a signed cookie value.
const signedPrefix = "s:"

// Errors
var (
	ErrNoSession        = errors.New("no session")
	ErrInvalidSignature = errors.New("invalid session signature")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Identity is the logged-in user behind a session.
type Identity struct {
	UserID   string
	Username string
}

// SignSessionID produces the cookie value for sid: "s:" + sid + "." + mac.
func SignSessionID(sid, secret string) string {
	return signedPrefix + sid + "." + mac(sid, secret)
}

// UnsignSessionID verifies a cookie value against each secret in turn and
// returns the session ID. The value may still be URL-encoded.
func UnsignSessionID(value string, secrets []string) (string, error) {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !strings.HasPrefix(decoded, signedPrefix) {
		return "", fmt.Errorf("%w: unsigned cookie", ErrInvalidSignature)
	}
	decoded = strings.TrimPrefix(decoded, signedPrefix)

	dot := strings.LastIndexByte(decoded, '.')
	if dot <= 0 {
		return "", fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	sid, sig := decoded[:dot], decoded[dot+1:]

	for _, secret := range secrets {
		if hmac.Equal([]byte(sig), []byte(mac(sid, secret))) {
			return sid, nil
		}
	}
	return "", ErrInvalidSignature
}

// mac is the unpadded base64 HMAC-SHA256 of value.
func mac(value, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(h.Sum(nil))
}
