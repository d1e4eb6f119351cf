package hub

import (
	"errors"
	"net/http"
	"time"

	"github.com/orphanbars/realtime/internal/auth"
)

// Close codes sent to sockets that fail authentication.
const (
	CloseNoSession        = 4001
	CloseNotAuthenticated = 4002
)

// ErrNotRunning is returned by Stop when Start was never called.
var ErrNotRunning = errors.New("hub not running")

// Authenticator resolves the user behind an upgrade request.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (auth.Identity, error)

// Authenticate calls f(r).
func (f AuthenticatorFunc) Authenticate(r *http.Request) (auth.Identity, error) { return f(r) }

// Config holds hub configuration.
type Config struct {
	BatchInterval  time.Duration // How often queued notifications are flushed
	PingInterval   time.Duration // Transport ping interval for reaping dead sockets
	WriteTimeout   time.Duration // Write deadline per frame
	SendBuffer     int           // Per-socket outbound queue length
	ReadLimit      int64         // Max inbound frame size in bytes
	AllowedOrigins []string      // Empty means same origin only
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchInterval: 200 * time.Millisecond,
		PingInterval:  30 * time.Second,
		WriteTimeout:  5 * time.Second,
		SendBuffer:    64,
		ReadLimit:     64 * 1024,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Sockets        int
	OnlineUsers    int
	Notifications  int64
	Dropped        int64
	BatchesFlushed int64
	Reaped         int64
}
