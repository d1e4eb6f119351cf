package connection

import (
	"errors"
	"time"
)

// ErrNotConnected is logged when a frame is dropped because the channel is not open.
var ErrNotConnected = errors.New("not connected")

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpenHealthy
	StateOpenDegraded
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpenHealthy:
		return "open-healthy"
	case StateOpenDegraded:
		return "open-degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IsOpen reports whether the transport is open, regardless of health.
func (s State) IsOpen() bool {
	return s == StateOpenHealthy || s == StateOpenDegraded
}

// Health maps the state onto the coarse health reported to the UI.
func (s State) Health() Health {
	switch s {
	case StateOpenHealthy:
		return HealthHealthy
	case StateOpenDegraded:
		return HealthDegraded
	default:
		return HealthDisconnected
	}
}

// Health is the connection health exposed to collaborators.
type Health int

const (
	HealthDisconnected Health = iota
	HealthHealthy
	HealthDegraded
)

// String returns the string representation of a Health.
func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	PingInterval        time.Duration // Interval between heartbeat pings while open
	PongTimeout         time.Duration // Max wait for a pong before the link is declared dead
	ReconnectBaseDelay  time.Duration // Delay before the first reconnect attempt
	ReconnectMaxDelay   time.Duration // Cap for the backoff delay
	ForceReconnectDelay time.Duration // Fixed delay used by ForceReconnect
}

// DefaultManagerConfig returns the reference timings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PingInterval:        8 * time.Second,
		PongTimeout:         3 * time.Second,
		ReconnectBaseDelay:  500 * time.Millisecond,
		ReconnectMaxDelay:   10 * time.Second,
		ForceReconnectDelay: 100 * time.Millisecond,
	}
}

// DialerConfig configures the WebSocket dialer.
type DialerConfig struct {
	URL              string        // WebSocket URL, e.g. wss://orphanbars.example/ws
	HandshakeTimeout time.Duration // Upgrade handshake timeout
	WriteTimeout     time.Duration // Write deadline for sends
}

// DefaultDialerConfig returns sensible defaults.
func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// BackoffDelay returns min(base * 2^attempt, maxDelay).
func BackoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if delay >= maxDelay {
			return maxDelay
		}
		delay *= 2
	}
	return min(delay, maxDelay)
}
