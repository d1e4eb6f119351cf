package liveness

import "time"

// Config holds the monitor thresholds.
type Config struct {
	StaleThreshold time.Duration // Hidden time after which state is stale
	WarningWindow  time.Duration // Warn this long before the threshold
	DimWindow      time.Duration // Dim this long before the threshold
	TickInterval   time.Duration // Countdown resolution
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		StaleThreshold: 15 * time.Minute,
		WarningWindow:  2 * time.Minute,
		DimWindow:      30 * time.Second,
		TickInterval:   time.Second,
	}
}

// Phase is the visible warning stage.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseWarning
	PhaseDimmed
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseWarning:
		return "warning"
	case PhaseDimmed:
		return "dimmed"
	default:
		return "unknown"
	}
}

// Snapshot is what the host renders.
type Snapshot struct {
	Phase            Phase
	ShowWarning      bool
	ShowDim          bool
	SecondsRemaining int // Valid only while ShowWarning
}

// SignalKind distinguishes visibility changes from user input.
type SignalKind int

const (
	SignalHidden SignalKind = iota
	SignalVisible
	SignalActivity
)

// ActivityKind names the tracked user input events.
type ActivityKind string

const (
	ActivityClick      ActivityKind = "click"
	ActivityKeypress   ActivityKind = "keypress"
	ActivityTouchStart ActivityKind = "touchstart"
	ActivityMouseMove  ActivityKind = "mousemove"
)

// Signal is one visibility or activity event from the host.
type Signal struct {
	Kind     SignalKind
	Activity ActivityKind
}

// Hidden reports that the host went to the background.
func Hidden() Signal { return Signal{Kind: SignalHidden} }

// Visible reports that the host came back to the foreground.
func Visible() Signal { return Signal{Kind: SignalVisible} }

// Activity reports user input of the given kind.
func Activity(kind ActivityKind) Signal {
	return Signal{Kind: SignalActivity, Activity: kind}
}

// SignalSource delivers host signals. The returned func unsubscribes.
type SignalSource interface {
	Subscribe(fn func(Signal)) (cancel func())
}

// Reloader discards and rebuilds client state.
type Reloader interface {
	Reload(reason string)
}

// ReloadFunc adapts a function to Reloader.
type ReloadFunc func(reason string)

// Reload calls f(reason).
func (f ReloadFunc) Reload(reason string) { f(reason) }
