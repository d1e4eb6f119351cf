package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/liveness"
	"github.com/orphanbars/realtime/internal/protocol"
)

// --- Bubble Tea messages ---

// ConnectedMsg is sent when the connection opens.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when an open connection closes.
type DisconnectedMsg struct{}

// FrameMsg delivers one inbound frame.
type FrameMsg struct{ Frame protocol.Frame }

// LivenessMsg carries a new liveness snapshot.
type LivenessMsg struct{ Snapshot liveness.Snapshot }

// ReloadMsg asks the host to drop cached state and reconnect.
type ReloadMsg struct{ Reason string }

// PresenceMsg reports whether a user is online.
type PresenceMsg struct {
	UserID string
	Online bool
	Err    error
}

type tickMsg struct{}

type clearTypingMsg struct{ seq int }

// Bridge forwards callbacks from the connection manager and the liveness
// monitor into a running program. Callbacks may fire from inside Update, so
// they are queued and a separate goroutine hands them to the program in
// order.
type Bridge struct {
	logger *slog.Logger
	queue  *queue[tea.Msg]
}

// NewBridge creates a bridge. Run must be called for messages to flow.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		logger: logger.With("component", "tui_bridge"),
		queue:  newQueue[tea.Msg](64),
	}
}

// Run forwards queued messages to send until ctx is done or Close is called.
func (b *Bridge) Run(ctx context.Context, send func(tea.Msg)) {
	stop := context.AfterFunc(ctx, b.Close)
	defer stop()

	for {
		msg, ok := b.queue.Pop()
		if !ok {
			return
		}
		send(msg)
	}
}

// Close stops Run and discards pending and later messages.
func (b *Bridge) Close() {
	b.queue.Close()
}

func (b *Bridge) post(msg tea.Msg) {
	if !b.queue.Push(msg) {
		b.logger.Debug("bridge closed, dropping message", "msg", msg)
	}
}

// ConnectionHandlers returns the manager callbacks.
func (b *Bridge) ConnectionHandlers() connection.Handlers {
	return connection.Handlers{
		OnConnect:    func() { b.post(ConnectedMsg{}) },
		OnDisconnect: func() { b.post(DisconnectedMsg{}) },
		OnMessage:    func(f protocol.Frame) { b.post(FrameMsg{Frame: f}) },
	}
}

// LivenessChanged is the monitor's change callback.
func (b *Bridge) LivenessChanged(s liveness.Snapshot) {
	b.post(LivenessMsg{Snapshot: s})
}

// Reload implements liveness.Reloader.
func (b *Bridge) Reload(reason string) {
	b.post(ReloadMsg{Reason: reason})
}
