package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/liveness"
	"github.com/orphanbars/realtime/internal/protocol"
)

const (
	maxCachedMessages = 50
	typingDisplay     = 3 * time.Second
	refreshInterval   = time.Second
	presenceTimeout   = 5 * time.Second
)

// Connection is the part of connection.Manager the client drives.
type Connection interface {
	Connect()
	Disconnect()
	ForceReconnect()
	SendTyping(receiverID string)
	Health() connection.Health
	ReconnectAttempt() int
}

// Liveness is the part of liveness.Monitor the client renders.
type Liveness interface {
	Snapshot() liveness.Snapshot
	Dismiss()
}

// SignalEmitter receives visibility and activity signals.
type SignalEmitter interface {
	Emit(liveness.Signal)
}

// PresenceChecker asks the hub whether a user is online.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// Session ends the local session.
type Session interface {
	Logout()
}

// Deps are the collaborators the model needs.
type Deps struct {
	Conn     Connection
	Monitor  Liveness
	Signals  SignalEmitter
	Session  Session
	Presence PresenceChecker // optional
	PeerID   string          // receiver for typing notifications
	Logger   *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	logger *slog.Logger
	keys   KeyMap
	width  int
	height int

	// Connection state.
	health   connection.Health
	attempt  int
	userID   string
	loggedIn bool

	// Cached state, dropped on reload.
	messages   []string
	typingFrom string
	typingSeq  int

	snapshot liveness.Snapshot
	reloads  int
	status   string
}

// New creates the root model.
func New(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		deps:     deps,
		logger:   logger.With("component", "tui"),
		keys:     DefaultKeyMap(),
		loggedIn: true,
	}
}

// Init starts the connection and the status refresh.
func (m Model) Init() tea.Cmd {
	conn := m.deps.Conn
	return tea.Batch(
		func() tea.Msg {
			conn.Connect()
			return nil
		},
		refresh(),
	)
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.BlurMsg:
		m.emit(liveness.Hidden())
		return m, nil

	case tea.FocusMsg:
		m.emit(liveness.Visible())
		return m, nil

	case tea.MouseMsg:
		kind := liveness.ActivityMouseMove
		if msg.Action == tea.MouseActionPress {
			kind = liveness.ActivityClick
		}
		m.emit(liveness.Activity(kind))
		return m, nil

	case tea.KeyMsg:
		m.emit(liveness.Activity(liveness.ActivityKeypress))
		return m.handleKey(msg)

	case tickMsg:
		m.syncConnection()
		m.snapshot = m.deps.Monitor.Snapshot()
		return m, refresh()

	case ConnectedMsg:
		m.syncConnection()
		m.status = "connected"
		return m, nil

	case DisconnectedMsg:
		m.syncConnection()
		m.status = "connection lost"
		return m, nil

	case FrameMsg:
		return m.handleFrame(msg.Frame)

	case LivenessMsg:
		m.snapshot = msg.Snapshot
		return m, nil

	case ReloadMsg:
		m.logger.Info("reloading client state", "reason", msg.Reason)
		m.messages = nil
		m.typingFrom = ""
		m.reloads++
		m.status = "reloaded: " + msg.Reason
		m.deps.Conn.ForceReconnect()
		return m, nil

	case PresenceMsg:
		switch {
		case msg.Err != nil:
			m.logger.Warn("presence lookup failed", "user_id", msg.UserID, "error", msg.Err)
			m.status = "presence lookup failed"
		case msg.Online:
			m.status = msg.UserID + " is online"
		default:
			m.status = msg.UserID + " is offline"
		}
		return m, nil

	case clearTypingMsg:
		if msg.seq == m.typingSeq {
			m.typingFrom = ""
		}
		return m, nil
	}

	return m, nil
}

// emit forwards sig and picks up the monitor's reaction, which is applied
// synchronously.
func (m *Model) emit(sig liveness.Signal) {
	m.deps.Signals.Emit(sig)
	m.snapshot = m.deps.Monitor.Snapshot()
}

func (m *Model) syncConnection() {
	m.health = m.deps.Conn.Health()
	m.attempt = m.deps.Conn.ReconnectAttempt()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.deps.Conn.Disconnect()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reconnect):
		m.deps.Conn.ForceReconnect()
		m.status = "reconnecting"
		return m, nil

	case key.Matches(msg, m.keys.Typing):
		if m.deps.PeerID == "" {
			m.status = "no peer configured"
			return m, nil
		}
		m.deps.Conn.SendTyping(m.deps.PeerID)
		m.status = "typing sent to " + m.deps.PeerID
		return m, nil

	case key.Matches(msg, m.keys.Presence):
		if m.deps.Presence == nil || m.deps.PeerID == "" {
			m.status = "no peer configured"
			return m, nil
		}
		return m, checkPresence(m.deps.Presence, m.deps.PeerID)

	case key.Matches(msg, m.keys.Dismiss):
		m.deps.Monitor.Dismiss()
		m.snapshot = m.deps.Monitor.Snapshot()
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		m.deps.Session.Logout()
		m.deps.Conn.Disconnect()
		m.loggedIn = false
		m.syncConnection()
		m.status = "logged out"
		return m, nil
	}

	return m, nil
}

func checkPresence(p PresenceChecker, userID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
		defer cancel()
		online, err := p.IsOnline(ctx, userID)
		return PresenceMsg{UserID: userID, Online: online, Err: err}
	}
}

func (m Model) handleFrame(f protocol.Frame) (tea.Model, tea.Cmd) {
	switch f := f.(type) {
	case protocol.ConnectedFrame:
		m.userID = f.UserID

	case protocol.NewMessageFrame:
		m.messages = append(m.messages, describeMessage(f.Message))
		if over := len(m.messages) - maxCachedMessages; over > 0 {
			m.messages = m.messages[over:]
		}

	case protocol.TypingFrame:
		m.typingFrom = f.SenderUsername
		if m.typingFrom == "" {
			m.typingFrom = f.SenderID
		}
		m.typingSeq++
		seq := m.typingSeq
		return m, tea.Tick(typingDisplay, func(time.Time) tea.Msg { return clearTypingMsg{seq: seq} })

	default:
		m.logger.Debug("ignoring frame", "type", f.FrameType())
	}
	return m, nil
}

// describeMessage renders a chat message body on one line. Bodies with a
// content field show it; anything else is compacted JSON.
func describeMessage(raw json.RawMessage) string {
	var body struct {
		SenderUsername string `json:"senderUsername"`
		Content        string `json:"content"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Content != "" {
		if body.SenderUsername != "" {
			return body.SenderUsername + ": " + body.Content
		}
		return body.Content
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// View renders the full TUI.
func (m Model) View() string {
	sections := []string{m.renderStatus()}

	if m.snapshot.ShowWarning {
		sections = append(sections, styleBanner.Render(fmt.Sprintf(
			"Session idle. Refreshing in %s. Press d to stay.",
			formatCountdown(m.snapshot.SecondsRemaining),
		)))
	}

	body := m.renderMessages()
	if m.snapshot.ShowDim {
		body = styleOverlay.Render(body)
	}
	sections = append(sections, body)

	if m.typingFrom != "" {
		sections = append(sections, styleDimmed.Render(m.typingFrom+" is typing..."))
	}
	if m.status != "" {
		sections = append(sections, styleDimmed.Render(m.status))
	}
	sections = append(sections, styleDimmed.Render(m.renderHelp()))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStatus() string {
	label := m.health.String()
	if m.health == connection.HealthDisconnected && m.attempt > 0 {
		label = fmt.Sprintf("%s (retry %d)", label, m.attempt)
	}
	if !m.loggedIn {
		label = "signed out"
	}
	line := styleHeader.Render("orphan bars") + "  " + healthStyle(m.health).Render("● "+label)
	if m.userID != "" {
		line += styleDimmed.Render("  user " + m.userID)
	}
	return line
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return styleDimmed.Render("  No messages yet")
	}
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		if m.width > 4 && len(msg) > m.width-2 {
			msg = msg[:m.width-5] + "..."
		}
		lines = append(lines, "  "+msg)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return "  " + strings.Join(parts, "  ")
}

// formatCountdown renders seconds as m:ss.
func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
