package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/liveness"
	"github.com/orphanbars/realtime/internal/protocol"
)

type fakeConn struct {
	calls   []string
	typing  []string
	health  connection.Health
	attempt int
}

func (c *fakeConn) Connect()        { c.calls = append(c.calls, "connect") }
func (c *fakeConn) Disconnect()     { c.calls = append(c.calls, "disconnect") }
func (c *fakeConn) ForceReconnect() { c.calls = append(c.calls, "force") }
func (c *fakeConn) SendTyping(id string) {
	c.calls = append(c.calls, "typing")
	c.typing = append(c.typing, id)
}
func (c *fakeConn) Health() connection.Health { return c.health }
func (c *fakeConn) ReconnectAttempt() int     { return c.attempt }

type fakeMonitor struct {
	snap      liveness.Snapshot
	dismissed int
}

func (f *fakeMonitor) Snapshot() liveness.Snapshot { return f.snap }
func (f *fakeMonitor) Dismiss() {
	f.dismissed++
	f.snap = liveness.Snapshot{}
}

type recordedSignals struct{ got []liveness.Signal }

func (r *recordedSignals) Emit(s liveness.Signal) { r.got = append(r.got, s) }

type fakeSession struct{ loggedOut bool }

func (s *fakeSession) Logout() { s.loggedOut = true }

type fixture struct {
	conn    *fakeConn
	monitor *fakeMonitor
	signals *recordedSignals
	session *fakeSession
}

func newModel(peer string) (Model, *fixture) {
	f := &fixture{
		conn:    &fakeConn{},
		monitor: &fakeMonitor{},
		signals: &recordedSignals{},
		session: &fakeSession{},
	}
	m := New(Deps{
		Conn:    f.conn,
		Monitor: f.monitor,
		Signals: f.signals,
		Session: f.session,
		PeerID:  peer,
	})
	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFocusMapsToVisibility(t *testing.T) {
	m, f := newModel("")

	m, _ = update(t, m, tea.BlurMsg{})
	m, _ = update(t, m, tea.FocusMsg{})

	if len(f.signals.got) != 2 ||
		f.signals.got[0].Kind != liveness.SignalHidden ||
		f.signals.got[1].Kind != liveness.SignalVisible {
		t.Errorf("signals = %+v, want hidden then visible", f.signals.got)
	}
}

func TestInputMapsToActivity(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want liveness.ActivityKind
	}{
		{"key", keyMsg("x"), liveness.ActivityKeypress},
		{"click", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}, liveness.ActivityClick},
		{"motion", tea.MouseMsg{Action: tea.MouseActionMotion}, liveness.ActivityMouseMove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, f := newModel("")
			update(t, m, tt.msg)

			if len(f.signals.got) != 1 {
				t.Fatalf("signals = %+v, want one", f.signals.got)
			}
			got := f.signals.got[0]
			if got.Kind != liveness.SignalActivity || got.Activity != tt.want {
				t.Errorf("signal = %+v, want activity %s", got, tt.want)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		peer      string
		wantCalls []string
		wantQuit  bool
	}{
		{"reconnect", "r", "", []string{"force"}, false},
		{"typing to peer", "t", "42", []string{"typing"}, false},
		{"typing without peer", "t", "", nil, false},
		{"logout", "L", "", []string{"disconnect"}, false},
		{"quit", "q", "", []string{"disconnect"}, true},
		{"ctrl+c", "ctrl+c", "", []string{"disconnect"}, true},
		{"unbound", "z", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, f := newModel(tt.peer)
			_, cmd := update(t, m, keyMsg(tt.key))

			if strings.Join(f.conn.calls, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", f.conn.calls, tt.wantCalls)
			}
			quit := cmd != nil && isQuit(cmd)
			if quit != tt.wantQuit {
				t.Errorf("quit = %v, want %v", quit, tt.wantQuit)
			}
		})
	}
}

func isQuit(cmd tea.Cmd) bool {
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestTypingGoesToPeer(t *testing.T) {
	m, f := newModel("42")
	update(t, m, keyMsg("t"))

	if len(f.conn.typing) != 1 || f.conn.typing[0] != "42" {
		t.Errorf("typing = %v, want [42]", f.conn.typing)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	m, f := newModel("")
	m, _ = update(t, m, keyMsg("L"))

	if !f.session.loggedOut {
		t.Error("session still logged in")
	}
	if !strings.Contains(m.View(), "signed out") {
		t.Errorf("View() missing signed out status:\n%s", m.View())
	}
}

func TestDismissClearsBanner(t *testing.T) {
	m, f := newModel("")
	f.monitor.snap = liveness.Snapshot{Phase: liveness.PhaseWarning, ShowWarning: true, SecondsRemaining: 90}
	m, _ = update(t, m, LivenessMsg{Snapshot: f.monitor.snap})

	if !strings.Contains(m.View(), "Refreshing in 1:30") {
		t.Fatalf("View() missing banner:\n%s", m.View())
	}

	m, _ = update(t, m, keyMsg("d"))
	if f.monitor.dismissed != 1 {
		t.Errorf("dismissed = %d, want 1", f.monitor.dismissed)
	}
	if strings.Contains(m.View(), "Refreshing in") {
		t.Errorf("banner still shown after dismiss:\n%s", m.View())
	}
}

func TestFramesFillCache(t *testing.T) {
	m, _ := newModel("")

	m, _ = update(t, m, FrameMsg{Frame: protocol.ConnectedFrame{UserID: "7"}})
	m, _ = update(t, m, FrameMsg{Frame: protocol.NewMessageFrame{
		Message: json.RawMessage(`{"senderUsername":"ana","content":"see you at the bar"}`),
	}})
	m, cmd := update(t, m, FrameMsg{Frame: protocol.TypingFrame{SenderID: "3", SenderUsername: "bo"}})

	v := m.View()
	for _, want := range []string{"user 7", "ana: see you at the bar", "bo is typing..."} {
		if !strings.Contains(v, want) {
			t.Errorf("View() missing %q:\n%s", want, v)
		}
	}
	if cmd == nil {
		t.Fatal("typing frame should schedule its own expiry")
	}

	m, _ = update(t, m, clearTypingMsg{seq: m.typingSeq})
	if strings.Contains(m.View(), "is typing") {
		t.Error("typing indicator not cleared")
	}
}

func TestStaleTypingClearIgnored(t *testing.T) {
	m, _ := newModel("")
	m, _ = update(t, m, FrameMsg{Frame: protocol.TypingFrame{SenderUsername: "ana"}})
	m, _ = update(t, m, FrameMsg{Frame: protocol.TypingFrame{SenderUsername: "bo"}})

	m, _ = update(t, m, clearTypingMsg{seq: 1})
	if m.typingFrom != "bo" {
		t.Errorf("typingFrom = %q, want bo", m.typingFrom)
	}
}

func TestCacheIsBounded(t *testing.T) {
	m, _ := newModel("")
	for i := 0; i < maxCachedMessages+10; i++ {
		m, _ = update(t, m, FrameMsg{Frame: protocol.NewMessageFrame{Message: json.RawMessage(`{"n":1}`)}})
	}
	if len(m.messages) != maxCachedMessages {
		t.Errorf("cached = %d, want %d", len(m.messages), maxCachedMessages)
	}
}

func TestReloadClearsCacheAndReconnects(t *testing.T) {
	m, f := newModel("")
	m, _ = update(t, m, FrameMsg{Frame: protocol.NewMessageFrame{Message: json.RawMessage(`{"content":"hi"}`)}})

	m, _ = update(t, m, ReloadMsg{Reason: "stale session"})

	if len(m.messages) != 0 {
		t.Errorf("messages = %v, want empty", m.messages)
	}
	if strings.Join(f.conn.calls, ",") != "force" {
		t.Errorf("calls = %v, want [force]", f.conn.calls)
	}
	if m.reloads != 1 {
		t.Errorf("reloads = %d, want 1", m.reloads)
	}
}

func TestDimOverlay(t *testing.T) {
	m, _ := newModel("")
	m, _ = update(t, m, LivenessMsg{Snapshot: liveness.Snapshot{
		Phase: liveness.PhaseDimmed, ShowWarning: true, ShowDim: true, SecondsRemaining: 5,
	}})

	if !strings.Contains(m.View(), "Refreshing in 0:05") {
		t.Errorf("View() missing countdown:\n%s", m.View())
	}
}

func TestStatusLine(t *testing.T) {
	m, f := newModel("")
	f.conn.attempt = 3
	m, _ = update(t, m, DisconnectedMsg{})
	if !strings.Contains(m.View(), "disconnected (retry 3)") {
		t.Errorf("View() missing retry count:\n%s", m.View())
	}

	f.conn.health = connection.HealthDegraded
	f.conn.attempt = 0
	m, _ = update(t, m, tickMsg{})
	if !strings.Contains(m.View(), "degraded") {
		t.Errorf("View() missing degraded health:\n%s", m.View())
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{120, "2:00"},
		{119, "1:59"},
		{30, "0:30"},
		{1, "0:01"},
		{-4, "0:00"},
	}
	for _, tt := range tests {
		if got := formatCountdown(tt.seconds); got != tt.want {
			t.Errorf("formatCountdown(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestModelDrivesRealMonitor(t *testing.T) {
	signals := liveness.NewSignals()
	bridge := NewBridge(nil)
	mon := liveness.NewMonitor(liveness.DefaultConfig(), signals, bridge, nil)
	defer mon.Close()

	m := New(Deps{
		Conn:    &fakeConn{},
		Monitor: mon,
		Signals: signals,
		Session: &fakeSession{},
	})

	m, _ = update(t, m, tea.BlurMsg{})
	m, _ = update(t, m, tea.FocusMsg{})
	if m.snapshot != (liveness.Snapshot{}) {
		t.Errorf("snapshot after brief blur = %+v, want zero", m.snapshot)
	}
}

func TestBridgeForwardsInOrder(t *testing.T) {
	b := NewBridge(nil)
	h := b.ConnectionHandlers()

	h.OnConnect()
	h.OnMessage(protocol.PongFrame{})
	b.LivenessChanged(liveness.Snapshot{ShowWarning: true})
	b.Reload("stale session")
	h.OnDisconnect()

	got := make(chan tea.Msg, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, func(msg tea.Msg) { got <- msg })

	want := []string{"tui.ConnectedMsg", "tui.FrameMsg", "tui.LivenessMsg", "tui.ReloadMsg", "tui.DisconnectedMsg"}
	for i, w := range want {
		select {
		case msg := <-got:
			if name := typeName(msg); name != w {
				t.Errorf("msg %d = %s, want %s", i, name, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}
}

func TestBridgeCloseDiscards(t *testing.T) {
	b := NewBridge(nil)
	b.Close()
	b.Close()

	for i := 0; i < 300; i++ {
		b.Reload("after close")
	}

	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), func(tea.Msg) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

type fakePresence struct {
	online bool
	err    error
	asked  []string
}

func (p *fakePresence) IsOnline(_ context.Context, id string) (bool, error) {
	p.asked = append(p.asked, id)
	return p.online, p.err
}

func TestPresenceKey(t *testing.T) {
	tests := []struct {
		name       string
		online     bool
		err        error
		wantStatus string
	}{
		{"online", true, nil, "42 is online"},
		{"offline", false, nil, "42 is offline"},
		{"error", false, errors.New("boom"), "presence lookup failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newModel("42")
			p := &fakePresence{online: tt.online, err: tt.err}
			m.deps.Presence = p

			m, cmd := update(t, m, keyMsg("p"))
			if cmd == nil {
				t.Fatal("presence key should return a lookup command")
			}
			m, _ = update(t, m, cmd())

			if len(p.asked) != 1 || p.asked[0] != "42" {
				t.Errorf("asked = %v, want [42]", p.asked)
			}
			if !strings.Contains(m.View(), tt.wantStatus) {
				t.Errorf("View() missing %q:\n%s", tt.wantStatus, m.View())
			}
		})
	}
}

func TestPresenceKeyWithoutPeer(t *testing.T) {
	m, _ := newModel("")
	m.deps.Presence = &fakePresence{}

	m, cmd := update(t, m, keyMsg("p"))
	if cmd != nil {
		t.Error("no lookup expected without a peer")
	}
	if !strings.Contains(m.View(), "no peer configured") {
		t.Errorf("View() = %s", m.View())
	}
}
