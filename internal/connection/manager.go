package connection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/orphanbars/realtime/internal/metrics"
	"github.com/orphanbars/realtime/internal/protocol"
)

// SessionProvider reports whether the user currently holds a session.
type SessionProvider interface {
	Authenticated() bool
}

// Handlers are the collaborator callbacks. Any of them may be nil.
// They run without the manager lock held and may call back into the Manager.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnMessage    func(protocol.Frame)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for heartbeat, pong and reconnect timers.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithMetrics records connection metrics.
func WithMetrics(cm *metrics.ClientMetrics) Option {
	return func(m *Manager) { m.metrics = cm }
}

// Manager maintains one authenticated realtime channel, reconnecting with
// exponential backoff and detecting dead links with an application ping.
// No method returns an error; failures are logged and drive state changes.
type Manager struct {
	cfg      ManagerConfig
	dialer   Dialer
	session  SessionProvider
	handlers Handlers
	logger   *slog.Logger
	clock    clockwork.Clock
	metrics  *metrics.ClientMetrics

	mu           sync.Mutex
	machine      *Machine
	transport    Transport
	transportGen uint64
	dialCancel   context.CancelFunc
	heartbeat    clockwork.Timer
	pongTimer    clockwork.Timer
	reconnect    clockwork.Timer
}

// NewManager creates a manager in the idle state. A nil dialer means the
// environment has no transport and Connect does nothing.
func NewManager(cfg ManagerConfig, dialer Dialer, session SessionProvider, handlers Handlers, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:      cfg,
		dialer:   dialer,
		session:  session,
		handlers: handlers,
		logger:   logger.With("component", "connection_manager"),
		clock:    clockwork.NewRealClock(),
		machine:  NewMachine(cfg),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens the channel if authenticated and not already connecting or open.
func (m *Manager) Connect() {
	m.handle(EvConnect{
		Authenticated:      m.authenticated(),
		TransportAvailable: m.dialer != nil,
	})
}

// Disconnect tears down the channel and cancels any pending reconnect.
func (m *Manager) Disconnect() {
	m.handle(EvDisconnect{})
}

// ForceReconnect tears down the channel and reconnects after a short fixed delay.
func (m *Manager) ForceReconnect() {
	m.handle(EvForceReconnect{})
}

// Send writes f if the channel is open. Otherwise the frame is dropped.
func (m *Manager) Send(f protocol.Frame) {
	m.mu.Lock()
	t := m.transport
	gen := m.transportGen
	open := t != nil && m.machine.State().IsOpen() && gen == m.machine.Generation()
	m.mu.Unlock()

	if !open {
		m.logger.Debug("dropping outbound frame, not connected", "error", ErrNotConnected)
		m.metrics.FrameDropped()
		return
	}

	data, err := protocol.Encode(f)
	if err != nil {
		m.logger.Warn("failed to encode frame", "error", err)
		return
	}
	if err := t.Send(data); err != nil {
		m.logger.Debug("send failed", "error", err)
		m.handle(EvClosed{Gen: gen, Authenticated: m.authenticated()})
	}
}

// SendTyping tells receiverID that the local user is typing.
func (m *Manager) SendTyping(receiverID string) {
	m.Send(protocol.TypingFrame{ReceiverID: receiverID})
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.State()
}

// Health returns the coarse connection health.
func (m *Manager) Health() Health {
	return m.State().Health()
}

// ReconnectAttempt returns the current reconnect attempt counter.
func (m *Manager) ReconnectAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Attempt()
}

func (m *Manager) authenticated() bool {
	return m.session != nil && m.session.Authenticated()
}

// handle steps the machine and executes its effects. Timers and bookkeeping
// are applied under the lock; I/O and callbacks run after it is released.
func (m *Manager) handle(ev Event) {
	m.mu.Lock()
	prev := m.machine.State()
	effects := m.machine.Step(ev)
	deferred := m.apply(effects)
	next := m.machine.State()
	attempt := m.machine.Attempt()
	m.mu.Unlock()

	if _, ok := ev.(EvPongTimeout); ok && len(effects) > 0 {
		m.logger.Warn("pong timeout, closing connection", "timeout", m.cfg.PongTimeout)
		m.metrics.PongTimeout()
	}
	if next != prev {
		m.logger.Debug("connection state changed",
			"from", prev.String(),
			"to", next.String(),
			"attempt", attempt,
		)
		if next.Health() != prev.Health() {
			m.metrics.SetHealth(next.Health().String())
		}
	}

	for _, fn := range deferred {
		fn()
	}
}

// apply must be called with m.mu held.
func (m *Manager) apply(effects []Effect) []func() {
	var deferred []func()

	for _, eff := range effects {
		switch e := eff.(type) {
		case OpenTransport:
			if m.dialCancel != nil {
				m.dialCancel()
			}
			ctx, cancel := context.WithCancel(context.Background())
			m.dialCancel = cancel
			gen := e.Gen
			deferred = append(deferred, func() { go m.open(ctx, gen) })

		case CloseTransport:
			if m.dialCancel != nil {
				m.dialCancel()
				m.dialCancel = nil
			}
			if t := m.transport; t != nil && m.transportGen == e.Gen {
				m.transport = nil
				deferred = append(deferred, func() {
					if err := t.Close(); err != nil {
						m.logger.Debug("close transport", "error", err)
					}
				})
			}

		case SendPing:
			t := m.transport
			if t == nil || m.transportGen != e.Gen {
				continue
			}
			gen := e.Gen
			deferred = append(deferred, func() { m.sendPing(t, gen) })

		case StartHeartbeat:
			stopTimer(m.heartbeat)
			gen := e.Gen
			m.heartbeat = m.clock.AfterFunc(m.cfg.PingInterval, func() {
				m.handle(EvHeartbeat{Gen: gen})
			})

		case StopHeartbeat:
			stopTimer(m.heartbeat)
			m.heartbeat = nil

		case StartPongTimer:
			stopTimer(m.pongTimer)
			gen, seq := e.Gen, e.Seq
			m.pongTimer = m.clock.AfterFunc(m.cfg.PongTimeout, func() {
				m.handle(EvPongTimeout{Gen: gen, Seq: seq, Authenticated: m.authenticated()})
			})

		case StopPongTimer:
			stopTimer(m.pongTimer)
			m.pongTimer = nil

		case ScheduleReconnect:
			stopTimer(m.reconnect)
			m.reconnect = m.clock.AfterFunc(e.Delay, func() {
				m.handle(EvReconnectDue{
					Authenticated:      m.authenticated(),
					TransportAvailable: m.dialer != nil,
				})
			})
			m.metrics.ReconnectScheduled()
			delay, attempt := e.Delay, e.Attempt
			deferred = append(deferred, func() {
				m.logger.Info("scheduling reconnect", "delay", delay, "attempt", attempt)
			})

		case CancelReconnect:
			stopTimer(m.reconnect)
			m.reconnect = nil

		case NotifyConnect:
			if fn := m.handlers.OnConnect; fn != nil {
				deferred = append(deferred, fn)
			}

		case NotifyDisconnect:
			if fn := m.handlers.OnDisconnect; fn != nil {
				deferred = append(deferred, fn)
			}
		}
	}

	return deferred
}

func stopTimer(t clockwork.Timer) {
	if t != nil {
		t.Stop()
	}
}

// open dials and hands the result back to the machine.
func (m *Manager) open(ctx context.Context, gen uint64) {
	t, err := m.dialer.Dial(ctx)
	if err != nil {
		m.logger.Warn("connect failed", "error", err)
		m.handle(EvClosed{Gen: gen, Authenticated: m.authenticated()})
		return
	}

	m.mu.Lock()
	if m.machine.Generation() != gen || m.machine.State() != StateConnecting {
		m.mu.Unlock()
		t.Close()
		return
	}
	m.transport = t
	m.transportGen = gen
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	m.mu.Unlock()

	m.logger.Info("connected")
	m.handle(EvOpened{Gen: gen})
	go m.readLoop(t, gen)
}

func (m *Manager) sendPing(t Transport, gen uint64) {
	data, err := protocol.Encode(protocol.PingFrame{})
	if err != nil {
		return
	}
	if err := t.Send(data); err != nil {
		m.logger.Debug("failed to send ping", "error", err)
		m.handle(EvClosed{Gen: gen, Authenticated: m.authenticated()})
	}
}

// readLoop delivers inbound frames until the transport fails.
func (m *Manager) readLoop(t Transport, gen uint64) {
	for {
		data, err := t.Receive()
		if err != nil {
			m.logger.Debug("read loop exiting", "error", err)
			m.handle(EvClosed{Gen: gen, Authenticated: m.authenticated()})
			return
		}
		m.deliver(data, gen)
	}
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Generation() == gen && m.machine.State().IsOpen()
}

// deliver decodes one inbound payload. Pongs feed the heartbeat; batch
// envelopes are unpacked and every other frame goes to OnMessage.
func (m *Manager) deliver(data []byte, gen uint64) {
	frame, err := protocol.Decode(data)
	if err != nil {
		m.logger.Warn("dropping malformed frame", "error", err, "bytes", len(data))
		m.metrics.MalformedFrame()
		return
	}

	frames, errs := protocol.Unpack(frame)
	for _, err := range errs {
		m.logger.Warn("dropping malformed batch entry", "error", err)
		m.metrics.MalformedFrame()
	}

	for _, f := range frames {
		if _, ok := f.(protocol.PongFrame); ok {
			m.handle(EvPong{Gen: gen})
			continue
		}
		if !m.current(gen) {
			return
		}
		m.metrics.FrameDispatched(string(f.FrameType()))
		if fn := m.handlers.OnMessage; fn != nil {
			fn(f)
		}
	}
}
