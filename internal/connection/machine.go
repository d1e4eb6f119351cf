package connection

import "time"

// Event is an input to Machine.Step.
type Event interface{ event() }

// Effect is an action Machine.Step asks the runtime to perform.
type Effect interface{ effect() }

// Events. Gen identifies the transport an event belongs to; events carrying
// a superseded generation are ignored.
type (
	EvConnect struct {
		Authenticated      bool
		TransportAvailable bool
	}
	EvDisconnect     struct{}
	EvForceReconnect struct{}
	EvOpened         struct{ Gen uint64 }
	EvClosed         struct {
		Gen           uint64
		Authenticated bool
	}
	EvHeartbeat   struct{ Gen uint64 }
	EvPong        struct{ Gen uint64 }
	EvPongTimeout struct {
		Gen           uint64
		Seq           uint64
		Authenticated bool
	}
	EvReconnectDue struct {
		Authenticated      bool
		TransportAvailable bool
	}
)

func (EvConnect) event()        {}
func (EvDisconnect) event()     {}
func (EvForceReconnect) event() {}
func (EvOpened) event()         {}
func (EvClosed) event()         {}
func (EvHeartbeat) event()      {}
func (EvPong) event()           {}
func (EvPongTimeout) event()    {}
func (EvReconnectDue) event()   {}

// Effects.
type (
	OpenTransport     struct{ Gen uint64 }
	CloseTransport    struct{ Gen uint64 }
	SendPing          struct{ Gen, Seq uint64 }
	StartHeartbeat    struct{ Gen uint64 }
	StopHeartbeat     struct{}
	StartPongTimer    struct{ Gen, Seq uint64 }
	StopPongTimer     struct{}
	ScheduleReconnect struct {
		Delay   time.Duration
		Attempt int
	}
	CancelReconnect  struct{}
	NotifyConnect    struct{}
	NotifyDisconnect struct{}
)

func (OpenTransport) effect()     {}
func (CloseTransport) effect()    {}
func (SendPing) effect()          {}
func (StartHeartbeat) effect()    {}
func (StopHeartbeat) effect()     {}
func (StartPongTimer) effect()    {}
func (StopPongTimer) effect()     {}
func (ScheduleReconnect) effect() {}
func (CancelReconnect) effect()   {}
func (NotifyConnect) effect()     {}
func (NotifyDisconnect) effect()  {}

// Machine is the connection state machine. It performs no I/O and is not
// safe for concurrent use; Manager serializes access to it.
type Machine struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	forceDelay time.Duration

	state            State
	attempt          int
	gen              uint64
	pingSeq          uint64
	pendingPing      bool
	reconnectPending bool
}

// NewMachine creates a machine in StateIdle.
func NewMachine(cfg ManagerConfig) *Machine {
	return &Machine{
		baseDelay:  cfg.ReconnectBaseDelay,
		maxDelay:   cfg.ReconnectMaxDelay,
		forceDelay: cfg.ForceReconnectDelay,
		state:      StateIdle,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Attempt returns the reconnect attempt counter.
func (m *Machine) Attempt() int { return m.attempt }

// Generation returns the generation of the current transport.
func (m *Machine) Generation() uint64 { return m.gen }

// PendingPing reports whether a ping is awaiting its pong.
func (m *Machine) PendingPing() bool { return m.pendingPing }

// ReconnectPending reports whether a reconnect is scheduled.
func (m *Machine) ReconnectPending() bool { return m.reconnectPending }

// Step applies ev and returns the effects to execute, in order.
func (m *Machine) Step(ev Event) []Effect {
	switch ev := ev.(type) {
	case EvConnect:
		return m.connect(ev.Authenticated, ev.TransportAvailable)
	case EvDisconnect:
		return m.disconnect()
	case EvForceReconnect:
		effects := m.disconnect()
		m.state = StateClosed
		m.reconnectPending = true
		return append(effects, ScheduleReconnect{Delay: m.forceDelay, Attempt: m.attempt})
	case EvOpened:
		return m.opened(ev.Gen)
	case EvClosed:
		return m.closed(ev.Gen, ev.Authenticated)
	case EvHeartbeat:
		return m.heartbeat(ev.Gen)
	case EvPong:
		return m.pong(ev.Gen)
	case EvPongTimeout:
		return m.pongTimeout(ev.Gen, ev.Seq, ev.Authenticated)
	case EvReconnectDue:
		return m.reconnectDue(ev.Authenticated, ev.TransportAvailable)
	}
	return nil
}

func (m *Machine) connect(authenticated, available bool) []Effect {
	if !authenticated || !available {
		return nil
	}
	if m.state == StateConnecting || m.state.IsOpen() {
		return nil
	}

	var effects []Effect
	if m.reconnectPending {
		m.reconnectPending = false
		effects = append(effects, CancelReconnect{})
	}
	return append(effects, m.open())
}

func (m *Machine) open() Effect {
	m.gen++
	m.state = StateConnecting
	m.pendingPing = false
	return OpenTransport{Gen: m.gen}
}

func (m *Machine) disconnect() []Effect {
	var effects []Effect
	if m.reconnectPending {
		m.reconnectPending = false
		effects = append(effects, CancelReconnect{})
	}
	if m.state == StateIdle {
		m.attempt = 0
		return effects
	}

	wasOpen := m.state.IsOpen()
	effects = append(effects, StopHeartbeat{}, StopPongTimer{})
	if m.state == StateConnecting || wasOpen {
		effects = append(effects, CloseTransport{Gen: m.gen})
	}
	if wasOpen {
		effects = append(effects, NotifyDisconnect{})
	}

	// Late events from the torn-down transport must not match.
	m.gen++
	m.state = StateIdle
	m.attempt = 0
	m.pendingPing = false
	return effects
}

func (m *Machine) opened(gen uint64) []Effect {
	if gen != m.gen || m.state != StateConnecting {
		return nil
	}
	m.state = StateOpenHealthy
	m.attempt = 0
	m.pendingPing = false
	return []Effect{StartHeartbeat{Gen: gen}, NotifyConnect{}}
}

func (m *Machine) closed(gen uint64, authenticated bool) []Effect {
	if gen != m.gen {
		return nil
	}
	if m.state != StateConnecting && !m.state.IsOpen() {
		return nil
	}
	return m.toClosed(authenticated)
}

func (m *Machine) toClosed(authenticated bool) []Effect {
	gen := m.gen
	m.state = StateClosed
	m.pendingPing = false

	effects := []Effect{
		StopHeartbeat{},
		StopPongTimer{},
		CloseTransport{Gen: gen},
		NotifyDisconnect{},
	}
	if authenticated {
		effects = append(effects, m.scheduleReconnect()...)
	}
	return effects
}

func (m *Machine) scheduleReconnect() []Effect {
	if m.reconnectPending {
		return nil
	}
	delay := BackoffDelay(m.attempt, m.baseDelay, m.maxDelay)
	eff := ScheduleReconnect{Delay: delay, Attempt: m.attempt}
	m.attempt++
	m.reconnectPending = true
	return []Effect{eff}
}

func (m *Machine) heartbeat(gen uint64) []Effect {
	if gen != m.gen || !m.state.IsOpen() {
		return nil
	}
	effects := []Effect{StartHeartbeat{Gen: gen}}
	if m.pendingPing {
		// One ping in flight at a time.
		return effects
	}

	m.pingSeq++
	m.pendingPing = true
	m.state = StateOpenDegraded
	return append(effects,
		SendPing{Gen: gen, Seq: m.pingSeq},
		StartPongTimer{Gen: gen, Seq: m.pingSeq},
	)
}

func (m *Machine) pong(gen uint64) []Effect {
	if gen != m.gen || !m.state.IsOpen() || !m.pendingPing {
		return nil
	}
	m.pendingPing = false
	m.state = StateOpenHealthy
	return []Effect{StopPongTimer{}}
}

func (m *Machine) pongTimeout(gen, seq uint64, authenticated bool) []Effect {
	if gen != m.gen || seq != m.pingSeq || !m.pendingPing || !m.state.IsOpen() {
		return nil
	}
	return m.toClosed(authenticated)
}

func (m *Machine) reconnectDue(authenticated, available bool) []Effect {
	if !m.reconnectPending {
		return nil
	}
	m.reconnectPending = false
	if m.state != StateClosed || !authenticated || !available {
		return nil
	}
	return []Effect{m.open()}
}
