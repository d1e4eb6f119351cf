package liveness

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/orphanbars/realtime/internal/metrics"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for hidden time and the countdown.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = clock }
}

// WithOnChange registers fn to receive every new Snapshot.
func WithOnChange(fn func(Snapshot)) Option {
	return func(m *Monitor) { m.onChange = fn }
}

// WithMetrics records warning and reload counts.
func WithMetrics(lm *metrics.LivenessMetrics) Option {
	return func(m *Monitor) { m.metrics = lm }
}

// Monitor is the session liveness monitor. It starts tracking as soon as it
// is created; there is no start call.
type Monitor struct {
	cfg      Config
	reloader Reloader
	logger   *slog.Logger
	clock    clockwork.Clock
	onChange func(Snapshot)
	metrics  *metrics.LivenessMetrics

	mu          sync.Mutex
	hiddenAt    time.Time
	hasHiddenAt bool
	snap        Snapshot
	cycle       uint64
	ticker      clockwork.Ticker
	stopTick    chan struct{}
	unsubscribe func()
	closed      bool
}

// NewMonitor subscribes to source. A nil source leaves the monitor inert.
func NewMonitor(cfg Config, source SignalSource, reloader Reloader, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		cfg:      cfg,
		reloader: reloader,
		logger:   logger.With("component", "liveness_monitor"),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if source == nil {
		m.logger.Debug("no signal source, monitor inert")
		return m
	}
	m.unsubscribe = source.Subscribe(m.handle)
	return m
}

// Snapshot returns the current warning state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Dismiss clears any warning and cancels the pending reload. The next
// hidden period starts a new cycle.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	changed := m.dismissLocked()
	m.mu.Unlock()
	m.notify(changed)
}

// Close unsubscribes and stops the countdown.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopCountdownLocked()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *Monitor) handle(sig Signal) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	var (
		changed *Snapshot
		reload  bool
	)
	switch sig.Kind {
	case SignalHidden:
		m.hiddenAt = m.clock.Now()
		m.hasHiddenAt = true
		m.stopCountdownLocked()
		changed = m.setLocked(Snapshot{})

	case SignalVisible:
		if !m.hasHiddenAt {
			break
		}
		elapsed := m.clock.Since(m.hiddenAt)
		if elapsed >= m.cfg.StaleThreshold {
			m.logger.Info("session stale, reloading", "hidden_for", elapsed.Round(time.Second))
			changed = m.resetLocked()
			reload = true
			break
		}

		remaining := m.cfg.StaleThreshold - elapsed
		if remaining > m.cfg.WarningWindow {
			changed = m.dismissLocked()
			break
		}
		changed = m.setLocked(m.countdownSnapshot(remaining))
		m.startCountdownLocked()

	case SignalActivity:
		if m.snap.ShowWarning || m.snap.ShowDim {
			m.logger.Debug("activity dismissed warning", "activity", sig.Activity)
			changed = m.dismissLocked()
		}
	}
	m.mu.Unlock()

	m.notify(changed)
	if reload {
		m.reload("stale session")
	}
}

// tick recomputes the countdown. cycle guards against ticks from a
// countdown that was stopped after the tick was received.
func (m *Monitor) tick(cycle uint64) {
	m.mu.Lock()
	if m.closed || cycle != m.cycle || !m.hasHiddenAt {
		m.mu.Unlock()
		return
	}

	var (
		changed *Snapshot
		reload  bool
	)
	remaining := m.cfg.StaleThreshold - m.clock.Since(m.hiddenAt)
	if remaining <= 0 {
		m.logger.Info("countdown expired, reloading")
		changed = m.resetLocked()
		reload = true
	} else {
		changed = m.setLocked(m.countdownSnapshot(remaining))
	}
	m.mu.Unlock()

	m.notify(changed)
	if reload {
		m.reload("countdown expired")
	}
}

func (m *Monitor) countdownSnapshot(remaining time.Duration) Snapshot {
	s := Snapshot{
		Phase:            PhaseWarning,
		ShowWarning:      true,
		SecondsRemaining: ceilSeconds(remaining),
	}
	// Once dimmed the overlay stays until the cycle ends.
	if remaining <= m.cfg.DimWindow || m.snap.ShowDim {
		s.Phase = PhaseDimmed
		s.ShowDim = true
	}
	return s
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// setLocked stores s and returns it if it differs from the previous snapshot.
func (m *Monitor) setLocked(s Snapshot) *Snapshot {
	prev := m.snap
	if s == prev {
		return nil
	}
	m.snap = s
	if s.ShowWarning && !prev.ShowWarning {
		m.metrics.WarningShown()
	}
	if s.ShowDim && !prev.ShowDim {
		m.metrics.DimShown()
	}
	return &s
}

func (m *Monitor) dismissLocked() *Snapshot {
	if m.snap.ShowWarning {
		m.metrics.Dismissed()
	}
	m.hasHiddenAt = false
	m.stopCountdownLocked()
	return m.setLocked(Snapshot{})
}

// resetLocked returns the monitor to a fresh active state ahead of a reload.
func (m *Monitor) resetLocked() *Snapshot {
	m.hasHiddenAt = false
	m.stopCountdownLocked()
	return m.setLocked(Snapshot{})
}

func (m *Monitor) startCountdownLocked() {
	m.stopCountdownLocked()

	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	stop := make(chan struct{})
	m.ticker = ticker
	m.stopTick = stop
	cycle := m.cycle

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				m.tick(cycle)
			}
		}
	}()
}

func (m *Monitor) stopCountdownLocked() {
	m.cycle++
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stopTick)
	m.ticker = nil
	m.stopTick = nil
}

func (m *Monitor) notify(s *Snapshot) {
	if s != nil && m.onChange != nil {
		m.onChange(*s)
	}
}

func (m *Monitor) reload(reason string) {
	m.metrics.Reloaded()
	if m.reloader == nil {
		m.logger.Warn("no reloader configured, skipping reload", "reason", reason)
		return
	}
	m.reloader.Reload(reason)
}
