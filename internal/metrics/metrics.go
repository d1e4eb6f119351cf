package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orphanbars"

var healthStates = []string{"disconnected", "healthy", "degraded"}

// ClientMetrics instruments the connection manager.
type ClientMetrics struct {
	health          *prometheus.GaugeVec
	reconnects      prometheus.Counter
	pongTimeouts    prometheus.Counter
	framesIn        *prometheus.CounterVec
	framesDropped   prometheus.Counter
	malformedFrames prometheus.Counter
}

// NewClientMetrics registers client collectors on reg.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	f := promauto.With(reg)
	m := &ClientMetrics{
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connection_health",
			Help:      "Current connection health, 1 for the active state",
		}, []string{"health"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "reconnects_scheduled_total",
			Help:      "Reconnect attempts scheduled",
		}),
		pongTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "pong_timeouts_total",
			Help:      "Connections closed because a pong did not arrive in time",
		}),
		framesIn: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "frames_dispatched_total",
			Help:      "Inbound frames delivered to the message handler",
		}, []string{"type"}),
		framesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped while not connected",
		}),
		malformedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "frames_malformed_total",
			Help:      "Inbound frames that failed to decode",
		}),
	}
	m.SetHealth("disconnected")
	return m
}

// SetHealth marks health as the active state.
func (m *ClientMetrics) SetHealth(health string) {
	if m == nil {
		return
	}
	for _, h := range healthStates {
		v := 0.0
		if h == health {
			v = 1
		}
		m.health.WithLabelValues(h).Set(v)
	}
}

func (m *ClientMetrics) ReconnectScheduled() {
	if m != nil {
		m.reconnects.Inc()
	}
}

func (m *ClientMetrics) PongTimeout() {
	if m != nil {
		m.pongTimeouts.Inc()
	}
}

func (m *ClientMetrics) FrameDispatched(frameType string) {
	if m != nil {
		m.framesIn.WithLabelValues(frameType).Inc()
	}
}

func (m *ClientMetrics) FrameDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}

func (m *ClientMetrics) MalformedFrame() {
	if m != nil {
		m.malformedFrames.Inc()
	}
}

// LivenessMetrics instruments the session liveness monitor.
type LivenessMetrics struct {
	warnings prometheus.Counter
	dims     prometheus.Counter
	reloads  prometheus.Counter
	dismiss  prometheus.Counter
}

// NewLivenessMetrics registers liveness collectors on reg.
func NewLivenessMetrics(reg prometheus.Registerer) *LivenessMetrics {
	f := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liveness",
			Name:      name,
			Help:      help,
		})
	}
	return &LivenessMetrics{
		warnings: counter("warnings_total", "Stale session warnings shown"),
		dims:     counter("dims_total", "Times the dim overlay was shown"),
		reloads:  counter("reloads_total", "Forced reloads"),
		dismiss:  counter("dismissals_total", "Warnings dismissed by the user or by activity"),
	}
}

func (m *LivenessMetrics) WarningShown() {
	if m != nil {
		m.warnings.Inc()
	}
}

func (m *LivenessMetrics) DimShown() {
	if m != nil {
		m.dims.Inc()
	}
}

func (m *LivenessMetrics) Reloaded() {
	if m != nil {
		m.reloads.Inc()
	}
}

func (m *LivenessMetrics) Dismissed() {
	if m != nil {
		m.dismiss.Inc()
	}
}

// HubMetrics instruments the server hub.
type HubMetrics struct {
	sockets       prometheus.Gauge
	users         prometheus.Gauge
	batches       prometheus.Counter
	batchSize     prometheus.Histogram
	reaped        prometheus.Counter
	slowDropped   prometheus.Counter
	authRejected  *prometheus.CounterVec
	notifyDropped prometheus.Counter
	inboundFrames *prometheus.CounterVec
}

// NewHubMetrics registers hub collectors on reg.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	f := promauto.With(reg)
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      name,
			Help:      help,
		}
	}
	return &HubMetrics{
		sockets: f.NewGauge(prometheus.GaugeOpts(opts(
			"sockets", "Open authenticated sockets"))),
		users: f.NewGauge(prometheus.GaugeOpts(opts(
			"online_users", "Users with at least one open socket"))),
		batches: f.NewCounter(prometheus.CounterOpts(opts(
			"batches_flushed_total", "batchMessages envelopes sent"))),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "batch_size",
			Help:      "Frames per flushed batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		reaped: f.NewCounter(prometheus.CounterOpts(opts(
			"sockets_reaped_total", "Sockets terminated for missing a heartbeat"))),
		slowDropped: f.NewCounter(prometheus.CounterOpts(opts(
			"sockets_slow_dropped_total", "Sockets dropped because their send buffer was full"))),
		authRejected: f.NewCounterVec(prometheus.CounterOpts(opts(
			"auth_rejected_total", "Upgrades closed for failed authentication")), []string{"code"}),
		notifyDropped: f.NewCounter(prometheus.CounterOpts(opts(
			"notifications_dropped_total", "Notifications for users with no open socket"))),
		inboundFrames: f.NewCounterVec(prometheus.CounterOpts(opts(
			"frames_received_total", "Inbound frames by type")), []string{"type"}),
	}
}

// SetConnections records the socket and user counts.
func (m *HubMetrics) SetConnections(sockets, users int) {
	if m == nil {
		return
	}
	m.sockets.Set(float64(sockets))
	m.users.Set(float64(users))
}

func (m *HubMetrics) BatchFlushed(size int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.batchSize.Observe(float64(size))
}

func (m *HubMetrics) SocketReaped() {
	if m != nil {
		m.reaped.Inc()
	}
}

func (m *HubMetrics) SlowSocketDropped() {
	if m != nil {
		m.slowDropped.Inc()
	}
}

func (m *HubMetrics) AuthRejected(code string) {
	if m != nil {
		m.authRejected.WithLabelValues(code).Inc()
	}
}

func (m *HubMetrics) NotificationDropped() {
	if m != nil {
		m.notifyDropped.Inc()
	}
}

func (m *HubMetrics) FrameReceived(frameType string) {
	if m != nil {
		m.inboundFrames.WithLabelValues(frameType).Inc()
	}
}
