package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientMetrics_Health(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)

	if got := testutil.ToFloat64(m.health.WithLabelValues("disconnected")); got != 1 {
		t.Errorf("initial disconnected = %v, want 1", got)
	}

	m.SetHealth("degraded")
	tests := []struct {
		label string
		want  float64
	}{
		{"disconnected", 0},
		{"healthy", 0},
		{"degraded", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.health.WithLabelValues(tt.label)); got != tt.want {
			t.Errorf("health{%s} = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestClientMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)

	m.ReconnectScheduled()
	m.ReconnectScheduled()
	m.PongTimeout()
	m.FrameDispatched("newMessage")
	m.FrameDropped()
	m.MalformedFrame()

	if got := testutil.ToFloat64(m.reconnects); got != 2 {
		t.Errorf("reconnects = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pongTimeouts); got != 1 {
		t.Errorf("pongTimeouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.framesIn.WithLabelValues("newMessage")); got != 1 {
		t.Errorf("frames{newMessage} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.framesDropped); got != 1 {
		t.Errorf("framesDropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.malformedFrames); got != 1 {
		t.Errorf("malformedFrames = %v, want 1", got)
	}
}

func TestHubMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHubMetrics(reg)

	m.SetConnections(3, 2)
	m.BatchFlushed(4)
	m.SocketReaped()
	m.AuthRejected("4001")

	if got := testutil.ToFloat64(m.sockets); got != 3 {
		t.Errorf("sockets = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.users); got != 2 {
		t.Errorf("users = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.batches); got != 1 {
		t.Errorf("batches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.authRejected.WithLabelValues("4001")); got != 1 {
		t.Errorf("authRejected{4001} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.batchSize); n != 1 {
		t.Errorf("batch_size series = %d, want 1", n)
	}
}

func TestNilReceivers(t *testing.T) {
	var c *ClientMetrics
	c.SetHealth("healthy")
	c.ReconnectScheduled()
	c.PongTimeout()
	c.FrameDispatched("x")
	c.FrameDropped()
	c.MalformedFrame()

	var l *LivenessMetrics
	l.WarningShown()
	l.DimShown()
	l.Reloaded()
	l.Dismissed()

	var h *HubMetrics
	h.SetConnections(1, 1)
	h.BatchFlushed(1)
	h.SocketReaped()
	h.SlowSocketDropped()
	h.AuthRejected("4002")
	h.NotificationDropped()
	h.FrameReceived("ping")
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLivenessMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering liveness metrics twice")
		}
	}()
	NewLivenessMetrics(reg)
}
