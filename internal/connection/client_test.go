package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testDialerConfig(server *httptest.Server) DialerConfig {
	cfg := DefaultDialerConfig()
	cfg.URL = wsURL(server)
	return cfg
}

func TestWSDialer_SendsSessionCookie(t *testing.T) {
	cookie := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		cookie <- r.Header.Get("Cookie")
		conn.ReadMessage()
	})
	defer server.Close()

	sess := NewStaticSession("connect.sid", "s%3Aabc.sig")
	dialer := NewWSDialer(testDialerConfig(server), sess.Header, nil)

	tr, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	select {
	case got := <-cookie:
		if got != "connect.sid=s%3Aabc.sig" {
			t.Errorf("Cookie = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the upgrade")
	}
}

func TestWSDialer_SendReceive(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		mu.Lock()
		received = msg
		mu.Unlock()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		conn.ReadMessage()
	})
	defer server.Close()

	tr, err := NewWSDialer(testDialerConfig(server), nil, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	if err := tr.Send([]byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	data, err := tr.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(data) != `{"type":"pong"}` {
		t.Errorf("Receive() = %s", data)
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != `{"type":"ping"}` {
		t.Errorf("server received %q", received)
	}
}

func TestWSDialer_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewWSDialer(testDialerConfig(server), nil, nil).Dial(context.Background())
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestWSDialer_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		conn.ReadMessage()
	})
	defer server.Close()

	tr, err := NewWSDialer(testDialerConfig(server), nil, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	// First close should succeed
	if err := tr.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	// Second close returns the same result
	if err := tr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if _, err := tr.Receive(); err == nil {
		t.Error("expected Receive to fail after Close")
	}
}

func TestWSDialer_AnswersServerPing(t *testing.T) {
	pong := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		conn.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		// Control frames are processed while reading.
		conn.ReadMessage()
	})
	defer server.Close()

	tr, err := NewWSDialer(testDialerConfig(server), nil, nil).Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	// The client processes the ping while blocked in Receive.
	go tr.Receive()

	select {
	case got := <-pong:
		if got != "heartbeat" {
			t.Errorf("pong payload = %q, want heartbeat", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no pong received")
	}
}

func TestManager_OverWebSocket(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connected","userId":"u1"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	rec := &recorder{}
	sess := NewStaticSession("connect.sid", "s:abc.sig")
	mgr := NewManager(
		DefaultManagerConfig(),
		NewWSDialer(testDialerConfig(server), sess.Header, nil),
		sess,
		rec.handlers(),
		nil,
	)
	defer mgr.Disconnect()

	mgr.Connect()
	eventually(t, func() bool { _, _, n := rec.counts(); return n == 1 }, "connected greeting")

	if mgr.Health() != HealthHealthy {
		t.Errorf("health = %v, want healthy", mgr.Health())
	}
	if f := rec.frames()[0]; f.FrameType() != "connected" {
		t.Errorf("frame = %q, want connected", f.FrameType())
	}
}

func TestDefaultConfigs(t *testing.T) {
	dialerCfg := DefaultDialerConfig()
	if dialerCfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", dialerCfg.HandshakeTimeout)
	}
	if dialerCfg.WriteTimeout != 5*time.Second {
		t.Errorf("WriteTimeout = %v, want 5s", dialerCfg.WriteTimeout)
	}

	mgrCfg := DefaultManagerConfig()
	if mgrCfg.PingInterval != 8*time.Second {
		t.Errorf("PingInterval = %v, want 8s", mgrCfg.PingInterval)
	}
	if mgrCfg.PongTimeout != 3*time.Second {
		t.Errorf("PongTimeout = %v, want 3s", mgrCfg.PongTimeout)
	}
	if mgrCfg.ReconnectBaseDelay != 500*time.Millisecond || mgrCfg.ReconnectMaxDelay != 10*time.Second {
		t.Errorf("backoff = %v..%v, want 500ms..10s", mgrCfg.ReconnectBaseDelay, mgrCfg.ReconnectMaxDelay)
	}
}
