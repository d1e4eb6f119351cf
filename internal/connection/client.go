package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a single open realtime socket.
type Transport interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Receive blocks until the next text frame arrives or the socket fails.
	Receive() ([]byte, error)

	// Close closes the socket. Safe to call more than once.
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// HeaderFunc supplies request headers for each dial, typically the session cookie.
type HeaderFunc func() http.Header

// WSDialer dials the hub over gorilla/websocket.
type WSDialer struct {
	cfg    DialerConfig
	header HeaderFunc
	logger *slog.Logger
}

// NewWSDialer creates a dialer for cfg.URL.
func NewWSDialer(cfg DialerConfig, header HeaderFunc, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{
		cfg:    cfg,
		header: header,
		logger: logger.With("component", "ws_dialer"),
	}
}

// Dial performs the upgrade handshake.
func (d *WSDialer) Dial(ctx context.Context) (Transport, error) {
	header := http.Header{}
	if d.header != nil {
		header = d.header()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.cfg.URL, err)
	}

	// Answer transport-level pings from the hub's reaper.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	d.logger.Debug("websocket connected", "url", d.cfg.URL)

	return &wsTransport{
		conn:         conn,
		writeTimeout: d.cfg.WriteTimeout,
	}, nil
}

// wsTransport implements Transport.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Send writes data as a text message.
func (t *wsTransport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.writeTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next text or binary message payload.
func (t *wsTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close sends a close frame and closes the underlying connection.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
