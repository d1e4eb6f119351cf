package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/orphanbars/realtime/internal/auth"
)

// socket is one authenticated connection.
type socket struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	userID   string
	username string

	send  chan []byte
	done  chan struct{}
	alive atomic.Bool
	once  sync.Once
}

func newSocket(h *Hub, conn *websocket.Conn, id auth.Identity) *socket {
	s := &socket{
		hub:      h,
		conn:     conn,
		id:       uuid.NewString(),
		userID:   id.UserID,
		username: id.Username,
		send:     make(chan []byte, h.cfg.SendBuffer),
		done:     make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

// enqueue hands data to the write pump. A socket whose buffer is full is
// too slow to keep up and is dropped.
func (s *socket) enqueue(data []byte) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- data:
	case <-s.done:
	default:
		s.hub.logger.Warn("socket too slow, disconnecting", "user_id", s.userID, "socket_id", s.id)
		s.hub.metrics.SlowSocketDropped()
		go s.hub.unregister(s)
	}
}

func (s *socket) writePump() {
	defer s.hub.unregister(s)

	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.hub.logger.Debug("write failed", "error", err, "socket_id", s.id)
				return
			}
		}
	}
}

func (s *socket) readPump() {
	defer s.hub.unregister(s)

	if s.hub.cfg.ReadLimit > 0 {
		s.conn.SetReadLimit(s.hub.cfg.ReadLimit)
	}
	s.conn.SetPongHandler(func(string) error {
		s.alive.Store(true)
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.hub.logger.Debug("socket read error", "error", err, "socket_id", s.id)
			}
			return
		}
		s.hub.handleFrame(s, data)
	}
}

// ping sends a transport-level ping. WriteControl is safe alongside the write pump.
func (s *socket) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.hub.cfg.WriteTimeout))
}

func (s *socket) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *socket) closeWith(code int, reason string) {
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	s.close()
}
