package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orphanbars/realtime/internal/auth"
	"github.com/orphanbars/realtime/internal/metrics"
	"github.com/orphanbars/realtime/internal/protocol"
)

// user is everything the hub holds for one online user. A user exists
// exactly while they have at least one socket.
type user struct {
	sockets map[*socket]struct{}
	queue   []json.RawMessage
}

// Hub fans notifications out to connected users.
type Hub struct {
	cfg      Config
	auth     Authenticator
	logger   *slog.Logger
	metrics  *metrics.HubMetrics
	upgrader websocket.Upgrader

	mu    sync.Mutex
	users map[string]*user
	stats Stats

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. hm may be nil.
func NewHub(cfg Config, authenticator Authenticator, hm *metrics.HubMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		cfg:     cfg,
		auth:    authenticator,
		logger:  logger.With("component", "hub"),
		metrics: hm,
		users:   make(map[string]*user),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

// Start launches the batch flusher and the heartbeat reaper.
func (h *Hub) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(2)
	go h.flushLoop()
	go h.heartbeatLoop()

	h.logger.Info("hub started",
		"batch_interval", h.cfg.BatchInterval,
		"ping_interval", h.cfg.PingInterval,
	)
	return nil
}

// Stop halts the loops and closes every socket.
func (h *Hub) Stop(ctx context.Context) error {
	if h.cancel == nil {
		return ErrNotRunning
	}
	h.logger.Info("stopping hub")
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("hub stop timed out")
	}

	h.mu.Lock()
	var all []*socket
	for _, u := range h.users {
		for s := range u.sockets {
			all = append(all, s)
		}
	}
	h.users = make(map[string]*user)
	h.mu.Unlock()

	for _, s := range all {
		s.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	h.publishCounts()
	h.logger.Info("hub stopped", "closed_sockets", len(all))
	return nil
}

// ServeHTTP upgrades the request and attaches the socket to its user.
// Authentication happens after the upgrade so failures can be reported
// with a close code the client understands.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	id, err := h.auth.Authenticate(r)
	if err != nil {
		code, reason := CloseNotAuthenticated, "Not authenticated"
		if errors.Is(err, auth.ErrNoSession) {
			code, reason = CloseNoSession, "No session"
		}
		h.logger.Debug("rejecting socket", "error", err, "code", code, "remote", r.RemoteAddr)
		h.metrics.AuthRejected(strconv.Itoa(code))
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(h.cfg.WriteTimeout),
		)
		conn.Close()
		return
	}

	s := newSocket(h, conn, id)
	greeting, _ := protocol.Encode(protocol.ConnectedFrame{UserID: id.UserID})
	s.enqueue(greeting)
	h.register(s)

	go s.writePump()
	go s.readPump()
}

// NotifyUser queues f for userID. Notifications for users with no open
// socket are dropped.
func (h *Hub) NotifyUser(userID string, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		h.logger.Warn("failed to encode notification", "error", err)
		return
	}

	h.mu.Lock()
	u, ok := h.users[userID]
	if ok {
		u.queue = append(u.queue, data)
		h.stats.Notifications++
	} else {
		h.stats.Dropped++
	}
	h.mu.Unlock()

	if !ok {
		h.metrics.NotificationDropped()
	}
}

// NotifyNewMessage tells receiverID that a chat message arrived.
func (h *Hub) NotifyNewMessage(receiverID string, message json.RawMessage) {
	h.NotifyUser(receiverID, protocol.NewMessageFrame{Message: message})
}

// IsUserOnline reports whether userID has at least one open socket.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.users[userID]
	return ok
}

// OnlineUserIDs returns the online users, sorted.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Stats returns current hub statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stats
	s.OnlineUsers = len(h.users)
	for _, u := range h.users {
		s.Sockets += len(u.sockets)
	}
	return s
}

func (h *Hub) register(s *socket) {
	h.mu.Lock()
	u, ok := h.users[s.userID]
	if !ok {
		u = &user{sockets: make(map[*socket]struct{})}
		h.users[s.userID] = u
	}
	u.sockets[s] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("socket connected", "user_id", s.userID, "socket_id", s.id)
	h.publishCounts()
}

// unregister detaches s and closes it. Safe to call more than once.
func (h *Hub) unregister(s *socket) {
	h.mu.Lock()
	removed := false
	if u, ok := h.users[s.userID]; ok {
		if _, ok := u.sockets[s]; ok {
			delete(u.sockets, s)
			removed = true
			if len(u.sockets) == 0 {
				delete(h.users, s.userID)
			}
		}
	}
	h.mu.Unlock()

	s.close()
	if removed {
		h.logger.Info("socket disconnected", "user_id", s.userID, "socket_id", s.id)
		h.publishCounts()
	}
}

func (h *Hub) publishCounts() {
	st := h.Stats()
	h.metrics.SetConnections(st.Sockets, st.OnlineUsers)
}

func (h *Hub) flushLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.flush()
		}
	}
}

type pendingBatch struct {
	userID  string
	data    []byte
	size    int
	sockets []*socket
}

// flush sends each user's queue as a single batch to all of their sockets.
func (h *Hub) flush() {
	h.mu.Lock()
	var batches []pendingBatch
	for id, u := range h.users {
		if len(u.queue) == 0 {
			continue
		}
		data, err := protocol.Encode(protocol.BatchFrame{Messages: u.queue})
		size := len(u.queue)
		u.queue = nil
		if err != nil {
			h.logger.Warn("failed to encode batch", "error", err, "user_id", id)
			continue
		}
		sockets := make([]*socket, 0, len(u.sockets))
		for s := range u.sockets {
			sockets = append(sockets, s)
		}
		batches = append(batches, pendingBatch{userID: id, data: data, size: size, sockets: sockets})
		h.stats.BatchesFlushed++
	}
	h.mu.Unlock()

	for _, b := range batches {
		for _, s := range b.sockets {
			s.enqueue(b.data)
		}
		h.metrics.BatchFlushed(b.size)
	}
}

func (h *Hub) heartbeatLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.reap()
		}
	}
}

// reap terminates sockets that never answered the previous ping and pings the rest.
func (h *Hub) reap() {
	h.mu.Lock()
	var all []*socket
	for _, u := range h.users {
		for s := range u.sockets {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		if !s.alive.Swap(false) {
			h.logger.Info("terminating unresponsive socket", "user_id", s.userID, "socket_id", s.id)
			h.mu.Lock()
			h.stats.Reaped++
			h.mu.Unlock()
			h.metrics.SocketReaped()
			h.unregister(s)
			continue
		}
		if err := s.ping(); err != nil {
			h.logger.Debug("ping failed", "error", err, "socket_id", s.id)
		}
	}
}

// handleFrame processes one inbound frame from s.
func (h *Hub) handleFrame(s *socket, data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		h.logger.Debug("ignoring malformed frame", "error", err, "user_id", s.userID)
		return
	}
	h.metrics.FrameReceived(string(frame.FrameType()))

	switch f := frame.(type) {
	case protocol.PingFrame:
		pong, _ := protocol.Encode(protocol.PongFrame{})
		s.enqueue(pong)
	case protocol.TypingFrame:
		if f.ReceiverID == "" {
			return
		}
		h.NotifyUser(f.ReceiverID, protocol.TypingFrame{
			SenderID:       s.userID,
			SenderUsername: s.username,
		})
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.cfg.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
	return slices.Contains(h.cfg.AllowedOrigins, origin)
}
