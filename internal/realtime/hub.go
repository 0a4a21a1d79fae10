package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nfrund/parley/internal/presence"
)

// Hub is the process-wide realtime runtime. It owns the presence registry,
// room membership and the live sessions; nothing else mutates them.
type Hub struct {
	registry *presence.Registry
	rooms    *Rooms
	emitter  Emitter
	fanout   *Fanout
	metrics  *Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMetrics records realtime metrics on m.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithEmitter replaces the transport-backed emitter.
func WithEmitter(e Emitter) HubOption {
	return func(h *Hub) {
		h.emitter = e
	}
}

// NewHub wires a hub over transport.
func NewHub(registry *presence.Registry, transport Transport, opts ...HubOption) *Hub {
	h := &Hub{
		registry: registry,
		rooms:    NewRooms(),
		sessions: make(map[string]*Session),
		logger:   slog.Default().With("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.emitter == nil {
		h.emitter = NewRoomEmitter(h.rooms, transport, h.metrics)
	}
	h.fanout = NewFanout(registry, h.emitter, WithFanoutMetrics(h.metrics))
	return h
}

// Registry exposes the presence registry for read access.
func (h *Hub) Registry() *presence.Registry { return h.registry }

// Rooms exposes room membership for read access.
func (h *Hub) Rooms() *Rooms { return h.rooms }

// Connect starts a session for a freshly opened connection.
func (h *Hub) Connect(connID string, opts ...SessionOption) *Session {
	s := &Session{
		hub:    h,
		connID: connID,
		state:  StateConnected,
		logger: h.logger.With("conn_id", connID),
	}
	for _, opt := range opts {
		opt(s)
	}

	h.mu.Lock()
	h.sessions[connID] = s
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	s.logger.Debug("Connection opened")
	return s
}

// Session returns the live session for connID.
func (h *Hub) Session(connID string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[connID]
	return s, ok
}

// Disconnect tears a connection down. The user's presence entry is removed
// only if it still points at this connection, in which case everyone gets a
// fresh snapshot.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	s, ok := h.sessions[connID]
	delete(h.sessions, connID)
	h.mu.Unlock()
	if !ok {
		return
	}

	userID, first := s.close()
	if !first {
		return
	}
	h.rooms.Drop(connID)
	h.metrics.ConnectionClosed()

	if userID != "" && h.registry.Unregister(userID, connID) {
		h.broadcastPresence(ctx)
	}
	s.logger.Debug("Connection closed", "user_id", userID)
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) broadcastPresence(ctx context.Context) {
	online := h.registry.OnlineUserIDs()
	h.metrics.SetOnlineUsers(len(online))
	_ = h.emitter.Broadcast(ctx, EventOnlineUsers, online)
}
