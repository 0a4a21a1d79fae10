// Package presence tracks which users currently hold a live realtime
// connection and which connection that is.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/parley/internal/pubsub"
)

// Registry maps a user id to the single connection currently considered
// theirs. A newer registration for the same user replaces the older one.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string // userID -> connID

	publisher pubsub.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option is a function that configures a Registry.
type Option func(*Registry)

// WithPublisher makes the registry publish a Changed event on every mutation.
func WithPublisher(p pubsub.Publisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithClock overrides the clock used to stamp Changed events.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conns:  make(map[string]string),
		logger: slog.Default().With("component", "presence"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records connID as the live connection of userID, overwriting any
// previous one. It returns the connection that was replaced, or "" when the
// user was offline or connID was already on record.
func (r *Registry) Register(userID, connID string) string {
	r.mu.Lock()
	prev, existed := r.conns[userID]
	r.conns[userID] = connID
	online := r.onlineLocked()
	r.mu.Unlock()

	switch {
	case existed && prev == connID:
		r.logger.Debug("Repeated setup on live connection", "user_id", userID, "conn_id", connID)
		return ""
	case existed:
		r.logger.Debug("Connection replaced", "user_id", userID, "old_conn_id", prev, "conn_id", connID)
	default:
		r.logger.Info("User came online", "user_id", userID, "conn_id", connID, "online_count", len(online))
	}

	r.publish(userID, StatusOnline, online)
	return prev
}

// Unregister removes userID only while connID is still the connection on
// record for it. It reports whether the registry changed; a stale connection
// closing after a newer one registered leaves the newer entry in place.
func (r *Registry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	current, ok := r.conns[userID]
	if !ok || current != connID {
		r.mu.Unlock()
		r.logger.Debug("Ignoring unregister of stale connection", "user_id", userID, "conn_id", connID)
		return false
	}
	delete(r.conns, userID)
	online := r.onlineLocked()
	r.mu.Unlock()

	r.logger.Info("User went offline", "user_id", userID, "conn_id", connID, "online_count", len(online))
	r.publish(userID, StatusOffline, online)
	return true
}

// Lookup returns the connection of userID. A miss is not an error.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

// IsOnline reports whether userID has a registered connection.
func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// OnlineUserIDs returns the sorted set of users with a live connection.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) onlineLocked() []string {
	ids := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		ids = append(ids, userID)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) publish(userID string, status Status, online []string) {
	if r.publisher == nil {
		return
	}
	ev := Changed{UserID: userID, Status: status, OnlineUsers: online, At: r.now()}
	if err := pubsub.Publish(context.Background(), r.publisher, TopicChanged, userID, ev); err != nil {
		r.logger.Error("Failed to publish presence change", "user_id", userID, "error", err)
	}
}
