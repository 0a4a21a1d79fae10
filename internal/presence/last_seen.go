package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/pubsub"
)

// LastSeenStore persists the moment a user was last connected.
type LastSeenStore interface {
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}

// LastSeenRecorder stamps the user record when a user goes offline.
type LastSeenRecorder struct {
	store  LastSeenStore
	logger *slog.Logger
}

// NewLastSeenRecorder creates a recorder writing to store.
func NewLastSeenRecorder(store LastSeenStore) *LastSeenRecorder {
	return &LastSeenRecorder{
		store:  store,
		logger: slog.Default().With("component", "last_seen"),
	}
}

// Start subscribes to presence changes until ctx is cancelled.
func (l *LastSeenRecorder) Start(ctx context.Context, sub pubsub.Subscriber) error {
	return pubsub.Subscribe(ctx, sub, TopicChanged, l.handle)
}

func (l *LastSeenRecorder) handle(ctx context.Context, ev Changed) error {
	if ev.Status != StatusOffline {
		return nil
	}
	if err := l.store.TouchLastSeen(ctx, ev.UserID, ev.At); err != nil {
		// Losing a last-seen stamp is harmless; do not nack.
		l.logger.Warn("Failed to record last seen", "user_id", ev.UserID, "error", err)
	}
	return nil
}
