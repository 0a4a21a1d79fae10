package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// PresenceLookup resolves a user to their live connection.
type PresenceLookup interface {
	Lookup(userID string) (string, bool)
}

// Delivery reports what a fanout did.
type Delivery struct {
	Delivered []string
	Offline   []string
}

// Fanout routes a stored message to the online participants of its chat.
type Fanout struct {
	presence PresenceLookup
	emitter  Emitter
	metrics  *Metrics
	logger   *slog.Logger
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithFanoutMetrics records deliveries on m.
func WithFanoutMetrics(m *Metrics) FanoutOption {
	return func(f *Fanout) {
		f.metrics = m
	}
}

// NewFanout creates a fanout engine.
func NewFanout(presence PresenceLookup, emitter Emitter, opts ...FanoutOption) *Fanout {
	f := &Fanout{
		presence: presence,
		emitter:  emitter,
		logger:   slog.Default().With("component", "fanout"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BroadcastNewMessage echoes ev back to originConnID as "msg" and pushes one
// "message-received" to every online participant other than the sender, on
// the connection the registry holds for them. Offline participants are
// skipped.
//
// Emit failures are logged by the emitter and never returned. The only error
// is ErrInvalidMessage, in which case nothing is emitted; reporting it is left
// to the caller.
func (f *Fanout) BroadcastNewMessage(ctx context.Context, originConnID string, ev MessageEvent) (Delivery, error) {
	if ev.ChatID == "" || ev.SenderID == "" || ev.Participants == nil {
		return Delivery{}, fmt.Errorf("%w: chat %q, sender %q, participants present %t",
			ErrInvalidMessage, ev.ChatID, ev.SenderID, ev.Participants != nil)
	}

	if originConnID != "" {
		_ = f.emitter.ToConn(ctx, originConnID, EventMessageEcho, ev.Payload)
	}

	recipients := lo.Uniq(lo.Filter(ev.Participants, func(id string, _ int) bool {
		return id != "" && id != ev.SenderID
	}))

	d := Delivery{Delivered: []string{}, Offline: []string{}}
	for _, userID := range recipients {
		connID, online := f.presence.Lookup(userID)
		if !online {
			d.Offline = append(d.Offline, userID)
			continue
		}
		_ = f.emitter.ToConn(ctx, connID, EventMessageReceived, ev.Payload)
		d.Delivered = append(d.Delivered, userID)
	}

	f.metrics.Fanout(len(d.Delivered), len(d.Offline))
	f.logger.Debug("Message fanned out",
		"chat_id", ev.ChatID, "sender_id", ev.SenderID,
		"delivered", len(d.Delivered), "offline", len(d.Offline))
	return d, nil
}
