package websocket

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/nfrund/parley/internal/realtime"
)

var (
	// ErrEventAlreadyExists is returned when trying to add a duplicate event
	ErrEventAlreadyExists = errors.New("event already exists in whitelist")
	// ErrInvalidEvent is returned when an empty event is provided
	ErrInvalidEvent = errors.New("event cannot be empty")
)

// EventWhitelist is the set of inbound event names the gateway forwards to
// the hub. Anything else is dropped at the socket.
type EventWhitelist struct {
	mu     sync.RWMutex
	events []string
}

// NewEventWhitelist creates a whitelist of the given events.
func NewEventWhitelist(events ...string) *EventWhitelist {
	valid := make([]string, 0, len(events))
	for _, e := range events {
		if e != "" && !slices.Contains(valid, e) {
			valid = append(valid, e)
		}
	}
	return &EventWhitelist{events: valid}
}

// IsAllowed checks if an event is in the whitelist.
func (w *EventWhitelist) IsAllowed(event string) bool {
	if event == "" {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Contains(w.events, event)
}

// Add adds an event to the whitelist.
func (w *EventWhitelist) Add(event string) error {
	if event == "" {
		return ErrInvalidEvent
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.events, event) {
		return ErrEventAlreadyExists
	}
	w.events = append(w.events, event)
	slog.Debug("added event to whitelist", "event", event)
	return nil
}

// Len returns the number of allowed events.
func (w *EventWhitelist) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}

// DefaultEventWhitelist allows the chat protocol's client events.
func DefaultEventWhitelist() *EventWhitelist {
	return NewEventWhitelist(
		realtime.EventSetup,
		realtime.EventJoinRoom,
		realtime.EventNewMessage,
	)
}
