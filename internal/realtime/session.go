package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// State is a connection's position in its lifecycle.
type State int

const (
	StateConnected State = iota
	StateIdentified
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the per-connection state machine. The transport feeds it one
// frame at a time through Step.
type Session struct {
	hub        *Hub
	connID     string
	authUserID string

	mu     sync.Mutex
	state  State
	userID string
	logger *slog.Logger
}

// SessionOption configures a Session at connect time.
type SessionOption func(*Session)

// WithAuthenticatedUser pins the session to a user proven by the transport
// handshake; setup must then name the same user.
func WithAuthenticatedUser(userID string) SessionOption {
	return func(s *Session) {
		s.authUserID = userID
	}
}

// ConnID returns the connection id.
func (s *Session) ConnID() string { return s.connID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the bound user, or "" before setup.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Step handles one inbound frame to completion. Invalid frames are logged,
// leave the state untouched and are reported through the returned error;
// callers are expected to carry on reading.
func (s *Session) Step(ctx context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return ErrSessionClosed
	}

	s.hub.metrics.FrameReceived(f.Event)

	var err error
	switch f.Event {
	case EventSetup:
		err = s.setup(ctx, f.Data)
	case EventJoinRoom:
		err = s.joinRoom(f.Data)
	case EventNewMessage:
		err = s.newMessage(ctx, f.Data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}

	if err != nil {
		s.hub.metrics.InvalidEvent(f.Event)
		s.logger.Warn("Dropping realtime event", "event", f.Event, "state", s.state.String(), "error", err)
	}
	return err
}

func (s *Session) setup(ctx context.Context, data []byte) error {
	userID, err := parseSetup(data)
	if err != nil {
		return err
	}
	if s.authUserID != "" && userID != s.authUserID {
		return ErrUserMismatch
	}
	if s.userID != "" && s.userID != userID {
		return ErrAlreadyIdentified
	}

	s.userID = userID
	s.logger = s.logger.With("user_id", userID)

	if replaced := s.hub.registry.Register(userID, s.connID); replaced != "" {
		// The older connection stays open but no longer speaks for userID.
		s.hub.rooms.Leave(replaced, userID)
	}
	if err := s.hub.rooms.Join(s.connID, userID); err != nil {
		return err
	}
	if s.state == StateConnected {
		s.state = StateIdentified
	}

	_ = s.hub.emitter.ToConn(ctx, s.connID, EventConnected, nil)
	s.hub.broadcastPresence(ctx)

	s.logger.Info("Connection identified")
	return nil
}

func (s *Session) joinRoom(data []byte) error {
	roomKey, err := parseRoomKey(data)
	if err != nil {
		return err
	}
	if err := s.hub.rooms.Join(s.connID, roomKey); err != nil {
		return err
	}
	s.activate()
	s.logger.Debug("Joined room", "room", roomKey)
	return nil
}

func (s *Session) newMessage(ctx context.Context, data []byte) error {
	ev, err := ParseMessageEvent(data)
	if err != nil {
		return err
	}
	if _, err := s.hub.fanout.BroadcastNewMessage(ctx, s.connID, ev); err != nil {
		return err
	}
	s.activate()
	return nil
}

func (s *Session) activate() {
	if s.state == StateIdentified {
		s.state = StateActive
	}
}

// close moves the session to its terminal state and returns the user that
// was bound, if any. Closing twice reports false.
func (s *Session) close() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return "", false
	}
	s.state = StateDisconnected
	return s.userID, true
}

// IsInvalidEvent reports whether err is one of the log-and-drop event errors.
func IsInvalidEvent(err error) bool {
	for _, target := range []error{
		ErrInvalidSetup, ErrAlreadyIdentified, ErrUserMismatch, ErrEmptyRoom,
		ErrInvalidMessage, ErrUnknownEvent, ErrMalformedFrame,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
