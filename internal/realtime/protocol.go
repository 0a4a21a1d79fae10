// Package realtime implements the socket-facing half of the chat server:
// which connection belongs to which user, which rooms a connection has
// joined, and how a freshly stored message reaches the participants that are
// online right now.
package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event names exchanged with clients.
const (
	EventSetup           = "setup"
	EventConnected       = "connected"
	EventOnlineUsers     = "onlineUsers"
	EventJoinRoom        = "join-room"
	EventNewMessage      = "new-message"
	EventMessageEcho     = "msg"
	EventMessageReceived = "message-received"
)

var (
	ErrInvalidSetup      = errors.New("setup requires a user id")
	ErrAlreadyIdentified = errors.New("connection is already bound to another user")
	ErrUserMismatch      = errors.New("setup user does not match authenticated user")
	ErrEmptyRoom         = errors.New("room key is required")
	ErrInvalidMessage    = errors.New("message event requires chat id, sender id and participants")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrSessionClosed     = errors.New("session is closed")
	ErrMalformedFrame    = errors.New("malformed frame")
)

// Frame is one inbound socket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame parses a raw socket message.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("%w: missing event", ErrMalformedFrame)
	}
	return f, nil
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// EncodeFrame builds an outbound socket message. A nil payload produces a
// frame without data.
func EncodeFrame(event string, payload any) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: event, Data: payload})
}

// Ref is a reference to a stored record that clients send either as a bare
// id string or as a populated object carrying "_id" or "id".
type Ref struct {
	ID string
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		UnderscoreID string `json:"_id"`
		ID           string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.UnderscoreID
	if r.ID == "" {
		r.ID = obj.ID
	}
	return nil
}

// chatRef is the populated chat a new-message frame carries.
type chatRef struct {
	Ref
	Users []Ref
	// hasUsers separates a missing users field from an empty one.
	hasUsers bool
}

func (c *chatRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return c.Ref.UnmarshalJSON(b)
	}
	if err := c.Ref.UnmarshalJSON(b); err != nil {
		return err
	}
	var obj struct {
		Users *[]Ref `json:"users"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Users != nil {
		c.Users = *obj.Users
		c.hasUsers = true
	}
	return nil
}

// MessageEvent is a stored message on its way to live recipients.
type MessageEvent struct {
	ChatID   string
	SenderID string
	// Participants is nil when the client sent no usable participant list.
	Participants []string
	// Payload is forwarded to recipients verbatim.
	Payload json.RawMessage
}

// ParseMessageEvent extracts routing information from a new-message payload.
// Only JSON errors are reported here; field validation happens in the fanout.
func ParseMessageEvent(data json.RawMessage) (MessageEvent, error) {
	var wire struct {
		Chat   chatRef `json:"chatId"`
		Sender Ref     `json:"senderId"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return MessageEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	ev := MessageEvent{
		ChatID:   wire.Chat.ID,
		SenderID: wire.Sender.ID,
		Payload:  data,
	}
	if wire.Chat.hasUsers {
		ev.Participants = make([]string, 0, len(wire.Chat.Users))
		for _, u := range wire.Chat.Users {
			ev.Participants = append(ev.Participants, u.ID)
		}
	}
	return ev, nil
}

func parseSetup(data json.RawMessage) (string, error) {
	var ref Ref
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ref); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidSetup, err)
		}
	}
	if strings.TrimSpace(ref.ID) == "" {
		return "", ErrInvalidSetup
	}
	return ref.ID, nil
}

func parseRoomKey(data json.RawMessage) (string, error) {
	var ref Ref
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ref); err != nil {
			return "", fmt.Errorf("%w: %v", ErrEmptyRoom, err)
		}
	}
	if strings.TrimSpace(ref.ID) == "" {
		return "", ErrEmptyRoom
	}
	return ref.ID, nil
}
