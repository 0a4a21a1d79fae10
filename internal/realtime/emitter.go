package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Emitter pushes server events to clients.
type Emitter interface {
	ToConn(ctx context.Context, connID, event string, payload any) error
	ToRoom(ctx context.Context, roomKey, event string, payload any) error
	Broadcast(ctx context.Context, event string, payload any) error
}

// Transport is the raw socket layer: it can write an encoded frame to one
// live connection and list the live connections.
type Transport interface {
	Send(connID string, frame []byte) error
	ConnIDs() []string
}

// RoomEmitter implements Emitter over a Transport, resolving room keys
// through the membership table.
type RoomEmitter struct {
	rooms     *Rooms
	transport Transport
	metrics   *Metrics
	logger    *slog.Logger
}

// NewRoomEmitter creates an emitter for transport.
func NewRoomEmitter(rooms *Rooms, transport Transport, metrics *Metrics) *RoomEmitter {
	return &RoomEmitter{
		rooms:     rooms,
		transport: transport,
		metrics:   metrics,
		logger:    slog.Default().With("component", "emitter"),
	}
}

func (e *RoomEmitter) ToConn(ctx context.Context, connID, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return e.send(connID, event, frame)
}

func (e *RoomEmitter) ToRoom(ctx context.Context, roomKey, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	var errs []error
	for _, connID := range e.rooms.Members(roomKey) {
		if err := e.send(connID, event, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *RoomEmitter) Broadcast(ctx context.Context, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	var errs []error
	for _, connID := range e.transport.ConnIDs() {
		if err := e.send(connID, event, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *RoomEmitter) send(connID, event string, frame []byte) error {
	if err := e.transport.Send(connID, frame); err != nil {
		e.metrics.EmitFailed(event)
		e.logger.Warn("Failed to emit frame", "conn_id", connID, "event", event, "error", err)
		return fmt.Errorf("emit %s to %s: %w", event, connID, err)
	}
	e.metrics.Emitted(event)
	return nil
}
