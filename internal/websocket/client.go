package websocket

import (
	"errors"
	"sync"

	"github.com/coder/websocket"
)

var (
	// ErrUnknownConnection is returned when sending to a connection that is not open.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrSendBufferFull is returned when a client is not draining its queue.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client represents a single connected WebSocket client.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
}

func newClient(id, userID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, buffer),
	}
}

// SendMessage queues msg without blocking. The read lock keeps Close from
// closing the channel underneath a send.
func (c *Client) SendMessage(msg []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.send == nil {
		return ErrUnknownConnection
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close closes the send queue; the write pump exits once it is drained.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

func (c *Client) queue() <-chan []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.send
}
