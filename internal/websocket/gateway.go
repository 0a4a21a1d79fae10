// Package websocket carries the realtime protocol over WebSocket
// connections. It owns the sockets; the realtime hub owns what they mean.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/parley/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second
	// Maximum inbound frame size.
	defaultReadLimit = 64 << 10
	// Outbound frames queued per client before frames are dropped.
	defaultSendBuffer = 256
)

// Hub is the part of realtime.Hub the gateway drives.
type Hub interface {
	Connect(connID string, opts ...realtime.SessionOption) *realtime.Session
	Disconnect(ctx context.Context, connID string)
}

// Authenticator resolves a bearer token presented on the upgrade request to
// a user id.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (string, error)
}

// Gateway accepts WebSocket connections and implements realtime.Transport.
type Gateway struct {
	mu      sync.RWMutex
	clients map[string]*Client

	originPatterns []string
	insecureOrigin bool
	sendBuffer     int
	readLimit      int64
	auth           Authenticator
	whitelist      *EventWhitelist
	logger         *slog.Logger
}

var _ realtime.Transport = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithAllowedOrigins restricts cross-origin upgrades to the given origins
// (full URLs or host patterns). "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(g *Gateway) {
		for _, o := range origins {
			if o == "*" {
				g.insecureOrigin = true
				continue
			}
			if u, err := url.Parse(o); err == nil && u.Host != "" {
				g.originPatterns = append(g.originPatterns, u.Host)
				continue
			}
			g.originPatterns = append(g.originPatterns, o)
		}
	}
}

// WithAuthenticator verifies a "token" query parameter or cookie when one is
// presented. Sockets without a token stay anonymous until setup.
func WithAuthenticator(a Authenticator) Option {
	return func(g *Gateway) {
		g.auth = a
	}
}

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuffer = n
		}
	}
}

// WithWhitelist replaces the inbound event whitelist.
func WithWhitelist(w *EventWhitelist) Option {
	return func(g *Gateway) {
		g.whitelist = w
	}
}

// NewGateway creates a gateway with no open connections.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		clients:    make(map[string]*Client),
		sendBuffer: defaultSendBuffer,
		readLimit:  defaultReadLimit,
		whitelist:  DefaultEventWhitelist(),
		logger:     slog.Default().With("component", "ws_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send queues frame for connID without blocking.
func (g *Gateway) Send(connID string, frame []byte) error {
	g.mu.RLock()
	client, ok := g.clients[connID]
	g.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}
	if err := client.SendMessage(frame); err != nil {
		if errors.Is(err, ErrSendBufferFull) {
			g.logger.Warn("Client send channel full, dropping message", "conn_id", connID)
		}
		return err
	}
	return nil
}

// ConnIDs lists the open connections.
func (g *Gateway) ConnIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.clients))
	for id := range g.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClientCount returns the number of open connections.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Handler upgrades the request and serves the connection until it closes.
func (g *Gateway) Handler(hub Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		var sessionOpts []realtime.SessionOption
		userID, err := g.authenticate(c)
		if err != nil {
			g.logger.Warn("Rejected websocket upgrade", "error", err, "remote_ip", c.RealIP())
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		if userID != "" {
			sessionOpts = append(sessionOpts, realtime.WithAuthenticatedUser(userID))
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns:     g.originPatterns,
			InsecureSkipVerify: g.insecureOrigin,
		})
		if err != nil {
			// Accept has already written the HTTP error.
			g.logger.Warn("Failed to upgrade connection to WebSocket", "error", err)
			return nil
		}
		conn.SetReadLimit(g.readLimit)

		client := newClient(uuid.NewString(), userID, conn, g.sendBuffer)
		g.serve(hub, client, sessionOpts)
		return nil
	}
}

func (g *Gateway) authenticate(c echo.Context) (string, error) {
	if g.auth == nil {
		return "", nil
	}
	token := c.QueryParam("token")
	if token == "" {
		if cookie, err := c.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return "", nil
	}
	return g.auth.AuthenticateToken(c.Request().Context(), token)
}

// serve runs the read loop on the calling goroutine. The request context is
// not used: it ends when the handler returns, and the socket may outlive it
// during shutdown.
func (g *Gateway) serve(hub Hub, client *Client, sessionOpts []realtime.SessionOption) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := g.logger.With("conn_id", client.ID)

	g.mu.Lock()
	g.clients[client.ID] = client
	g.mu.Unlock()

	session := hub.Connect(client.ID, sessionOpts...)
	logger.Info("Client connected", "user_id", client.UserID)

	go g.writePump(ctx, client, logger)

	defer func() {
		cancel()
		g.mu.Lock()
		delete(g.clients, client.ID)
		g.mu.Unlock()
		client.Close()
		hub.Disconnect(context.Background(), client.ID)
		client.Conn.Close(websocket.StatusNormalClosure, "")
		logger.Info("Client disconnected", "user_id", session.UserID())
	}()

	g.readPump(ctx, client, session, logger)
}

func (g *Gateway) readPump(ctx context.Context, client *Client, session *realtime.Session, logger *slog.Logger) {
	for {
		_, data, err := client.Conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				logger.Debug("WebSocket closed normally by client")
			case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled):
			default:
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		frame, err := realtime.DecodeFrame(data)
		if err != nil {
			logger.Warn("Dropping malformed frame", "error", err)
			continue
		}
		if !g.whitelist.IsAllowed(frame.Event) {
			logger.Warn("Dropping event not in whitelist", "event", frame.Event)
			continue
		}
		g.step(ctx, session, frame, logger)
	}
}

// step isolates the read loop from a panicking handler.
func (g *Gateway) step(ctx context.Context, session *realtime.Session, frame realtime.Frame, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling frame", "event", frame.Event, "panic", fmt.Sprint(r))
		}
	}()
	_ = session.Step(ctx, frame)
}

func (g *Gateway) writePump(ctx context.Context, client *Client, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	queue := client.queue()
	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := client.Conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				logger.Warn("WebSocket write error", "error", err)
				client.Conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := client.Conn.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debug("WebSocket ping failed", "error", err)
				client.Conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// CloseAll closes every open connection, used during shutdown.
func (g *Gateway) CloseAll() {
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		c.Conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
