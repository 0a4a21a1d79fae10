// Package server assembles the HTTP server: middleware, routes and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
	"github.com/nfrund/parley/internal/handlers"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/nfrund/parley/internal/realtime"
	"github.com/nfrund/parley/internal/storage"
	"github.com/nfrund/parley/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

// maxBodySize covers the largest upload plus form overhead.
const maxBodySize = "25M"

// Dependencies are the services the HTTP layer calls into.
type Dependencies struct {
	Accounts handlers.AccountService
	Profiles handlers.ProfileService
	Chats    handlers.ChatService
	Uploads  handlers.Uploader
	Hub      *realtime.Hub
	Gateway  *websocket.Gateway
	// Media serves uploads from local storage. Nil when objects live in S3.
	Media *storage.AferoStore
	// Ping reports database readiness for /health.
	Ping func(ctx context.Context) error
}

// Server holds the echo instance and what it serves.
type Server struct {
	E     *echo.Echo
	cfg   config.Provider
	deps  Dependencies
	authn middleware.TokenAuthenticator
	// metrics holds the HTTP instruments; /metrics also serves the default
	// registry where the realtime metrics live.
	metrics *prometheus.Registry
	logger  *slog.Logger
}

// New creates a server with all middleware and routes registered.
func New(cfg config.Provider, authn middleware.TokenAuthenticator, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	s := &Server{
		E:       e,
		cfg:     cfg,
		deps:    deps,
		authn:   authn,
		metrics: prometheus.NewRegistry(),
		logger:  slog.Default().With("component", "server"),
	}
	s.setupMiddleware()
	s.RegisterRoutes()
	return s
}

// NewFromContainer resolves the server's dependencies from the application
// container.
func NewFromContainer(i do.Injector) (*Server, error) {
	cfg, err := do.Invoke[config.Provider](i)
	if err != nil {
		return nil, err
	}
	accounts, err := do.Invoke[*auth.Service](i)
	if err != nil {
		return nil, err
	}
	profiles, err := do.Invoke[*auth.ProfileService](i)
	if err != nil {
		return nil, err
	}
	chats, err := do.Invoke[*chat.Service](i)
	if err != nil {
		return nil, err
	}
	uploads, err := do.Invoke[*filestore.Service](i)
	if err != nil {
		return nil, err
	}
	hub, err := do.Invoke[*realtime.Hub](i)
	if err != nil {
		return nil, err
	}
	gateway, err := do.Invoke[*websocket.Gateway](i)
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[domain.ObjectStore](i)
	if err != nil {
		return nil, err
	}
	conn, err := do.Invoke[*database.Connection](i)
	if err != nil {
		return nil, err
	}

	deps := Dependencies{
		Accounts: accounts,
		Profiles: profiles,
		Chats:    chats,
		Uploads:  uploads,
		Hub:      hub,
		Gateway:  gateway,
		Ping:     conn.Ping,
	}
	if local, ok := store.(*storage.AferoStore); ok {
		deps.Media = local
	}
	return New(cfg, accounts, deps), nil
}

func (s *Server) setupMiddleware() {
	s.E.Use(echomw.RequestID())
	s.E.Use(middleware.Logger)
	s.E.Use(echomw.Recover())
	s.E.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     s.cfg.GetAllowedOrigins(),
		AllowCredentials: true,
	}))
	s.E.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "parley",
		Registerer: s.metrics,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))
	s.E.Use(echomw.BodyLimit(maxBodySize))
	s.E.Use(middleware.Sessions(s.cfg.GetSessionSecret(), strings.HasPrefix(s.cfg.GetAppBaseURL(), "https://")))
}

// setupErrorHandling installs the JSON error handler and logs a stack trace
// for errors no handler classified.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he := handlers.HTTPError(err); he.Code == http.StatusInternalServerError && he.Internal != nil {
			middleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		}
		handlers.ErrorHandler(err, c)
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.GetServerAddr()
}

func (s *Server) health(c echo.Context) error {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, fmt.Sprintf("database unavailable: %v", err))
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
