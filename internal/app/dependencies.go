// Package app assembles the application's services in a samber/do container.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/email"
	"github.com/nfrund/parley/internal/filestore"
	"github.com/nfrund/parley/internal/janitor"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/realtime"
	"github.com/nfrund/parley/internal/storage"
	"github.com/nfrund/parley/internal/websocket"
	"github.com/samber/do/v2"
)

// connectTimeout bounds the initial database connection and migration.
const connectTimeout = 30 * time.Second

// New creates a container with every service registered. Services are built
// lazily on first Invoke.
func New(cfg config.Provider) *do.RootScope {
	return do.New(
		func(i do.Injector) { do.ProvideValue(i, cfg) },
		Storage,
		Services,
		Realtime,
	)
}

// Storage registers the database connection, the stores on top of it and the
// object store for uploads.
func Storage(i do.Injector) {
	do.Provide(i, provideConnection)
	do.Provide(i, func(i do.Injector) (*database.UserStore, error) {
		return database.NewUserStore(do.MustInvoke[*database.Connection](i), do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (*database.ChatStore, error) {
		return database.NewChatStore(do.MustInvoke[*database.Connection](i), do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (*database.MessageStore, error) {
		return database.NewMessageStore(do.MustInvoke[*database.Connection](i), do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (*database.StatusStore, error) {
		return database.NewStatusStore(do.MustInvoke[*database.Connection](i), do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (*database.BlacklistStore, error) {
		return database.NewBlacklistStore(do.MustInvoke[*database.Connection](i), do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (domain.ObjectStore, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return storage.New(ctx, do.MustInvoke[config.Provider](i))
	})
}

// Services registers the account, profile, chat and upload use cases.
func Services(i do.Injector) {
	do.Provide(i, func(i do.Injector) (domain.EmailSender, error) {
		return email.NewEmailService(do.MustInvoke[config.Provider](i))
	})
	do.Provide(i, func(i do.Injector) (*filestore.Service, error) {
		return filestore.NewService(do.MustInvoke[domain.ObjectStore](i)), nil
	})
	do.Provide(i, func(i do.Injector) (*auth.TokenService, error) {
		cfg := do.MustInvoke[config.Provider](i)
		return auth.NewTokenService(cfg.GetJWTSecret(), cfg.GetJWTExpire())
	})
	do.Provide(i, func(i do.Injector) (*auth.Service, error) {
		return auth.NewService(
			do.MustInvoke[*database.UserStore](i),
			do.MustInvoke[*database.BlacklistStore](i),
			do.MustInvoke[domain.EmailSender](i),
			do.MustInvoke[*auth.TokenService](i),
			do.MustInvoke[config.Provider](i).GetAppBaseURL(),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*auth.ProfileService, error) {
		return auth.NewProfileService(do.MustInvoke[*database.UserStore](i), do.MustInvoke[*filestore.Service](i)), nil
	})
	do.Provide(i, func(i do.Injector) (*chat.Service, error) {
		return chat.NewService(
			do.MustInvoke[*database.UserStore](i),
			do.MustInvoke[*database.ChatStore](i),
			do.MustInvoke[*database.MessageStore](i),
			do.MustInvoke[*database.StatusStore](i),
			do.MustInvoke[*filestore.Service](i),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*janitor.Janitor, error) {
		return janitor.New(
			do.MustInvoke[*database.BlacklistStore](i),
			do.MustInvoke[config.Provider](i).GetJanitorSchedule(),
		)
	})
}

// Realtime registers the pub/sub bus, presence registry, hub and gateway.
func Realtime(i do.Injector) {
	do.Provide(i, provideTracing)
	do.Provide(i, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		return pubsub.NewWatermillBridge(pubsub.WithTracer(do.MustInvoke[*Tracing](i).Tracer)), nil
	})
	do.Provide(i, func(i do.Injector) (*presence.Registry, error) {
		return presence.NewRegistry(presence.WithPublisher(do.MustInvoke[*pubsub.WatermillBridge](i))), nil
	})
	do.Provide(i, func(i do.Injector) (*presence.LastSeenRecorder, error) {
		return presence.NewLastSeenRecorder(do.MustInvoke[*database.UserStore](i)), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Metrics, error) {
		return realtime.NewMetrics(), nil
	})
	do.Provide(i, func(i do.Injector) (*websocket.Gateway, error) {
		cfg := do.MustInvoke[config.Provider](i)
		return websocket.NewGateway(
			websocket.WithAllowedOrigins(cfg.GetAllowedOrigins()...),
			websocket.WithAuthenticator(do.MustInvoke[*auth.Service](i)),
		), nil
	})
	do.Provide(i, func(i do.Injector) (*realtime.Hub, error) {
		return realtime.NewHub(
			do.MustInvoke[*presence.Registry](i),
			do.MustInvoke[*websocket.Gateway](i),
			realtime.WithMetrics(do.MustInvoke[*realtime.Metrics](i)),
		), nil
	})
}

func provideConnection(i do.Injector) (*database.Connection, error) {
	cfg := do.MustInvoke[config.Provider](i)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn := database.NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx, conn, cfg); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	conn.StartMonitoring()
	slog.Info("Database connection established")
	return conn, nil
}
