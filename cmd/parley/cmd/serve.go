package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/logging"
	"github.com/nfrund/parley/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	Long: `Run the chat server. Configuration is read from the environment, seeded
from a .env file in the working directory when one exists.

The server stops gracefully on SIGINT or SIGTERM: open sockets are closed,
in-flight requests drain, and the database connection is released.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logging.New()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := server.SignalContext(cmd.Context())
	defer stop()

	root := app.New(cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx, root); err != nil {
			slog.Error("Shutdown incomplete", "error", err)
		}
	}()

	srv, err := server.NewFromContainer(root)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	if err := app.StartBackground(ctx, root); err != nil {
		return err
	}
	return srv.Start(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
