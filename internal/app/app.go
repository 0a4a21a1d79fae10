package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/parley/internal/janitor"
	"github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/samber/do/v2"
)

// StartBackground launches the jobs that run beside the HTTP server: the
// last-seen recorder listening for presence changes and the blacklist janitor.
// The recorder stops when ctx is cancelled.
func StartBackground(ctx context.Context, i do.Injector) error {
	bus, err := do.Invoke[*pubsub.WatermillBridge](i)
	if err != nil {
		return err
	}
	recorder, err := do.Invoke[*presence.LastSeenRecorder](i)
	if err != nil {
		return err
	}
	if err := recorder.Start(ctx, bus); err != nil {
		return fmt.Errorf("failed to start last-seen recorder: %w", err)
	}

	j, err := do.Invoke[*janitor.Janitor](i)
	if err != nil {
		return err
	}
	j.Start()
	return nil
}

// Shutdown stops every service the container built, newest first.
func Shutdown(ctx context.Context, root *do.RootScope) error {
	report := root.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		slog.Error("Some services failed to shut down", "report", report.Error())
		return report
	}
	return nil
}
