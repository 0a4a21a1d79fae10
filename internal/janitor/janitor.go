// Package janitor runs periodic housekeeping jobs.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/robfig/cron/v3"
)

// purgeTimeout bounds a single purge run.
const purgeTimeout = 30 * time.Second

// Janitor deletes expired token blacklist entries on a cron schedule.
type Janitor struct {
	blacklist domain.TokenBlacklist
	cron      *cron.Cron
	schedule  string
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a janitor. schedule accepts standard five-field expressions and
// descriptors such as "@every 10m".
func New(blacklist domain.TokenBlacklist, schedule string) (*Janitor, error) {
	j := &Janitor{
		blacklist: blacklist,
		cron:      cron.New(),
		schedule:  schedule,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default().With("component", "janitor"),
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running jobs in the background.
func (j *Janitor) Start() {
	j.logger.Info("Janitor started", "schedule", j.schedule)
	j.cron.Start()
}

// Shutdown halts the scheduler and waits for a running job, or ctx, to finish.
func (j *Janitor) Shutdown(ctx context.Context) error {
	done := j.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PurgeOnce removes expired blacklist entries immediately.
func (j *Janitor) PurgeOnce(ctx context.Context) (int, error) {
	n, err := j.blacklist.PurgeExpired(ctx, j.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("Purged expired tokens", "count", n)
	}
	return n, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	if _, err := j.PurgeOnce(ctx); err != nil {
		j.logger.Error("Token purge failed", "error", err)
	}
}
