package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes how often and how patiently a failing operation is retried.
// Each wait doubles the previous one up to Max, plus up to Jitter of itself.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
	Jitter   float64
}

// DefaultBackoff is used for connecting and reconnecting to SurrealDB.
var DefaultBackoff = Backoff{
	Attempts: 6,
	Base:     100 * time.Millisecond,
	Max:      30 * time.Second,
	Jitter:   0.25,
}

// Do calls fn until it succeeds, the attempts are spent or ctx ends.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := range b.Attempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == b.Attempts-1 {
			break
		}

		wait := b.wait(attempt)
		slog.DebugContext(ctx, "Database attempt failed, backing off",
			"attempt", attempt+1, "of", b.Attempts, "wait_ms", wait.Milliseconds(), "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", b.Attempts, err)
}

func (b Backoff) wait(attempt int) time.Duration {
	d := b.Base
	for range attempt {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Jitter > 0 {
		d += time.Duration(rand.Float64() * b.Jitter * float64(d))
	}
	return d
}
