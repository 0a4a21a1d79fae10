package database

import (
	"context"
	"time"
)

type timeoutKey int

const (
	readTimeoutKey timeoutKey = iota
	writeTimeoutKey
)

// WithQueryTimeout overrides the configured read timeout for queries run with ctx.
func WithQueryTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, readTimeoutKey, d)
}

// WithExecuteTimeout overrides the configured write timeout for statements run with ctx.
func WithExecuteTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, writeTimeoutKey, d)
}

func withDeadline(ctx context.Context, key timeoutKey, fallback time.Duration) (context.Context, context.CancelFunc) {
	if d, ok := ctx.Value(key).(time.Duration); ok && d > 0 {
		fallback = d
	}
	return context.WithTimeout(ctx, fallback)
}
