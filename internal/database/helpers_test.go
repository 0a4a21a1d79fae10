package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nfrund/parley/internal/config"
	"github.com/stretchr/testify/require"
)

type executedQuery struct {
	query  string
	params map[string]any
}

// fakeExecutor records every statement and answers Query calls from a queue.
type fakeExecutor[T any] struct {
	mu      sync.Mutex
	calls   []executedQuery
	results [][]T
	err     error
	// deadlines records whether each call carried a context deadline.
	deadlines []time.Duration
}

func (f *fakeExecutor[T]) record(ctx context.Context, query string, params map[string]any) {
	f.calls = append(f.calls, executedQuery{query: query, params: params})
	if dl, ok := ctx.Deadline(); ok {
		f.deadlines = append(f.deadlines, time.Until(dl))
	}
}

func (f *fakeExecutor[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, query, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	rows := f.results[0]
	f.results = f.results[1:]
	return rows, nil
}

func (f *fakeExecutor[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(ctx, query, params)
	return f.err
}

func (f *fakeExecutor[T]) push(rows ...T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, rows)
}

func (f *fakeExecutor[T]) last(t *testing.T) executedQuery {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls, "no statement executed")
	return f.calls[len(f.calls)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		DBQueryTimeout:   2 * time.Second,
		DBExecuteTimeout: 3 * time.Second,
	}
}
