package database

import (
	"context"
	"time"

	"github.com/nfrund/parley/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Runner hands out a live database handle. *Connection implements it.
type Runner interface {
	WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error
}

// Client is a type-safe query client for rows of type T.
type Client[T any] interface {
	// Query executes a raw query and returns the rows of its first statement.
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)

	// QueryOne returns (nil, nil) when no row matches and ErrMultipleResults
	// when more than one does.
	QueryOne(ctx context.Context, query string, params map[string]any) (*T, error)

	// Execute runs a query whose rows are not needed.
	Execute(ctx context.Context, query string, params map[string]any) error
}

// QueryExecutor handles the execution of database queries.
type QueryExecutor[T any] interface {
	Query(ctx context.Context, query string, params map[string]any) ([]T, error)
	Execute(ctx context.Context, query string, params map[string]any) error
}

// ClientOption configures a client.
type ClientOption[T any] func(*client[T])

// WithExecutor replaces the SurrealDB executor, for tests or middleware.
func WithExecutor[T any](executor QueryExecutor[T]) ClientOption[T] {
	return func(c *client[T]) {
		c.executor = executor
	}
}

type client[T any] struct {
	executor       QueryExecutor[T]
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a type-safe client running on db. db may be nil when
// WithExecutor supplies the executor.
func NewClient[T any](db Runner, cfg config.Provider, opts ...ClientOption[T]) (Client[T], error) {
	if cfg == nil {
		return nil, NewDBError(ErrInvalidInput, "config provider cannot be nil")
	}
	queryTimeout := cfg.GetDBQueryTimeout()
	if queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	executeTimeout := cfg.GetDBExecuteTimeout()
	if executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}

	c := &client[T]{
		queryTimeout:   queryTimeout,
		executeTimeout: executeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.executor == nil {
		if db == nil {
			return nil, NewDBError(ErrInvalidInput, "db cannot be nil")
		}
		c.executor = NewSurrealExecutor[T](db)
	}
	return c, nil
}

func (c *client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	ctx, cancel := withDeadline(ctx, readTimeoutKey, c.queryTimeout)
	defer cancel()

	rows, err := c.executor.Query(ctx, query, params)
	if err != nil {
		return nil, NewDBError(classify(err), "query failed").WithQuery(query)
	}
	return rows, nil
}

func (c *client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	rows, err := c.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, NewDBError(ErrMultipleResults, "expected a single row").WithQuery(query)
	}
}

func (c *client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := withDeadline(ctx, writeTimeoutKey, c.executeTimeout)
	defer cancel()

	if err := c.executor.Execute(ctx, query, params); err != nil {
		return NewDBError(classify(err), "execute failed").WithQuery(query)
	}
	return nil
}

// nonNil keeps empty results rendering as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
