package database

import (
	"context"

	"github.com/surrealdb/surrealdb.go"
)

// SurrealExecutor runs queries through the surrealdb.go driver.
type SurrealExecutor[T any] struct {
	db Runner
}

// NewSurrealExecutor creates an executor on db.
func NewSurrealExecutor[T any](db Runner) *SurrealExecutor[T] {
	return &SurrealExecutor[T]{db: db}
}

// Query returns the rows of the first statement's result.
func (e *SurrealExecutor[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	var rows []T
	err := e.db.WithConnection(ctx, func(db *surrealdb.DB) error {
		results, err := surrealdb.Query[[]T](ctx, db, query, params)
		if err != nil {
			return err
		}
		if results != nil && len(*results) > 0 {
			rows = (*results)[0].Result
		}
		return nil
	})
	return rows, err
}

// Execute runs query and discards its result.
func (e *SurrealExecutor[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	return e.db.WithConnection(ctx, func(db *surrealdb.DB) error {
		_, err := surrealdb.Query[any](ctx, db, query, params)
		return err
	})
}
