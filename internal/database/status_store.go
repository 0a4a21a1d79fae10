package database

import (
	"context"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
)

// StatusStore implements domain.StatusRepository on SurrealDB.
type StatusStore struct {
	client Client[domain.Status]
}

var _ domain.StatusRepository = (*StatusStore)(nil)

// NewStatusStore creates a status repository on db.
func NewStatusStore(db Runner, cfg config.Provider, opts ...ClientOption[domain.Status]) (*StatusStore, error) {
	c, err := NewClient[domain.Status](db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &StatusStore{client: c}, nil
}

// Create posts a status for the user.
func (s *StatusStore) Create(ctx context.Context, userID *domain.ID, media domain.Media) (*domain.Status, error) {
	query := "CREATE status SET user = $user, media = $media, createdAt = time::now() RETURN id"
	created, err := s.client.QueryOne(ctx, query, map[string]any{"user": userID, "media": media})
	if err != nil {
		return nil, WrapError(err, "failed to create status")
	}
	if created == nil || created.ID == nil {
		return nil, NewDBError(ErrQueryFailed, "failed to create status: no id returned")
	}
	return s.FindByID(ctx, created.ID)
}

// FindByID returns a status with its author populated.
func (s *StatusStore) FindByID(ctx context.Context, id *domain.ID) (*domain.Status, error) {
	status, err := s.client.QueryOne(ctx, "SELECT * FROM $id FETCH user", map[string]any{"id": id})
	if err != nil {
		return nil, WrapError(err, "failed to get status")
	}
	if status == nil {
		return nil, NewDBError(ErrNotFound, "status not found")
	}
	return status, nil
}

// List returns every status, newest first.
func (s *StatusStore) List(ctx context.Context) ([]domain.Status, error) {
	statuses, err := s.client.Query(ctx, "SELECT * FROM status ORDER BY createdAt DESC FETCH user", nil)
	if err != nil {
		return nil, WrapError(err, "failed to list statuses")
	}
	return nonNil(statuses), nil
}

// Delete removes a status.
func (s *StatusStore) Delete(ctx context.Context, id *domain.ID) error {
	return WrapError(s.client.Execute(ctx, "DELETE $id", map[string]any{"id": id}), "failed to delete status")
}
