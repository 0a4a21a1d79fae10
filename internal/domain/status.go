package domain

import (
	"context"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Tables for stories and revoked tokens.
const (
	TableStatus         = "status"
	TableBlacklistToken = "blacklist_token"
)

// Status is a short-lived image or video story posted by a user.
type Status struct {
	ID        *ID                           `cbor:"id,omitempty" json:"_id,omitempty"`
	User      *User                         `json:"user,omitempty"`
	Media     Media                         `json:"media"`
	CreatedAt *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
}

// StatusRepository is the storage contract for statuses.
type StatusRepository interface {
	Create(ctx context.Context, userID *ID, media Media) (*Status, error)
	FindByID(ctx context.Context, id *ID) (*Status, error)
	// List returns every status, newest first.
	List(ctx context.Context) ([]Status, error)
	Delete(ctx context.Context, id *ID) error
}

// TokenBlacklist remembers signed-out tokens until they expire.
type TokenBlacklist interface {
	Add(ctx context.Context, token string, expires time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	// PurgeExpired deletes entries that expired before now and returns how
	// many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
