package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
)

type blacklistRow struct {
	ID        *domain.ID `cbor:"id,omitempty"`
	TokenHash string     `cbor:"tokenHash"`
	Count     int        `cbor:"count"`
}

// BlacklistStore implements domain.TokenBlacklist. Tokens are stored as
// SHA-256 digests.
type BlacklistStore struct {
	client Client[blacklistRow]
}

var _ domain.TokenBlacklist = (*BlacklistStore)(nil)

// NewBlacklistStore creates a token blacklist on db.
func NewBlacklistStore(db Runner, cfg config.Provider, opts ...ClientOption[blacklistRow]) (*BlacklistStore, error) {
	c, err := NewClient[blacklistRow](db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &BlacklistStore{client: c}, nil
}

// Add revokes token until expires. Revoking twice is not an error.
func (s *BlacklistStore) Add(ctx context.Context, token string, expires time.Time) error {
	query := `CREATE blacklist_token SET
		tokenHash = $hash, expiresAt = type::datetime($expires), createdAt = time::now()
		RETURN NONE`
	err := s.client.Execute(ctx, query, map[string]any{
		"hash":    hashToken(token),
		"expires": datetime(expires),
	})
	if IsAlreadyExists(err) {
		return nil
	}
	return WrapError(err, "failed to blacklist token")
}

// Contains reports whether token is revoked and not yet expired.
func (s *BlacklistStore) Contains(ctx context.Context, token string) (bool, error) {
	query := "SELECT count() AS count FROM blacklist_token WHERE tokenHash = $hash AND expiresAt > time::now() GROUP ALL"
	row, err := s.client.QueryOne(ctx, query, map[string]any{"hash": hashToken(token)})
	if err != nil {
		return false, WrapError(err, "failed to check token blacklist")
	}
	return row != nil && row.Count > 0, nil
}

// PurgeExpired deletes entries that expired before now.
func (s *BlacklistStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	query := "DELETE blacklist_token WHERE expiresAt <= type::datetime($now) RETURN BEFORE"
	rows, err := s.client.Query(ctx, query, map[string]any{"now": datetime(now)})
	if err != nil {
		return 0, WrapError(err, "failed to purge token blacklist")
	}
	return len(rows), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
