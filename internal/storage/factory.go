package storage

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
)

// New builds the object store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg config.Provider) (domain.ObjectStore, error) {
	switch cfg.GetStorageBackend() {
	case "local", "":
		return NewLocalStore(cfg.GetStorageDir(), cfg.GetStoragePublicURL())
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.GetS3Bucket(),
			Region:          cfg.GetS3Region(),
			Endpoint:        cfg.GetS3Endpoint(),
			AccessKeyID:     cfg.GetS3AccessKeyID(),
			SecretAccessKey: cfg.GetS3SecretAccessKey(),
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.GetStorageBackend())
	}
}
