package storage

import (
	"context"
	"fmt"

	"seepage/internal/config"
)

// Open builds the blob store selected by cfg.Blob.Driver.
func Open(ctx context.Context, cfg *config.AppConfig) (BlobStore, error) {
	switch cfg.Blob.Driver {
	case "minio", "":
		return NewMinIO(ctx, cfg.MinIO)
	case "s3":
		return NewS3(ctx, cfg.S3)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}
