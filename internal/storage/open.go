package storage

import (
	"context"

	"foodgram-api/config"
)

// Open builds the image store selected by STORAGE_BACKEND.
func Open(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	if cfg.StorageBackend == "s3" {
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}
	return NewLocalStore(cfg.MediaRoot, cfg.MediaURL), nil
}
