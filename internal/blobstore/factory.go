package blobstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/config"
)

// New builds the Store selected by cfg.BlobStore.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobStore {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.BlobFilesystem:
		if cfg.BlobDir == "" {
			return nil, fmt.Errorf("filesystem blob store requires blob_dir to be set")
		}
		return NewFileSystemStore(cfg.BlobDir)
	case config.BlobS3:
		return NewS3Store(ctx, S3Options{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.BlobStore)
	}
}
