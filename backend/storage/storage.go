// Package storage is the object-storage collaborator used by file submissions.
package storage

import (
	"context"
	"errors"
	"fmt"

	"coursehub/backend/config"
	"coursehub/backend/utils"
)

var ErrObjectNotFound = errors.New("object not found")

type Metadata struct {
	ContentType string
	Size        int64
}

type ObjectStore interface {
	GetMetadata(ctx context.Context, fileID string) (Metadata, error)
	Delete(ctx context.Context, fileID string) error
}

// New picks the store configured by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config, log *utils.Logger) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials, log)
	case "memory", "":
		log.Warn("Using in-memory object storage; uploaded files are not persisted")
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
