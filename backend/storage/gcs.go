package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursehub/backend/utils"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsStore struct {
	log    *utils.Logger
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credentialsPath string, log *utils.Logger) (ObjectStore, error) {
	storeLog := log.With("service", "GCSStore")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	} else {
		storeLog.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, relying on default credentials")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsStore{log: storeLog, client: client, bucket: bucket}, nil
}

func (s *gcsStore) GetMetadata(ctx context.Context, fileID string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	attrs, err := s.client.Bucket(s.bucket).Object(fileID).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Metadata{}, ErrObjectNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read attrs for %q: %w", fileID, err)
	}
	return Metadata{ContentType: attrs.ContentType, Size: attrs.Size}, nil
}

func (s *gcsStore) Delete(ctx context.Context, fileID string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(fileID).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object %q: %w", fileID, err)
	}
	return nil
}
