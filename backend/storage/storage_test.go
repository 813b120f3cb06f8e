package storage

import (
	"context"
	"testing"

	"coursehub/backend/config"
	"coursehub/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetMetadata(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	s.Put("essay.pdf", Metadata{ContentType: "application/pdf", Size: 1024})
	md, err := s.GetMetadata(ctx, "essay.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", md.ContentType)
	assert.Equal(t, int64(1024), md.Size)

	require.NoError(t, s.Delete(ctx, "essay.pdf"))
	assert.False(t, s.Has("essay.pdf"))
	assert.ErrorIs(t, s.Delete(ctx, "essay.pdf"), ErrObjectNotFound)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageDriver: "memory"}, utils.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = New(context.Background(), &config.Config{StorageDriver: "ftp"}, utils.NopLogger())
	assert.Error(t, err)

	_, err = New(context.Background(), &config.Config{StorageDriver: "gcs"}, utils.NopLogger())
	assert.Error(t, err)
}
