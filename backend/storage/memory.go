package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps object metadata in process. Uploads are registered with Put.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Metadata
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Metadata)}
}

func (m *MemoryStore) Put(fileID string, md Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[fileID] = md
}

func (m *MemoryStore) Has(fileID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[fileID]
	return ok
}

func (m *MemoryStore) GetMetadata(_ context.Context, fileID string) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.objects[fileID]
	if !ok {
		return Metadata{}, ErrObjectNotFound
	}
	return md, nil
}

func (m *MemoryStore) Delete(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[fileID]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, fileID)
	return nil
}
