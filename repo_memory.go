package fxlots

import (
	"context"
	"sync"
)

// ===== In-memory adapter =====

type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

var _ BlobStore = (*memoryStore)(nil)

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *memoryStore) Put(_ context.Context, blobs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range blobs {
		s.blobs[k] = append([]byte(nil), b...)
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.blobs, k)
	}
	return nil
}
