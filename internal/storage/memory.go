package storage

import (
	"context"
	"sync"
)

// MemoryStorage implements Storage with in-memory storage. Snapshots do not
// survive the process; intended for tests and ephemeral runs.
type MemoryStorage struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		snapshots: make(map[string][]byte),
	}
}

func (s *MemoryStorage) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.snapshots[name]
	if !exists {
		return nil, ErrSnapshotNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStorage) Save(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.snapshots[name] = stored
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, name)
	return nil
}
