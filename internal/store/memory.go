package store

import (
	"context"
	"sync"
)

// MemoryKV is an in-memory implementation of KV. It is safe for concurrent
// use. Data is lost on service restart - for persistence, use the GCS-backed
// store.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data []byte
	rev  int64
}

// NewMemoryKV creates a new in-memory key-value store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
	}
}

// Get implements the KV interface.
func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[key]
	if !exists {
		return nil, 0, ErrKeyNotFound
	}

	// Return a copy to avoid external modifications
	data := make([]byte, len(entry.data))
	copy(data, entry.data)
	return data, entry.rev, nil
}

// Put implements the KV interface.
func (s *MemoryKV) Put(ctx context.Context, key string, data []byte, expectedRev int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.entries[key]
	currentRev := int64(0)
	if exists {
		currentRev = current.rev
	}
	if currentRev != expectedRev {
		return 0, ErrRevisionMismatch
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	newRev := currentRev + 1
	s.entries[key] = memoryEntry{data: stored, rev: newRev}
	return newRev, nil
}

// Delete implements the KV interface.
func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
