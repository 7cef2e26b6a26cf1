package store

import (
	"sync"

	"armback/internal/backup"
)

// MemoryStore is an in-memory implementation of the Store interface. It is
// useful for tests and ephemeral runs. Safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]byte
}

// NewMemoryStore creates a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]byte)}
}

// Get returns the content of a named collection, or nil if absent.
func (m *MemoryStore) Get(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Put replaces the content of a named collection.
func (m *MemoryStore) Put(name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(content))
	copy(stored, content)
	m.collections[name] = stored
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// Compile-time check that MemoryStore implements the Store interface
var _ backup.Store = (*MemoryStore)(nil)
