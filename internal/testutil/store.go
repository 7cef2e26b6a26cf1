package testutil

import (
	"testing"

	"armback/internal/backup"
	"armback/internal/store"
)

// NewTestStore creates an in-memory collections store. The store is
// automatically closed when the test completes.
func NewTestStore(t *testing.T) backup.Store {
	t.Helper()

	s := store.NewMemoryStore()
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// FailingStore wraps a Store and fails Put for one named collection. Reads
// pass through untouched.
type FailingStore struct {
	backup.Store
	FailCollection string
	PutErr         error
}

func (f *FailingStore) Put(name string, content []byte) error {
	if name == f.FailCollection {
		return f.PutErr
	}
	return f.Store.Put(name, content)
}

var _ backup.Store = (*FailingStore)(nil)
