package store_test

import (
	"path/filepath"
	"testing"

	"armback/internal/backup"
	"armback/internal/config"
	"armback/internal/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestSQLiteStore(t *testing.T) {
	t.Run("missing collection reads as nil without error", func(t *testing.T) {
		t.Parallel()
		s := newSQLiteStore(t)

		got, err := s.Get(backup.CollectionMaterials)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != nil {
			t.Errorf("Get() = %v, want nil", got)
		}
	})

	t.Run("put then get round trips", func(t *testing.T) {
		t.Parallel()
		s := newSQLiteStore(t)

		want := `[{"id":"m1","name":"M4"}]`
		if err := s.Put(backup.CollectionMaterials, []byte(want)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, err := s.Get(backup.CollectionMaterials)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("Get() = %s, want %s", got, want)
		}
	})

	t.Run("put overwrites previous content", func(t *testing.T) {
		t.Parallel()
		s := newSQLiteStore(t)

		if err := s.Put(backup.CollectionSettings, []byte(`{"v":1}`)); err != nil {
			t.Fatalf("first Put() error = %v", err)
		}
		if err := s.Put(backup.CollectionSettings, []byte(`{"v":2}`)); err != nil {
			t.Fatalf("second Put() error = %v", err)
		}
		got, err := s.Get(backup.CollectionSettings)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `{"v":2}` {
			t.Errorf("Get() = %s, want {\"v\":2}", got)
		}
	})

	t.Run("collections are independent", func(t *testing.T) {
		t.Parallel()
		s := newSQLiteStore(t)

		s.Put(backup.CollectionMaterials, []byte(`[1]`))
		s.Put(backup.CollectionPersonnel, []byte(`[2]`))

		got, _ := s.Get(backup.CollectionMaterials)
		if string(got) != `[1]` {
			t.Errorf("materials = %s, want [1]", got)
		}
	})

	t.Run("data survives reopening the file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "persist.db")

		s, err := store.NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		if err := s.Put(backup.CollectionMaterials, []byte(`[{"id":"m1"}]`)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		reopened, err := store.NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("reopening: %v", err)
		}
		defer reopened.Close()

		got, err := reopened.Get(backup.CollectionMaterials)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `[{"id":"m1"}]` {
			t.Errorf("Get() = %s after reopen", got)
		}
	})
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("sqlite store", func(t *testing.T) {
		t.Parallel()
		s, err := store.NewStoreFromConfig(config.StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(t.TempDir(), "db"),
		}, "device-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer s.Close()

		if _, ok := s.(*store.SQLiteStore); !ok {
			t.Errorf("got %T, want *SQLiteStore", s)
		}
	})

	t.Run("sqlite requires a data dir", func(t *testing.T) {
		t.Parallel()
		if _, err := store.NewStoreFromConfig(config.StoreConfig{Type: "sqlite"}, "d"); err == nil {
			t.Fatal("NewStoreFromConfig() error = nil, want error")
		}
	})

	t.Run("memory store", func(t *testing.T) {
		t.Parallel()
		s, err := store.NewStoreFromConfig(config.StoreConfig{Type: "memory"}, "device-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*store.MemoryStore); !ok {
			t.Errorf("got %T, want *MemoryStore", s)
		}
	})

	t.Run("unknown type is an error", func(t *testing.T) {
		t.Parallel()
		if _, err := store.NewStoreFromConfig(config.StoreConfig{Type: "redis"}, "d"); err == nil {
			t.Fatal("NewStoreFromConfig() error = nil, want error")
		}
	})
}
