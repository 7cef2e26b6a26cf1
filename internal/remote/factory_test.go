package remote_test

import (
	"context"
	"testing"

	"armback/internal/config"
	"armback/internal/remote"
)

func TestNewRemoteFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("drive remote", func(t *testing.T) {
		t.Parallel()
		r, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{
			Type:      "drive",
			TokenPath: "/tmp/token",
		})
		if err != nil {
			t.Fatalf("NewRemoteFromConfig() error = %v", err)
		}
		if _, ok := r.(*remote.DriveRemote); !ok {
			t.Errorf("got %T, want *DriveRemote", r)
		}
	})

	t.Run("drive requires a token path", func(t *testing.T) {
		t.Parallel()
		if _, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{Type: "drive"}); err == nil {
			t.Fatal("NewRemoteFromConfig() error = nil, want error")
		}
	})

	t.Run("filesystem remote", func(t *testing.T) {
		t.Parallel()
		r, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{
			Type:   "filesystem",
			FSRoot: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewRemoteFromConfig() error = %v", err)
		}
		if _, ok := r.(*remote.FilesystemRemote); !ok {
			t.Errorf("got %T, want *FilesystemRemote", r)
		}
	})

	t.Run("s3 requires a bucket", func(t *testing.T) {
		t.Parallel()
		if _, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{Type: "s3"}); err == nil {
			t.Fatal("NewRemoteFromConfig() error = nil, want error")
		}
	})

	t.Run("memory remote", func(t *testing.T) {
		t.Parallel()
		r, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewRemoteFromConfig() error = %v", err)
		}
		if _, ok := r.(*remote.MemoryRemote); !ok {
			t.Errorf("got %T, want *MemoryRemote", r)
		}
	})

	t.Run("unknown type is an error", func(t *testing.T) {
		t.Parallel()
		if _, err := remote.NewRemoteFromConfig(ctx, config.RemoteConfig{Type: "ftp"}); err == nil {
			t.Fatal("NewRemoteFromConfig() error = nil, want error")
		}
	})
}
