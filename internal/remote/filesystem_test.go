package remote_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"armback/internal/backup"
	"armback/internal/remote"
)

func TestFilesystemRemote(t *testing.T) {
	t.Run("upload list download round trip", func(t *testing.T) {
		t.Parallel()
		r, err := remote.NewFilesystemRemote(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystemRemote() error = %v", err)
		}
		ctx := context.Background()

		sess, err := r.Authenticate(ctx)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}

		folderID, err := r.ResolveFolder(ctx, sess, []string{"EquipmentTracker", "Backups"})
		if err != nil {
			t.Fatalf("ResolveFolder() error = %v", err)
		}

		content := []byte("archive bytes")
		uploaded, err := r.Upload(ctx, sess, folderID, "a.zip", content)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if uploaded.Size != int64(len(content)) {
			t.Errorf("size = %d, want %d", uploaded.Size, len(content))
		}

		files, err := r.List(ctx, sess, folderID)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(files) != 1 || files[0].Name != "a.zip" {
			t.Fatalf("files = %v, want one a.zip", files)
		}

		data, err := r.Download(ctx, sess, uploaded.ID)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if string(data) != string(content) {
			t.Errorf("downloaded %q, want %q", data, content)
		}
	})

	t.Run("listing is newest first", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		r, err := remote.NewFilesystemRemote(root)
		if err != nil {
			t.Fatalf("NewFilesystemRemote() error = %v", err)
		}
		ctx := context.Background()
		sess, _ := r.Authenticate(ctx)
		folderID, err := r.ResolveFolder(ctx, sess, []string{"Backups"})
		if err != nil {
			t.Fatalf("ResolveFolder() error = %v", err)
		}

		if _, err := r.Upload(ctx, sess, folderID, "old.zip", []byte("old")); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		// Push the first file's mtime back so ordering does not depend on
		// filesystem timestamp resolution.
		past := time.Now().Add(-time.Hour)
		os.Chtimes(filepath.Join(folderID, "old.zip"), past, past)

		if _, err := r.Upload(ctx, sess, folderID, "new.zip", []byte("new")); err != nil {
			t.Fatalf("Upload() error = %v", err)
		}

		files, err := r.List(ctx, sess, folderID)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("got %d files, want 2", len(files))
		}
		if files[0].Name != "new.zip" || files[1].Name != "old.zip" {
			t.Errorf("order = %s, %s; want new.zip, old.zip", files[0].Name, files[1].Name)
		}
	})

	t.Run("paths outside the root are refused", func(t *testing.T) {
		t.Parallel()
		r, err := remote.NewFilesystemRemote(t.TempDir())
		if err != nil {
			t.Fatalf("NewFilesystemRemote() error = %v", err)
		}
		ctx := context.Background()
		sess, _ := r.Authenticate(ctx)

		_, err = r.Download(ctx, sess, "/etc/passwd")
		var rerr *backup.RemoteError
		if !errors.As(err, &rerr) {
			t.Fatalf("Download() error = %v, want *RemoteError", err)
		}

		if _, err := r.Upload(ctx, sess, "/tmp", "evil.zip", []byte("x")); !errors.As(err, &rerr) {
			t.Fatalf("Upload() error = %v, want *RemoteError", err)
		}
	})
}

func TestFileTokenSource(t *testing.T) {
	t.Run("missing token file is ErrNoCachedToken", func(t *testing.T) {
		t.Parallel()
		src := &remote.FileTokenSource{Path: filepath.Join(t.TempDir(), "token")}

		_, err := src.Token(context.Background())
		if !errors.Is(err, remote.ErrNoCachedToken) {
			t.Fatalf("Token() error = %v, want ErrNoCachedToken", err)
		}
	})

	t.Run("stored token round trips", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "sub", "token")

		if err := remote.SaveToken(path, "secret-token\n"); err != nil {
			t.Fatalf("SaveToken() error = %v", err)
		}

		src := &remote.FileTokenSource{Path: path}
		sess, err := src.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if sess.AccessToken != "secret-token" {
			t.Errorf("token = %q, want trimmed secret-token", sess.AccessToken)
		}
	})

	t.Run("discarded token no longer authenticates", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "token")
		if err := remote.SaveToken(path, "secret"); err != nil {
			t.Fatalf("SaveToken() error = %v", err)
		}
		if err := remote.DiscardToken(path); err != nil {
			t.Fatalf("DiscardToken() error = %v", err)
		}

		src := &remote.FileTokenSource{Path: path}
		if _, err := src.Token(context.Background()); !errors.Is(err, remote.ErrNoCachedToken) {
			t.Fatalf("Token() error = %v, want ErrNoCachedToken", err)
		}
	})
}
