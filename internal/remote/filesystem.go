package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"armback/internal/backup"
)

// FilesystemRemote replicates archives into a local directory tree, for
// replication targets reachable as a mounted path (external disk, network
// share). Folder ids are absolute directory paths under the root.
type FilesystemRemote struct {
	root string
}

// NewFilesystemRemote creates a filesystem-backed remote rooted at the
// given path.
func NewFilesystemRemote(root string) (*FilesystemRemote, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving remote root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating remote root: %w", err)
	}
	return &FilesystemRemote{root: abs}, nil
}

// Authenticate verifies the root is usable. No token is involved.
func (r *FilesystemRemote) Authenticate(_ context.Context) (*backup.Session, error) {
	info, err := os.Stat(r.root)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: err}
	}
	if !info.IsDir() {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: fmt.Errorf("remote root is not a directory: %s", r.root)}
	}
	return &backup.Session{}, nil
}

// ResolveFolder creates the directory chain under the root. MkdirAll is
// idempotent, so repeated resolution returns the same path without side
// effects.
func (r *FilesystemRemote) ResolveFolder(_ context.Context, _ *backup.Session, segments []string) (string, error) {
	dir := filepath.Join(append([]string{r.root}, segments...)...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &backup.RemoteError{Step: backup.StepResolving, Err: err}
	}
	return dir, nil
}

// Upload writes the archive into the folder directory.
func (r *FilesystemRemote) Upload(_ context.Context, _ *backup.Session, folderID, name string, data []byte) (*backup.RemoteFile, error) {
	dest := filepath.Join(folderID, name)
	if err := r.checkWithinRoot(dest); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	return &backup.RemoteFile{
		ID:          dest,
		Name:        name,
		CreatedTime: info.ModTime(),
		Size:        info.Size(),
	}, nil
}

// List returns the archives in a folder directory, newest first by
// modification time.
func (r *FilesystemRemote) List(_ context.Context, _ *backup.Session, folderID string) ([]backup.RemoteFile, error) {
	if err := r.checkWithinRoot(folderID); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepListing, Err: err}
	}

	entries, err := os.ReadDir(folderID)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepListing, Err: err}
	}

	var files []backup.RemoteFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, &backup.RemoteError{Step: backup.StepListing, Err: err}
		}
		files = append(files, backup.RemoteFile{
			ID:          filepath.Join(folderID, entry.Name()),
			Name:        entry.Name(),
			CreatedTime: info.ModTime(),
			Size:        info.Size(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedTime.After(files[j].CreatedTime)
	})
	return files, nil
}

// Download reads a stored archive. The file id is its path; anything outside
// the root is refused.
func (r *FilesystemRemote) Download(_ context.Context, _ *backup.Session, fileID string) ([]byte, error) {
	if err := r.checkWithinRoot(fileID); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	data, err := os.ReadFile(fileID)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	return data, nil
}

func (r *FilesystemRemote) checkWithinRoot(p string) error {
	clean := filepath.Clean(p)
	if clean != r.root && !strings.HasPrefix(clean, r.root+string(filepath.Separator)) {
		return fmt.Errorf("path escapes remote root: %s", p)
	}
	return nil
}

// Compile-time check that FilesystemRemote implements the Remote interface
var _ backup.Remote = (*FilesystemRemote)(nil)
