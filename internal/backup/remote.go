package backup

import (
	"context"
	"time"
)

// Session carries the authenticated state for remote calls. It is created by
// Authenticate, passed explicitly into every subsequent call, and discarded
// on failure or logout, never held as process-global state.
type Session struct {
	AccessToken string
	Expiry      time.Time
}

// RemoteFile is a read-only projection of an archive stored remotely. It is
// never cached locally beyond a listing request.
type RemoteFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedTime time.Time `json:"createdTime"`
	Size        int64     `json:"size"`
}

// Remote is the remote object-store adapter used as a replication target for
// archives. All operations are network calls; failures surface as
// *RemoteError and no operation retries internally. Implementations must
// honor context cancellation on every call.
type Remote interface {
	// Authenticate establishes a session. The first attempt must be silent
	// (cached grant only); it may fail when no valid grant exists, and that
	// failure is non-fatal to callers higher up.
	Authenticate(ctx context.Context) (*Session, error)

	// ResolveFolder walks the path segments in order, finding or creating
	// a folder for each under the previous one, and returns the id of the
	// final segment. Must be idempotent: repeated resolution with the same
	// segments performs at most one create per segment and returns a stable
	// id.
	ResolveFolder(ctx context.Context, sess *Session, segments []string) (string, error)

	// Upload stores an archive under the given folder.
	Upload(ctx context.Context, sess *Session, folderID, name string, data []byte) (*RemoteFile, error)

	// List returns the archives in a folder, most recently created first.
	List(ctx context.Context, sess *Session, folderID string) ([]RemoteFile, error)

	// Download returns the raw bytes of a stored archive.
	Download(ctx context.Context, sess *Session, fileID string) ([]byte, error)
}
