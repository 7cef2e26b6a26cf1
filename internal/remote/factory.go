package remote

import (
	"context"
	"fmt"

	"armback/internal/backup"
	"armback/internal/config"
)

// DefaultDriveBaseURL is the production endpoint of the drive-style API.
// Media uploads use a separate base: the API serves them under /upload in
// front of the service path, not appended to it.
const (
	DefaultDriveBaseURL       = "https://www.googleapis.com/drive/v3"
	DefaultDriveUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"
)

// NewRemoteFromConfig creates a Remote implementation based on the remote config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (backup.Remote, error) {
	switch cfg.Type {
	case "drive":
		if cfg.TokenPath == "" {
			return nil, fmt.Errorf("drive remote requires token_path to be set")
		}
		base := cfg.BaseURL
		if base == "" {
			base = DefaultDriveBaseURL
		}
		uploadBase := cfg.UploadBaseURL
		if uploadBase == "" {
			uploadBase = DefaultDriveUploadBaseURL
		}
		return NewDriveRemote(base, uploadBase, &FileTokenSource{Path: cfg.TokenPath}, nil), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
		}
		return NewS3Remote(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		return NewFilesystemRemote(cfg.FSRoot)
	case "memory":
		return NewMemoryRemote(backup.RealClock{}), nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
