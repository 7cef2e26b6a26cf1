package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"armback/internal/backup"
)

// TokenSource supplies the cached grant used for silent authentication.
type TokenSource interface {
	Token(ctx context.Context) (*backup.Session, error)
}

// ErrNoCachedToken is returned when silent authentication finds no stored
// grant. Callers treat this as "not logged in", not as a hard failure.
var ErrNoCachedToken = errors.New("no cached access token; run login first")

// FileTokenSource reads a previously stored access token from disk. The
// token file is written by the login command and removed on logout, giving
// the session an explicit lifecycle instead of process-global state.
type FileTokenSource struct {
	Path string
}

func (f *FileTokenSource) Token(_ context.Context) (*backup.Session, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCachedToken
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, ErrNoCachedToken
	}
	return &backup.Session{AccessToken: token}, nil
}

// SaveToken stores an access token for later silent authentication.
func SaveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// DiscardToken removes the cached token, ending the session.
func DiscardToken(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
