package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"armback/internal/backup"
)

// MemoryRemote is an in-memory implementation of the Remote interface,
// modeling the folder/file structure of a drive-style store. It is useful
// for tests, which can inject failures and count folder creations.
// Safe for concurrent use.
type MemoryRemote struct {
	mu      sync.Mutex
	clock   backup.Clock
	folders map[string]memFolder // id -> folder
	files   map[string]memFile   // id -> file
	nextID  int

	// Failure injection for tests. When set, the corresponding operation
	// fails with the given error instead of running.
	AuthErr     error
	UploadErr   error
	ResolveErr  error
	CreateCalls int // folder creations performed across all resolutions
}

type memFolder struct {
	name   string
	parent string
}

type memFile struct {
	folder  string
	file    backup.RemoteFile
	content []byte
}

// NewMemoryRemote creates an empty in-memory remote. The clock stamps
// createdTime on uploads.
func NewMemoryRemote(clock backup.Clock) *MemoryRemote {
	return &MemoryRemote{
		clock:   clock,
		folders: make(map[string]memFolder),
		files:   make(map[string]memFile),
	}
}

func (m *MemoryRemote) Authenticate(ctx context.Context) (*backup.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AuthErr != nil {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: m.AuthErr}
	}
	return &backup.Session{AccessToken: "memory-token"}, nil
}

func (m *MemoryRemote) ResolveFolder(ctx context.Context, _ *backup.Session, segments []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &backup.RemoteError{Step: backup.StepResolving, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResolveErr != nil {
		return "", &backup.RemoteError{Step: backup.StepResolving, Err: m.ResolveErr}
	}

	parent := ""
	for _, name := range segments {
		id := m.findFolder(name, parent)
		if id == "" {
			m.nextID++
			id = fmt.Sprintf("folder-%d", m.nextID)
			m.folders[id] = memFolder{name: name, parent: parent}
			m.CreateCalls++
		}
		parent = id
	}
	return parent, nil
}

// findFolder must be called with the lock held.
func (m *MemoryRemote) findFolder(name, parent string) string {
	for id, f := range m.folders {
		if f.name == name && f.parent == parent {
			return id
		}
	}
	return ""
}

func (m *MemoryRemote) Upload(ctx context.Context, _ *backup.Session, folderID, name string, data []byte) (*backup.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: m.UploadErr}
	}
	if _, ok := m.folders[folderID]; !ok {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Status: 404, Err: fmt.Errorf("folder not found: %s", folderID)}
	}

	m.nextID++
	stored := make([]byte, len(data))
	copy(stored, data)

	file := backup.RemoteFile{
		ID:          fmt.Sprintf("file-%d", m.nextID),
		Name:        name,
		CreatedTime: m.clock.Now(),
		Size:        int64(len(data)),
	}
	m.files[file.ID] = memFile{folder: folderID, file: file, content: stored}
	return &file, nil
}

func (m *MemoryRemote) List(ctx context.Context, _ *backup.Session, folderID string) ([]backup.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepListing, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var files []backup.RemoteFile
	for _, f := range m.files {
		if f.folder == folderID {
			files = append(files, f.file)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CreatedTime.Equal(files[j].CreatedTime) {
			return files[i].ID > files[j].ID
		}
		return files[i].CreatedTime.After(files[j].CreatedTime)
	})
	return files, nil
}

func (m *MemoryRemote) Download(ctx context.Context, _ *backup.Session, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fileID]
	if !ok {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Status: 404, Err: fmt.Errorf("file not found: %s", fileID)}
	}
	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out, nil
}

// FileCount returns the number of stored archives.
func (m *MemoryRemote) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Compile-time check that MemoryRemote implements the Remote interface
var _ backup.Remote = (*MemoryRemote)(nil)
