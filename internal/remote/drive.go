package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"armback/internal/backup"
)

// folderMIMEType marks folder entries in the drive API.
const folderMIMEType = "application/vnd.google-apps.folder"

// defaultHTTPTimeout bounds each request when the caller supplies no client.
const defaultHTTPTimeout = 30 * time.Second

// DriveRemote talks to a drive-style file-hosting REST API over bearer-token
// authorization. Media uploads live under a separate base URL because the
// API mounts them outside the service path. Both bases are configurable so
// tests can point the adapter at a local server.
//
// Endpoints:
//
//	GET  {base}/files?q=...            search by name, parent, trashed filter
//	POST {base}/files                  create folder (metadata only)
//	POST {uploadBase}/files            multipart upload (metadata + binary)
//	GET  {base}/files/{id}?alt=media   download raw bytes
type DriveRemote struct {
	baseURL       string
	uploadBaseURL string
	tokens        TokenSource
	client        *http.Client
}

// NewDriveRemote creates a drive adapter. A nil client gets a default one
// with a request timeout; the scheduler additionally bounds each step with a
// context deadline.
func NewDriveRemote(baseURL, uploadBaseURL string, tokens TokenSource, client *http.Client) *DriveRemote {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &DriveRemote{
		baseURL:       strings.TrimRight(baseURL, "/"),
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		tokens:        tokens,
		client:        client,
	}
}

// driveFile is the wire shape of a file resource. Size comes back as a
// decimal string.
type driveFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedTime time.Time `json:"createdTime"`
	Size        string    `json:"size,omitempty"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

func (f driveFile) toRemoteFile() backup.RemoteFile {
	size, _ := strconv.ParseInt(f.Size, 10, 64)
	return backup.RemoteFile{
		ID:          f.ID,
		Name:        f.Name,
		CreatedTime: f.CreatedTime,
		Size:        size,
	}
}

// Authenticate performs the silent attempt: it only consults the cached
// grant. A stale token is not detected here; it surfaces as a 401 on the
// first real call.
func (d *DriveRemote) Authenticate(ctx context.Context) (*backup.Session, error) {
	sess, err := d.tokens.Token(ctx)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepAuthenticating, Err: err}
	}
	return sess, nil
}

// ResolveFolder finds or creates each path segment in order under the
// previous one. At most one create per segment; repeated resolution returns
// the same ids.
func (d *DriveRemote) ResolveFolder(ctx context.Context, sess *backup.Session, segments []string) (string, error) {
	parent := ""
	for _, name := range segments {
		id, err := d.findFolder(ctx, sess, name, parent)
		if err != nil {
			return "", err
		}
		if id == "" {
			id, err = d.createFolder(ctx, sess, name, parent)
			if err != nil {
				return "", err
			}
		}
		parent = id
	}
	return parent, nil
}

func (d *DriveRemote) findFolder(ctx context.Context, sess *backup.Session, name, parent string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMIMEType)
	if parent != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parent))
	}
	params := url.Values{
		"q":      {q},
		"fields": {"files(id,name)"},
	}

	var list driveFileList
	if err := d.getJSON(ctx, sess, backup.StepResolving, d.baseURL+"/files?"+params.Encode(), &list); err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].ID, nil
}

func (d *DriveRemote) createFolder(ctx context.Context, sess *backup.Session, name, parent string) (string, error) {
	metadata := map[string]any{
		"name":     name,
		"mimeType": folderMIMEType,
	}
	if parent != "" {
		metadata["parents"] = []string{parent}
	}

	body, err := json.Marshal(metadata)
	if err != nil {
		return "", &backup.RemoteError{Step: backup.StepResolving, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", &backup.RemoteError{Step: backup.StepResolving, Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	var created driveFile
	if err := d.doJSON(sess, backup.StepResolving, req, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Upload sends the archive as a multipart/related request: a JSON metadata
// part naming the file and its parent folder, then the binary part.
func (d *DriveRemote) Upload(ctx context.Context, sess *backup.Session, folderID, name string, data []byte) (*backup.RemoteFile, error) {
	metadata := map[string]any{"name": name}
	if folderID != "" {
		metadata["parents"] = []string{folderID}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	if err := json.NewEncoder(metaPart).Encode(metadata); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}

	binPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/zip"},
	})
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	if _, err := binPart.Write(data); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.uploadBaseURL+"/files?uploadType=multipart", &body)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepUploading, Err: err}
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	var uploaded driveFile
	if err := d.doJSON(sess, backup.StepUploading, req, &uploaded); err != nil {
		return nil, err
	}
	rf := uploaded.toRemoteFile()
	return &rf, nil
}

// List returns the archives in a folder, most recently created first.
func (d *DriveRemote) List(ctx context.Context, sess *backup.Session, folderID string) ([]backup.RemoteFile, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))
	params := url.Values{
		"q":       {q},
		"orderBy": {"createdTime desc"},
		"fields":  {"files(id,name,createdTime,size)"},
	}

	var list driveFileList
	if err := d.getJSON(ctx, sess, backup.StepListing, d.baseURL+"/files?"+params.Encode(), &list); err != nil {
		return nil, err
	}

	files := make([]backup.RemoteFile, len(list.Files))
	for i, f := range list.Files {
		files[i] = f.toRemoteFile()
	}
	// The query asks for createdTime descending; sort again locally so the
	// ordering contract holds even against a server that ignores orderBy.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedTime.After(files[j].CreatedTime)
	})
	return files, nil
}

// Download returns the raw bytes of a stored archive.
func (d *DriveRemote) Download(ctx context.Context, sess *backup.Session, fileID string) ([]byte, error) {
	u := d.baseURL + "/files/" + url.PathEscape(fileID) + "?alt=media"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}

	resp, err := d.do(sess, backup.StepDownloading, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backup.RemoteError{Step: backup.StepDownloading, Err: err}
	}
	return data, nil
}

// do executes a request with bearer authorization and maps non-2xx
// responses to *RemoteError carrying the status code.
func (d *DriveRemote) do(sess *backup.Session, step backup.Step, req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &backup.RemoteError{Step: step, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &backup.RemoteError{
			Step:   step,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}
	return resp, nil
}

func (d *DriveRemote) doJSON(sess *backup.Session, step backup.Step, req *http.Request, out any) error {
	resp, err := d.do(sess, step, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &backup.RemoteError{Step: step, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (d *DriveRemote) getJSON(ctx context.Context, sess *backup.Session, step backup.Step, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &backup.RemoteError{Step: step, Err: err}
	}
	return d.doJSON(sess, step, req, out)
}

// escapeQuery escapes single quotes inside a drive query literal.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// Compile-time check that DriveRemote implements the Remote interface
var _ backup.Remote = (*DriveRemote)(nil)
