package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// snapshotMemberName is the archive member written by Encode.
const snapshotMemberName = "snapshot.json"

// zipMagic is the local-file-header signature of a zip container.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Codec packs a snapshot document into a single-file compressed container
// and unpacks it again. The container is a zip archive holding exactly one
// JSON member.
type Codec struct{}

// Encode serializes the snapshot and packs it as the sole member of a zip
// container.
func (Codec) Encode(snap *Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("serializing snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(snapshotMemberName)
	if err != nil {
		return nil, fmt.Errorf("creating archive member: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("writing archive member: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode locates the first container member whose name marks it as the
// snapshot payload and returns its decompressed text. Returns a *FormatError
// when the container is structurally corrupt or has no payload member.
func (Codec) Decode(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Reason: "container is not a readable archive", Err: err}
	}

	for _, f := range zr.File {
		if !isSnapshotMember(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("opening archive member %s", f.Name), Err: err}
		}
		text, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("reading archive member %s", f.Name), Err: err}
		}
		return text, nil
	}

	return nil, &FormatError{Reason: "archive has no snapshot payload member"}
}

// DecodeAny accepts either an archive container or already-decoded snapshot
// text, so restore works from an exported archive and from bare JSON alike.
func (c Codec) DecodeAny(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return c.Decode(data)
	}
	return data, nil
}

func isSnapshotMember(name string) bool {
	return strings.HasSuffix(path.Base(name), ".json")
}

// ArchiveName returns the file name used for an archive produced at t.
func ArchiveName(t time.Time) string {
	return "equipment_backup_" + t.UTC().Format("20060102_150405") + ".zip"
}
