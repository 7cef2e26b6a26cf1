package backup_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"armback/internal/backup"
	"armback/internal/testutil"
)

func TestCodec_EncodeDecode(t *testing.T) {
	t.Run("round trip preserves the snapshot document", func(t *testing.T) {
		t.Parallel()
		var codec backup.Codec

		snap := &backup.Snapshot{
			Version:   backup.SchemaVersion,
			Timestamp: testutil.FixedClock().Now(),
			DomainState: map[string]json.RawMessage{
				backup.CollectionMaterials: json.RawMessage(`[{"id":"m1"}]`),
				backup.CollectionSettings:  json.RawMessage(`{"admins":["smith"]}`),
			},
		}

		data, err := codec.Encode(snap)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		text, err := codec.Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}

		got, err := backup.ParseSnapshot(text)
		if err != nil {
			t.Fatalf("ParseSnapshot() error = %v", err)
		}
		if got.Version != snap.Version {
			t.Errorf("version = %q, want %q", got.Version, snap.Version)
		}
		if !got.Timestamp.Equal(snap.Timestamp) {
			t.Errorf("timestamp = %v, want %v", got.Timestamp, snap.Timestamp)
		}
		if string(got.DomainState[backup.CollectionMaterials]) != `[{"id":"m1"}]` {
			t.Errorf("materials = %s", got.DomainState[backup.CollectionMaterials])
		}
	})

	t.Run("encoded container is a zip with one json member", func(t *testing.T) {
		t.Parallel()
		var codec backup.Codec

		data, err := codec.Encode(&backup.Snapshot{Version: backup.SchemaVersion})
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}

		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("container is not a zip: %v", err)
		}
		if len(zr.File) != 1 {
			t.Fatalf("got %d members, want 1", len(zr.File))
		}
		if zr.File[0].Name != "snapshot.json" {
			t.Errorf("member name = %q, want snapshot.json", zr.File[0].Name)
		}
	})

	t.Run("corrupt container returns FormatError", func(t *testing.T) {
		t.Parallel()
		var codec backup.Codec

		_, err := codec.Decode([]byte("PK\x03\x04 this is not really a zip"))
		var ferr *backup.FormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("Decode() error = %v, want *FormatError", err)
		}
	})

	t.Run("container without a json member returns FormatError", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, _ := zw.Create("readme.txt")
		w.Write([]byte("nothing here"))
		zw.Close()

		var codec backup.Codec
		_, err := codec.Decode(buf.Bytes())
		var ferr *backup.FormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("Decode() error = %v, want *FormatError", err)
		}
	})

	t.Run("DecodeAny passes bare snapshot text through", func(t *testing.T) {
		t.Parallel()
		var codec backup.Codec

		raw := []byte(`{"version":"2.0.0"}`)
		got, err := codec.DecodeAny(raw)
		if err != nil {
			t.Fatalf("DecodeAny() error = %v", err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("got %s, want input unchanged", got)
		}
	})

	t.Run("DecodeAny unpacks an archive container", func(t *testing.T) {
		t.Parallel()
		var codec backup.Codec

		data, err := codec.Encode(&backup.Snapshot{Version: backup.SchemaVersion})
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		text, err := codec.DecodeAny(data)
		if err != nil {
			t.Fatalf("DecodeAny() error = %v", err)
		}
		if !json.Valid(text) {
			t.Errorf("decoded text is not JSON: %s", text)
		}
	})
}

func TestArchiveName(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	got := backup.ArchiveName(at)
	want := "equipment_backup_20240115_103000.zip"
	if got != want {
		t.Errorf("ArchiveName() = %q, want %q", got, want)
	}
}
