package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the snapshot document version written by this build.
// Parsed documents with an older major version are upgraded by a registered
// migration before validation.
const SchemaVersion = "2.0.0"

// Snapshot is a versioned capture of all persisted collections at one point
// in time. It exists only transiently, between the builder and the codec or
// between the codec and the restore applier; it is never stored as a live
// entity.
type Snapshot struct {
	Version       string                     `json:"version"`
	Timestamp     time.Time                  `json:"timestamp"`
	DomainState   map[string]json.RawMessage `json:"domainState"`
	IntegrityHash string                     `json:"integrityHash,omitempty"`
}

// integrityHash computes the coarse identity marker over the domain state.
// It detects accidental edits and mixed-up documents, not deliberate
// tampering.
func integrityHash(state map[string]json.RawMessage) string {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(state[name])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseSnapshot decodes a snapshot document from JSON text and upgrades
// older schema versions to the current one.
func ParseSnapshot(text []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(text, &snap); err != nil {
		return nil, &FormatError{Reason: "snapshot payload is not valid JSON", Err: err}
	}
	if err := migrateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// snapshotMigrations upgrades a document from the named major version to the
// current schema. Keyed by major version so patch releases within a schema
// generation need no entry.
var snapshotMigrations = map[string]func(*Snapshot){
	"1": migrateV1,
}

func migrateSnapshot(s *Snapshot) error {
	// An empty version falls through to the validator, which names the
	// missing field.
	if s.Version == "" {
		return nil
	}
	maj := majorVersion(s.Version)
	if maj == majorVersion(SchemaVersion) {
		return nil
	}
	fn, ok := snapshotMigrations[maj]
	if !ok {
		return fmt.Errorf("no migration from snapshot schema version %s", s.Version)
	}
	fn(s)
	return nil
}

func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

// Schema v1 predates the renaming of the weapons collection to materials and
// carried no integrity hash. The hash stays empty after migration so the
// validator skips the mismatch advisory.
func migrateV1(s *Snapshot) {
	if raw, ok := s.DomainState["weapons"]; ok {
		if _, exists := s.DomainState[CollectionMaterials]; !exists {
			s.DomainState[CollectionMaterials] = raw
		}
		delete(s.DomainState, "weapons")
	}
	s.Version = SchemaVersion
	s.IntegrityHash = ""
}

// Builder assembles the current persisted state into a snapshot document.
type Builder struct {
	store Store
	clock Clock
}

func NewBuilder(store Store, clock Clock) *Builder {
	return &Builder{store: store, clock: clock}
}

// Build reads every named collection from the store and stamps the current
// schema version, timestamp, and integrity hash. Pure read; no side effects.
func (b *Builder) Build() (*Snapshot, error) {
	state := make(map[string]json.RawMessage, len(Collections))
	for _, name := range Collections {
		content, err := b.store.Get(name)
		if err != nil {
			return nil, fmt.Errorf("reading collection %s: %w", name, err)
		}
		if content == nil {
			content = emptyCollectionValue(name)
		}
		state[name] = json.RawMessage(content)
	}

	snap := &Snapshot{
		Version:     SchemaVersion,
		Timestamp:   b.clock.Now().UTC(),
		DomainState: state,
	}
	snap.IntegrityHash = integrityHash(state)
	return snap, nil
}
