package backup

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AuditMode controls what happens to the pre-restore audit trail when a
// snapshot is applied. The original behavior replaces it wholesale with the
// incoming trail; merge keeps both, deduplicated by entry id.
type AuditMode string

const (
	AuditReplace AuditMode = "replace"
	AuditMerge   AuditMode = "merge"
)

// RestoreResult reports a successful restore.
type RestoreResult struct {
	Version     string
	Collections int
}

// Applier writes a validated snapshot back into the store.
type Applier struct {
	store     Store
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	auditMode AuditMode
}

func NewApplier(store Store, logger Logger, clock Clock, idgen IDGenerator, auditMode AuditMode) *Applier {
	if auditMode == "" {
		auditMode = AuditReplace
	}
	return &Applier{store: store, logger: logger, clock: clock, idgen: idgen, auditMode: auditMode}
}

// Apply writes the five collections to the store sequentially. The write is
// not transactional across collections: if a write fails partway, the store
// is left with a mix of old and new collections. Every invocation appends
// exactly one audit entry describing the outcome.
func (a *Applier) Apply(snap *Snapshot, actor string) (*RestoreResult, error) {
	for _, name := range Collections {
		content := []byte(snap.DomainState[name])
		if content == nil {
			content = emptyCollectionValue(name)
		}
		if name == CollectionAuditLogs && a.auditMode == AuditMerge {
			content = a.mergeAuditLogs(content)
		}
		if err := a.store.Put(name, content); err != nil {
			perr := &PersistenceError{Collection: name, Err: err}
			a.audit(actor, fmt.Sprintf("restore failed: %v", perr))
			return nil, perr
		}
	}

	a.audit(actor, fmt.Sprintf("restored snapshot version %s", snap.Version))
	a.logger.Info("restore applied", "version", snap.Version)
	return &RestoreResult{Version: snap.Version, Collections: len(Collections)}, nil
}

// audit records the terminal outcome. A failure to write the audit entry is
// logged but does not mask the restore outcome.
func (a *Applier) audit(actor, details string) {
	entry := AuditLogEntry{
		ID:        a.idgen.New(),
		ActorName: actor,
		Action:    ActionRestore,
		Details:   details,
		Timestamp: a.clock.Now().UTC(),
	}
	if err := appendAuditEntry(a.store, entry); err != nil {
		a.logger.Error("recording restore audit entry", "error", err)
	}
}

// mergeAuditLogs combines the incoming audit trail with the existing one,
// deduplicated by id and ordered newest first. Any trail that cannot be
// parsed falls back to the incoming content unchanged.
func (a *Applier) mergeAuditLogs(incoming []byte) []byte {
	var in []AuditLogEntry
	if err := json.Unmarshal(incoming, &in); err != nil {
		return incoming
	}

	existing, err := ReadAuditLog(a.store, 0)
	if err != nil {
		a.logger.Warn("merging audit logs: existing trail unreadable, replacing", "error", err)
		return incoming
	}

	seen := make(map[string]bool, len(in))
	merged := make([]AuditLogEntry, 0, len(in)+len(existing))
	for _, e := range in {
		seen[e.ID] = true
		merged = append(merged, e)
	}
	for _, e := range existing {
		if !seen[e.ID] {
			merged = append(merged, e)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	out, err := json.Marshal(merged)
	if err != nil {
		return incoming
	}
	return out
}
