package backup

import (
	"encoding/json"
	"fmt"
	"time"
)

// Audit action names recorded on terminal outcomes.
const (
	ActionBackup  = "backup"
	ActionRestore = "restore"
)

// AuditLogEntry records the terminal outcome of a backup or restore
// operation. The audit trail is append-only and insertion-ordered, newest
// first when read back.
type AuditLogEntry struct {
	ID        string    `json:"id"`
	ActorName string    `json:"actorName"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// appendAuditEntry prepends one entry to the auditLogs collection, keeping
// newest-first order.
func appendAuditEntry(store Store, entry AuditLogEntry) error {
	raw, err := store.Get(CollectionAuditLogs)
	if err != nil {
		return fmt.Errorf("reading audit log: %w", err)
	}

	var entries []AuditLogEntry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("decoding audit log: %w", err)
		}
	}

	entries = append([]AuditLogEntry{entry}, entries...)
	out, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding audit log: %w", err)
	}
	return store.Put(CollectionAuditLogs, out)
}

// ReadAuditLog returns audit entries, newest first. A limit of zero or less
// returns every entry.
func ReadAuditLog(store Store, limit int) ([]AuditLogEntry, error) {
	raw, err := store.Get(CollectionAuditLogs)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []AuditLogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding audit log: %w", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
