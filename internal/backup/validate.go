package backup

import "encoding/json"

// LockoutPolicy controls how the validator treats a restore that would leave
// the application with no administrators while none are currently
// configured. The original behavior is advisory-only; hard blocking is
// available as configuration because callers relying on the advisory for
// safety need their own gate.
type LockoutPolicy string

const (
	LockoutWarn  LockoutPolicy = "warn"
	LockoutBlock LockoutPolicy = "block"
)

// Validator performs structural validation of a snapshot before any restore
// is applied.
type Validator struct {
	store   Store
	logger  Logger
	lockout LockoutPolicy
}

func NewValidator(store Store, logger Logger, lockout LockoutPolicy) *Validator {
	if lockout == "" {
		lockout = LockoutWarn
	}
	return &Validator{store: store, logger: logger, lockout: lockout}
}

// Validate rejects a snapshot missing its version, the materials collection,
// or the settings collection, naming every missing field. An integrity-hash
// mismatch and the administrator-lockout risk are advisory: logged, not
// blocking, unless the lockout policy is set to block.
func (v *Validator) Validate(snap *Snapshot) error {
	var missing []string
	if snap.Version == "" {
		missing = append(missing, "version")
	}
	if _, ok := snap.DomainState[CollectionMaterials]; !ok {
		missing = append(missing, CollectionMaterials)
	}
	if _, ok := snap.DomainState[CollectionSettings]; !ok {
		missing = append(missing, CollectionSettings)
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	if snap.IntegrityHash != "" && snap.IntegrityHash != integrityHash(snap.DomainState) {
		v.logger.Warn("snapshot integrity hash mismatch", "version", snap.Version)
	}

	if v.lockoutRisk(snap) {
		if v.lockout == LockoutBlock {
			return &ValidationError{Reason: "restore would leave the administrator list empty"}
		}
		v.logger.Warn("restore would leave the administrator list empty",
			"detail", "no administrators are currently configured either; lockout possible")
	}

	return nil
}

// lockoutRisk reports whether applying the snapshot would leave the
// administrator list empty while the current list is also empty. Settings
// that cannot be parsed on either side are treated as no signal.
func (v *Validator) lockoutRisk(snap *Snapshot) bool {
	incoming, ok := adminList(snap.DomainState[CollectionSettings])
	if !ok || len(incoming) > 0 {
		return false
	}

	raw, err := v.store.Get(CollectionSettings)
	if err != nil || len(raw) == 0 {
		return err == nil
	}
	current, ok := adminList(raw)
	return ok && len(current) == 0
}

func adminList(raw json.RawMessage) ([]string, bool) {
	var s struct {
		Admins []string `json:"admins"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return s.Admins, true
}
