package backup

import (
	"encoding/json"
	"fmt"
)

// settingsBackupKey is the field of the settings aggregate owned by this
// subsystem.
const settingsBackupKey = "backup"

// Settings is the typed projection of the settings aggregate that this
// subsystem needs. The aggregate holds more (unit data, UI preferences);
// fields not modeled here are preserved on save by round-tripping raw JSON.
type Settings struct {
	Admins []string `json:"admins"`
	Backup Policy   `json:"backup"`
}

// LoadSettings reads the settings aggregate from the store. An absent
// aggregate yields zero-value settings with backups disabled.
func LoadSettings(store Store) (*Settings, error) {
	raw, err := store.Get(CollectionSettings)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	s := &Settings{Backup: Policy{Frequency: FrequencyNever}}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if s.Backup.Frequency == "" {
		s.Backup.Frequency = FrequencyNever
	}
	return s, nil
}

// SavePolicy writes the backup policy back into the settings aggregate
// without disturbing fields owned by other parts of the application.
func SavePolicy(store Store, p Policy) error {
	raw, err := store.Get(CollectionSettings)
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decoding settings: %w", err)
		}
	}

	enc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding backup policy: %w", err)
	}
	fields[settingsBackupKey] = enc

	out, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return store.Put(CollectionSettings, out)
}
