package backup

import (
	"fmt"
	"time"
)

// Frequency controls how often automatic remote backups run.
type Frequency string

const (
	FrequencyNever   Frequency = "never"
	FrequencyOnBoot  Frequency = "on_boot"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency value from configuration or the CLI.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyNever, FrequencyOnBoot, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown backup frequency: %q", s)
	}
}

// Elapsed-hour thresholds per frequency.
var frequencyHours = map[Frequency]float64{
	FrequencyDaily:   24,
	FrequencyWeekly:  168,
	FrequencyMonthly: 720,
}

// Policy is the auto-backup policy. It lives inside the application's
// settings aggregate and is mutated only by the scheduler on a fully
// successful cycle: a failed cycle leaves LastBackupAt untouched so the next
// due-ness check re-evaluates from the same baseline.
type Policy struct {
	Enabled        bool       `json:"enabled"`
	Frequency      Frequency  `json:"frequency"`
	LastBackupAt   *time.Time `json:"lastBackupAt,omitempty"`
	RemoteFolderID string     `json:"remoteFolderId,omitempty"`
}

// Due reports whether a backup cycle should run at now. Never due when
// disabled or when the frequency is never; due when no backup has ever
// completed, on every check for on_boot, and otherwise once the elapsed
// hours since the last success meet the frequency threshold.
func (p Policy) Due(now time.Time) bool {
	if !p.Enabled {
		return false
	}
	switch p.Frequency {
	case FrequencyNever, "":
		return false
	case FrequencyOnBoot:
		return true
	}
	if p.LastBackupAt == nil {
		return true
	}
	hours, ok := frequencyHours[p.Frequency]
	if !ok {
		return false
	}
	return now.Sub(*p.LastBackupAt).Hours() >= hours
}
