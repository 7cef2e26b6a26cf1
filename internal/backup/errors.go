package backup

import (
	"fmt"
	"strings"
)

// Step names the stage of a backup or restore cycle at which an operation
// failed. The names match the scheduler's state machine so audit entries and
// cycle results read the same way.
type Step string

const (
	StepAuthenticating Step = "Authenticating"
	StepResolving      Step = "Resolving"
	StepBuilding       Step = "Building"
	StepUploading      Step = "Uploading"
	StepPersisting     Step = "Persisting"
	StepListing        Step = "Listing"
	StepDownloading    Step = "Downloading"
)

// FormatError indicates an archive container that cannot be read or that has
// no snapshot payload member. Nothing is partially decoded when it is returned.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError rejects a snapshot before any restore is applied. Missing
// carries the structural fields that were absent; Reason is set instead when
// a policy check (not a structural one) blocked the restore.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "snapshot is missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// RemoteError wraps an authentication, network, or remote-API failure.
// Status is the HTTP status code when one was received, zero otherwise.
// Remote operations never retry internally; retry policy belongs to callers.
type RemoteError struct {
	Step   Step
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote returned status %d: %v", strings.ToLower(string(e.Step)), e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", strings.ToLower(string(e.Step)), e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// PersistenceError reports a failed collection write during restore apply.
// Because the apply is not transactional across collections, the store may
// hold a mix of old and new collections when this is returned.
type PersistenceError struct {
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("writing collection %s: %v", e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
