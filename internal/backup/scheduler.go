package backup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// State identifies where a backup cycle is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateResolving
	StateUploading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAuthenticating:
		return "Authenticating"
	case StateResolving:
		return "Resolving"
	case StateUploading:
		return "Uploading"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrCycleInFlight is returned when a scheduling check finds a cycle already
// running. The check is a no-op in that case.
var ErrCycleInFlight = errors.New("backup cycle already in flight")

// DefaultFolderPath is the fixed remote folder chain for replicated
// archives: the application root folder, then the backups subfolder.
var DefaultFolderPath = []string{"EquipmentTracker", "Backups"}

// DefaultStepTimeout bounds each network call within a cycle. The remote API
// may otherwise block indefinitely.
const DefaultStepTimeout = 30 * time.Second

// CycleResult describes the terminal outcome of one scheduling check.
type CycleResult struct {
	Ran         bool  // false when the policy said not due
	State       State // Done or Failed after a run, Idle otherwise
	ArchiveName string
	UploadedID  string
	Err         error // the failure when State is Failed
}

// Scheduler decides when a remote backup cycle is due and drives it end to
// end: authenticate, resolve the remote folder chain, build and encode a
// fresh snapshot, upload. At most one cycle runs at a time.
type Scheduler struct {
	store       Store
	remote      Remote
	builder     *Builder
	codec       Codec
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	folderPath  []string
	stepTimeout time.Duration
	inFlight    atomic.Bool
}

func NewScheduler(store Store, remote Remote, logger Logger, clock Clock, idgen IDGenerator) *Scheduler {
	return &Scheduler{
		store:       store,
		remote:      remote,
		builder:     NewBuilder(store, clock),
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		folderPath:  DefaultFolderPath,
		stepTimeout: DefaultStepTimeout,
	}
}

// SetStepTimeout overrides the per-network-call timeout. Zero disables it.
func (s *Scheduler) SetStepTimeout(d time.Duration) { s.stepTimeout = d }

// RunDue runs one scheduling check against the current policy. Not-due is a
// successful no-op. Cycle failures are reported in the result, not as an
// error: the returned error is reserved for the re-entry guard and for a
// settings aggregate that cannot be read.
func (s *Scheduler) RunDue(ctx context.Context, actor string) (*CycleResult, error) {
	return s.run(ctx, actor, false)
}

// RunNow forces a cycle regardless of due-ness.
func (s *Scheduler) RunNow(ctx context.Context, actor string) (*CycleResult, error) {
	return s.run(ctx, actor, true)
}

func (s *Scheduler) run(ctx context.Context, actor string, force bool) (*CycleResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCycleInFlight
	}
	defer s.inFlight.Store(false)

	settings, err := LoadSettings(s.store)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	now := s.clock.Now()
	if !force && !settings.Backup.Due(now) {
		s.logger.Debug("backup not due",
			"frequency", string(settings.Backup.Frequency),
			"enabled", settings.Backup.Enabled)
		return &CycleResult{Ran: false, State: StateIdle}, nil
	}

	return s.runCycle(ctx, settings.Backup, now, actor), nil
}

// runCycle executes one full cycle. lastBackupAt advances only when every
// step succeeds; any failure leaves the policy untouched so the next check
// re-evaluates due-ness from the same baseline.
func (s *Scheduler) runCycle(ctx context.Context, policy Policy, now time.Time, actor string) *CycleResult {
	res := &CycleResult{Ran: true}

	res.State = StateAuthenticating
	sess, err := s.authenticate(ctx)
	if err != nil {
		// Silent authentication is allowed to fail (no cached grant, stale
		// token). Not raised to the user; the cycle just ends Failed.
		return s.fail(res, StepAuthenticating, err, actor)
	}

	res.State = StateResolving
	folderID := policy.RemoteFolderID
	if folderID == "" {
		folderID, err = s.resolveFolder(ctx, sess)
		if err != nil {
			return s.fail(res, StepResolving, err, actor)
		}
	}

	snap, err := s.builder.Build()
	if err != nil {
		return s.fail(res, StepBuilding, err, actor)
	}
	data, err := s.codec.Encode(snap)
	if err != nil {
		return s.fail(res, StepBuilding, err, actor)
	}

	res.State = StateUploading
	name := ArchiveName(now)
	uploaded, err := s.upload(ctx, sess, folderID, name, data)
	if err != nil {
		return s.fail(res, StepUploading, err, actor)
	}

	policy.LastBackupAt = &now
	policy.RemoteFolderID = folderID
	if err := SavePolicy(s.store, policy); err != nil {
		return s.fail(res, StepPersisting, err, actor)
	}

	res.State = StateDone
	res.ArchiveName = name
	res.UploadedID = uploaded.ID
	s.audit(actor, fmt.Sprintf("uploaded %s (snapshot version %s)", name, snap.Version))
	s.logger.Info("remote backup complete", "archive", name, "fileId", uploaded.ID)
	return res
}

func (s *Scheduler) authenticate(ctx context.Context) (*Session, error) {
	sctx, cancel := s.stepContext(ctx)
	defer cancel()
	return s.remote.Authenticate(sctx)
}

func (s *Scheduler) resolveFolder(ctx context.Context, sess *Session) (string, error) {
	sctx, cancel := s.stepContext(ctx)
	defer cancel()
	return s.remote.ResolveFolder(sctx, sess, s.folderPath)
}

func (s *Scheduler) upload(ctx context.Context, sess *Session, folderID, name string, data []byte) (*RemoteFile, error) {
	sctx, cancel := s.stepContext(ctx)
	defer cancel()
	return s.remote.Upload(sctx, sess, folderID, name, data)
}

// stepContext bounds a single network call. Cancellation of the parent
// context is checked here, before the call is issued.
func (s *Scheduler) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.stepTimeout)
}

func (s *Scheduler) fail(res *CycleResult, step Step, err error, actor string) *CycleResult {
	res.State = StateFailed
	res.Err = err
	s.logger.Error("backup cycle failed", "step", string(step), "error", err)
	s.audit(actor, fmt.Sprintf("failed at %s: %v", step, err))
	return res
}

func (s *Scheduler) audit(actor, details string) {
	entry := AuditLogEntry{
		ID:        s.idgen.New(),
		ActorName: actor,
		Action:    ActionBackup,
		Details:   details,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := appendAuditEntry(s.store, entry); err != nil {
		s.logger.Error("recording backup audit entry", "error", err)
	}
}
