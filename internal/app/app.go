package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"armback/internal/backup"
	"armback/internal/config"
	"armback/internal/remote"
	"armback/internal/store"
)

// App is the application layer between the CLI and the backup subsystem.
// It constructs all dependencies from config and manages their lifecycle on
// Close.
type App struct {
	cfg       *config.Config
	store     backup.Store
	service   *backup.Service
	scheduler *backup.Scheduler
	logFile   *os.File
}

// New creates a fully wired App from the given config. operation identifies
// the CLI command being run (e.g. "Backup", "Restore", "Sync"). The caller
// must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Store, cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	rmt, err := remote.NewRemoteFromConfig(context.Background(), cfg.Remote)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating remote: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	lockout, err := parseLockoutPolicy(cfg.Backup.LockoutPolicy)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}
	auditMode, err := parseAuditMode(cfg.Backup.RestoreAuditMode)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	clock := backup.RealClock{}
	idgen := backup.UUIDGenerator{}
	validator := backup.NewValidator(st, logger, lockout)
	applier := backup.NewApplier(st, logger, clock, idgen, auditMode)
	service := backup.NewService(st, rmt, validator, applier, logger, clock, idgen)

	scheduler := backup.NewScheduler(st, rmt, logger, clock, idgen)
	if cfg.Backup.StepTimeoutSeconds > 0 {
		scheduler.SetStepTimeout(time.Duration(cfg.Backup.StepTimeoutSeconds) * time.Second)
	}

	return &App{
		cfg:       cfg,
		store:     st,
		service:   service,
		scheduler: scheduler,
		logFile:   logFile,
	}, nil
}

func parseLockoutPolicy(s string) (backup.LockoutPolicy, error) {
	switch s {
	case "", "warn":
		return backup.LockoutWarn, nil
	case "block":
		return backup.LockoutBlock, nil
	default:
		return "", fmt.Errorf("unknown lockout_policy: %q", s)
	}
}

func parseAuditMode(s string) (backup.AuditMode, error) {
	switch s {
	case "", "replace":
		return backup.AuditReplace, nil
	case "merge":
		return backup.AuditMerge, nil
	default:
		return "", fmt.Errorf("unknown restore_audit_mode: %q", s)
	}
}

// BackupToFile builds a fresh snapshot and writes the archive to path. When
// path is empty the archive's own name is used in the working directory.
// Returns the written path.
func (a *App) BackupToFile(path string) (string, error) {
	data, name, err := a.service.Export(a.cfg.Operator)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = name
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return path, nil
}

// RestoreFromFile reads an archive (or bare snapshot text) from path and
// applies it.
func (a *App) RestoreFromFile(path string) (*backup.RestoreResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	return a.service.Restore(data, a.cfg.Operator)
}

// Sync runs one scheduling check. When force is true the cycle runs
// regardless of due-ness.
func (a *App) Sync(ctx context.Context, force bool) (*backup.CycleResult, error) {
	if force {
		return a.scheduler.RunNow(ctx, a.cfg.Operator)
	}
	return a.scheduler.RunDue(ctx, a.cfg.Operator)
}

// ListRemote lists the archives in the remote backups folder, newest first.
func (a *App) ListRemote(ctx context.Context) ([]backup.RemoteFile, error) {
	return a.service.ListRemote(ctx)
}

// FetchRemote downloads one archive by id and writes it to path.
func (a *App) FetchRemote(ctx context.Context, fileID, path string) error {
	data, err := a.service.FetchRemote(ctx, fileID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	return nil
}

// Policy returns the current backup policy from the settings aggregate.
func (a *App) Policy() (backup.Policy, error) {
	settings, err := backup.LoadSettings(a.store)
	if err != nil {
		return backup.Policy{}, err
	}
	return settings.Backup, nil
}

// SetPolicy updates the enabled flag and frequency of the backup policy,
// preserving the scheduler-owned fields.
func (a *App) SetPolicy(enabled bool, frequency backup.Frequency) (backup.Policy, error) {
	settings, err := backup.LoadSettings(a.store)
	if err != nil {
		return backup.Policy{}, err
	}
	p := settings.Backup
	p.Enabled = enabled
	p.Frequency = frequency
	if err := backup.SavePolicy(a.store, p); err != nil {
		return backup.Policy{}, err
	}
	return p, nil
}

// AuditLog returns audit entries, newest first.
func (a *App) AuditLog(limit int) ([]backup.AuditLogEntry, error) {
	return backup.ReadAuditLog(a.store, limit)
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
