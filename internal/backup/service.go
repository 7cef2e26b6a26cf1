package backup

import (
	"context"
	"errors"
	"fmt"
)

// Service coordinates the local backup and restore flows needed by the CLI:
// build + encode for export, decode + validate + apply for restore, and the
// listing/download passthroughs for remote archives. Remote scheduling lives
// in Scheduler.
type Service struct {
	store     Store
	remote    Remote
	builder   *Builder
	codec     Codec
	validator *Validator
	applier   *Applier
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

func NewService(store Store, remote Remote, validator *Validator, applier *Applier, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:     store,
		remote:    remote,
		builder:   NewBuilder(store, clock),
		validator: validator,
		applier:   applier,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Export builds a fresh snapshot and encodes it into an archive. Returns the
// archive bytes and the suggested file name.
func (s *Service) Export(actor string) ([]byte, string, error) {
	snap, err := s.builder.Build()
	if err != nil {
		s.audit(actor, ActionBackup, fmt.Sprintf("local backup failed: %v", err))
		return nil, "", err
	}
	data, err := s.codec.Encode(snap)
	if err != nil {
		s.audit(actor, ActionBackup, fmt.Sprintf("local backup failed: %v", err))
		return nil, "", err
	}

	name := ArchiveName(snap.Timestamp)
	s.audit(actor, ActionBackup, fmt.Sprintf("exported %s (snapshot version %s)", name, snap.Version))
	s.logger.Info("local backup exported", "archive", name)
	return data, name, nil
}

// Restore accepts either an archive container or bare snapshot text,
// validates it, and applies it to the store. Failures before the applier
// runs leave every domain collection untouched.
func (s *Service) Restore(input []byte, actor string) (*RestoreResult, error) {
	text, err := s.codec.DecodeAny(input)
	if err != nil {
		s.audit(actor, ActionRestore, fmt.Sprintf("restore rejected: %v", err))
		return nil, err
	}

	snap, err := ParseSnapshot(text)
	if err != nil {
		s.audit(actor, ActionRestore, fmt.Sprintf("restore rejected: %v", err))
		return nil, err
	}

	if err := s.validator.Validate(snap); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn("snapshot rejected", "reason", verr.Error())
		}
		s.audit(actor, ActionRestore, fmt.Sprintf("restore rejected: %v", err))
		return nil, err
	}

	return s.applier.Apply(snap, actor)
}

// ListRemote authenticates and lists the archives in the resolved backups
// folder, most recent first. The cached folder id from the policy is used
// when present.
func (s *Service) ListRemote(ctx context.Context) ([]RemoteFile, error) {
	sess, folderID, err := s.remoteFolder(ctx)
	if err != nil {
		return nil, err
	}
	return s.remote.List(ctx, sess, folderID)
}

// FetchRemote downloads one archive by id.
func (s *Service) FetchRemote(ctx context.Context, fileID string) ([]byte, error) {
	sess, err := s.remote.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return s.remote.Download(ctx, sess, fileID)
}

func (s *Service) remoteFolder(ctx context.Context) (*Session, string, error) {
	sess, err := s.remote.Authenticate(ctx)
	if err != nil {
		return nil, "", err
	}

	settings, err := LoadSettings(s.store)
	if err != nil {
		return nil, "", err
	}
	folderID := settings.Backup.RemoteFolderID
	if folderID == "" {
		folderID, err = s.remote.ResolveFolder(ctx, sess, DefaultFolderPath)
		if err != nil {
			return nil, "", err
		}
	}
	return sess, folderID, nil
}

func (s *Service) audit(actor, action, details string) {
	entry := AuditLogEntry{
		ID:        s.idgen.New(),
		ActorName: actor,
		Action:    action,
		Details:   details,
		Timestamp: s.clock.Now().UTC(),
	}
	if err := appendAuditEntry(s.store, entry); err != nil {
		s.logger.Error("recording audit entry", "action", action, "error", err)
	}
}
