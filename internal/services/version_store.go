package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/apierr"
	"github.com/taskforge/taskforge-backend/internal/platform/ctxutil"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

// ContentDescriptor describes already-written content for a new
// version: callers put the bytes into the bucket first, then append.
type ContentDescriptor struct {
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

func (d ContentDescriptor) validate() error {
	if d.FileName == "" {
		return apierr.InvalidArgument("file_name is required")
	}
	if d.StorageKey == "" {
		return apierr.InvalidArgument("storage_key is required")
	}
	if d.MimeType == "" {
		return apierr.InvalidArgument("mime_type is required")
	}
	if d.SizeBytes < 0 {
		return apierr.InvalidArgument("size_bytes must be >= 0")
	}
	return nil
}

// NewAttachmentStorageKey mints an object key for one version's bytes.
// Keys are never shared between versions, so purge-time deletes are
// always safe.
func NewAttachmentStorageKey(attachmentID uuid.UUID) string {
	return fmt.Sprintf("attachments/%s/%s", attachmentID.String(), uuid.NewString())
}

// VersionStore owns the per-attachment chain of immutable versions and
// the monotonic version counter.
type VersionStore interface {
	AppendVersion(dbc dbctx.Context, attachmentID uuid.UUID, desc ContentDescriptor) (*types.FileVersion, error)
	ListVersions(dbc dbctx.Context, attachmentID uuid.UUID) ([]*types.FileVersion, error)
	RollbackTo(dbc dbctx.Context, attachmentID uuid.UUID, versionNumber int) (*types.FileVersion, error)
}

type versionStore struct {
	db          *gorm.DB
	log         *logger.Logger
	bucket      gcp.BucketService
	attachments repos.AttachmentRepo
	versions    repos.FileVersionRepo
	enforcer    RetentionEnforcer
	queue       RetentionQueue
}

func NewVersionStore(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	attachments repos.AttachmentRepo,
	versions repos.FileVersionRepo,
	enforcer RetentionEnforcer,
	queue RetentionQueue,
) VersionStore {
	serviceLog := baseLog.With("service", "VersionStore")
	return &versionStore{
		db:          db,
		log:         serviceLog,
		bucket:      bucket,
		attachments: attachments,
		versions:    versions,
		enforcer:    enforcer,
		queue:       queue,
	}
}

// AppendVersion assigns the next version number under the attachment
// row lock, inserts the version, and refreshes the attachment summary
// in the same transaction. Retention runs afterwards as best-effort
// follow-up work: its failure never rolls back or fails the append.
func (s *versionStore) AppendVersion(dbc dbctx.Context, attachmentID uuid.UUID, desc ContentDescriptor) (*types.FileVersion, error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}

	var created *types.FileVersion
	err := withTx(s.db, dbc, func(txc dbctx.Context) error {
		att, err := s.attachments.GetByIDForUpdate(txc, attachmentID)
		if err != nil {
			return err
		}
		if att == nil {
			return apierr.NotFound(fmt.Sprintf("attachment %s", attachmentID))
		}

		next := att.LatestVersionNumber + 1
		// The cached counter is repairable derived state: if the chain
		// ever runs ahead of it, trust the chain.
		maxAssigned, err := s.versions.MaxVersionNumber(txc, attachmentID)
		if err != nil {
			return err
		}
		if maxAssigned >= next {
			next = maxAssigned + 1
		}

		v := &types.FileVersion{
			ID:            uuid.New(),
			AttachmentID:  attachmentID,
			VersionNumber: next,
			FileName:      desc.FileName,
			StorageKey:    desc.StorageKey,
			MimeType:      desc.MimeType,
			SizeBytes:     desc.SizeBytes,
		}
		if _, err := s.versions.Create(txc, v); err != nil {
			return err
		}
		if err := s.attachments.UpdateSummary(txc, attachmentID, next, att.VersionCount+1,
			desc.FileName, desc.MimeType, desc.SizeBytes); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterAppend(dbc, attachmentID)
	return created, nil
}

func (s *versionStore) afterAppend(dbc dbctx.Context, attachmentID uuid.UUID) {
	if s.queue != nil {
		if err := s.queue.Mark(ctxutil.Default(dbc.Ctx), attachmentID); err != nil {
			s.log.Warn("retention queue mark failed", "attachment_id", attachmentID, "error", err)
		}
	}
	if s.enforcer == nil {
		return
	}
	// Reuse the caller's transaction when there is one; it still holds
	// the attachment row lock. Otherwise enforce in a fresh one.
	enforceDbc := dbc
	if dbc.Tx == nil {
		enforceDbc = dbctx.Context{Ctx: dbc.Ctx}
	}
	if err := s.enforcer.Enforce(enforceDbc, attachmentID); err != nil {
		s.log.Warn("retention enforcement failed after append", "attachment_id", attachmentID, "error", err)
	}
}

func (s *versionStore) ListVersions(dbc dbctx.Context, attachmentID uuid.UUID) ([]*types.FileVersion, error) {
	att, err := s.attachments.GetByID(dbc, attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, apierr.NotFound(fmt.Sprintf("attachment %s", attachmentID))
	}
	return s.versions.GetByAttachmentID(dbc, attachmentID)
}
