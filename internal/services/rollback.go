package services

import (
	"fmt"

	"github.com/google/uuid"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/apierr"
	"github.com/taskforge/taskforge-backend/internal/platform/ctxutil"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
)

// RollbackTo re-introduces an older version's content as a brand-new,
// highest-numbered version. History is never rewritten or renumbered:
// the target's object is copied to a fresh storage key and appended
// like any upload. The new version is itself subject to retention,
// which under a tight count limit can purge the very version just
// rolled back from.
func (s *versionStore) RollbackTo(dbc dbctx.Context, attachmentID uuid.UUID, versionNumber int) (*types.FileVersion, error) {
	if versionNumber < 1 {
		return nil, apierr.InvalidArgument("version_number must be a positive integer")
	}

	att, err := s.attachments.GetByID(dbc, attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, apierr.NotFound(fmt.Sprintf("attachment %s", attachmentID))
	}

	// A version already purged by retention cannot be rolled back to.
	target, err := s.versions.GetByAttachmentAndNumber(dbc, attachmentID, versionNumber)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apierr.NotFound(fmt.Sprintf("attachment %s version %d", attachmentID, versionNumber))
	}

	newKey := NewAttachmentStorageKey(attachmentID)
	if s.bucket != nil {
		if err := s.bucket.CopyObject(ctxutil.Default(dbc.Ctx), target.StorageKey, newKey); err != nil {
			return nil, apierr.StorageFailure(fmt.Sprintf("rollback copy for attachment %s", attachmentID), err)
		}
	}

	created, err := s.AppendVersion(dbc, attachmentID, ContentDescriptor{
		FileName:   target.FileName,
		StorageKey: newKey,
		MimeType:   target.MimeType,
		SizeBytes:  target.SizeBytes,
	})
	if err != nil {
		if s.bucket != nil {
			if dErr := s.bucket.DeleteObject(ctxutil.Default(dbc.Ctx), newKey); dErr != nil {
				s.log.Warn("rollback: orphan object cleanup failed", "storage_key", newKey, "error", dErr)
			}
		}
		return nil, err
	}

	s.log.Info("rollback appended new version",
		"attachment_id", attachmentID,
		"from_version", versionNumber,
		"new_version", created.VersionNumber,
	)
	return created, nil
}
