package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/apierr"
	"github.com/taskforge/taskforge-backend/internal/platform/ctxutil"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/gcp"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

// CreateAttachmentInput carries the owner reference and initial file
// identity. Exactly one of TaskID and ProjectID must be set.
type CreateAttachmentInput struct {
	TaskID    *uuid.UUID
	ProjectID *uuid.UUID
	FileName  string
	MimeType  string
	Metadata  datatypes.JSON
}

type AttachmentService interface {
	Create(dbc dbctx.Context, in CreateAttachmentInput) (*types.Attachment, error)
	Get(dbc dbctx.Context, attachmentID uuid.UUID) (*types.Attachment, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	Delete(dbc dbctx.Context, attachmentID uuid.UUID) error
}

type attachmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	bucket      gcp.BucketService
	attachments repos.AttachmentRepo
	versions    repos.FileVersionRepo
	tasks       repos.TaskRepo
	projects    repos.ProjectRepo
}

func NewAttachmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	attachments repos.AttachmentRepo,
	versions repos.FileVersionRepo,
	tasks repos.TaskRepo,
	projects repos.ProjectRepo,
) AttachmentService {
	serviceLog := baseLog.With("service", "AttachmentService")
	return &attachmentService{
		db:          db,
		log:         serviceLog,
		bucket:      bucket,
		attachments: attachments,
		versions:    versions,
		tasks:       tasks,
		projects:    projects,
	}
}

func (s *attachmentService) Create(dbc dbctx.Context, in CreateAttachmentInput) (*types.Attachment, error) {
	if (in.TaskID == nil) == (in.ProjectID == nil) {
		return nil, apierr.InvalidArgument("exactly one of task_id and project_id is required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, apierr.InvalidArgument("file_name is required")
	}

	if in.TaskID != nil {
		task, err := s.tasks.GetByID(dbc, *in.TaskID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, apierr.NotFound(fmt.Sprintf("task %s", *in.TaskID))
		}
	} else {
		project, err := s.projects.GetByID(dbc, *in.ProjectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, apierr.NotFound(fmt.Sprintf("project %s", *in.ProjectID))
		}
	}

	att := &types.Attachment{
		ID:        uuid.New(),
		TaskID:    in.TaskID,
		ProjectID: in.ProjectID,
		FileName:  strings.TrimSpace(in.FileName),
		MimeType:  in.MimeType,
		Metadata:  in.Metadata,
	}
	created, err := s.attachments.Create(dbc, att)
	if err != nil {
		return nil, err
	}
	s.log.Info("attachment created", "attachment_id", created.ID)
	return created, nil
}

func (s *attachmentService) Get(dbc dbctx.Context, attachmentID uuid.UUID) (*types.Attachment, error) {
	att, err := s.attachments.GetByID(dbc, attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, apierr.NotFound(fmt.Sprintf("attachment %s", attachmentID))
	}
	return att, nil
}

func (s *attachmentService) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	return s.attachments.ListIDs(dbc)
}

// Delete removes the version chain and soft-deletes the attachment in
// one transaction, then clears stored content best-effort. Orphaned
// objects under the attachment prefix are a tolerable leak.
func (s *attachmentService) Delete(dbc dbctx.Context, attachmentID uuid.UUID) error {
	err := withTx(s.db, dbc, func(txc dbctx.Context) error {
		att, err := s.attachments.GetByIDForUpdate(txc, attachmentID)
		if err != nil {
			return err
		}
		if att == nil {
			return apierr.NotFound(fmt.Sprintf("attachment %s", attachmentID))
		}
		if err := s.versions.FullDeleteByAttachmentIDs(txc, []uuid.UUID{attachmentID}); err != nil {
			return err
		}
		return s.attachments.SoftDeleteByIDs(txc, []uuid.UUID{attachmentID})
	})
	if err != nil {
		return err
	}

	if s.bucket != nil {
		prefix := fmt.Sprintf("attachments/%s/", attachmentID)
		if err := s.bucket.DeletePrefix(ctxutil.Default(dbc.Ctx), prefix); err != nil {
			s.log.Warn("attachment content cleanup failed", "attachment_id", attachmentID, "error", err)
		}
	}
	s.log.Info("attachment deleted", "attachment_id", attachmentID)
	return nil
}
