package repos

import (
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/data/repos/attachments"
	"github.com/taskforge/taskforge-backend/internal/data/repos/core"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type ProjectRepo = core.ProjectRepo
type TaskRepo = core.TaskRepo

type AttachmentRepo = attachments.AttachmentRepo
type FileVersionRepo = attachments.FileVersionRepo
type RetentionPolicyRepo = attachments.RetentionPolicyRepo

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return core.NewProjectRepo(db, baseLog)
}
func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return core.NewTaskRepo(db, baseLog)
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	return attachments.NewAttachmentRepo(db, baseLog)
}
func NewFileVersionRepo(db *gorm.DB, baseLog *logger.Logger) FileVersionRepo {
	return attachments.NewFileVersionRepo(db, baseLog)
}
func NewRetentionPolicyRepo(db *gorm.DB, baseLog *logger.Logger) RetentionPolicyRepo {
	return attachments.NewRetentionPolicyRepo(db, baseLog)
}
