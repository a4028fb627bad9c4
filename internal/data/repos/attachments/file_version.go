package attachments

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type FileVersionRepo interface {
	Create(dbc dbctx.Context, v *types.FileVersion) (*types.FileVersion, error)
	// GetByAttachmentID returns the full retained chain, ascending by
	// version number.
	GetByAttachmentID(dbc dbctx.Context, attachmentID uuid.UUID) ([]*types.FileVersion, error)
	GetByAttachmentAndNumber(dbc dbctx.Context, attachmentID uuid.UUID, versionNumber int) (*types.FileVersion, error)
	MaxVersionNumber(dbc dbctx.Context, attachmentID uuid.UUID) (int, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByAttachmentIDs(dbc dbctx.Context, attachmentIDs []uuid.UUID) error
}

type fileVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileVersionRepo(db *gorm.DB, baseLog *logger.Logger) FileVersionRepo {
	repoLog := baseLog.With("repo", "FileVersionRepo")
	return &fileVersionRepo{db: db, log: repoLog}
}

func (r *fileVersionRepo) Create(dbc dbctx.Context, v *types.FileVersion) (*types.FileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *fileVersionRepo) GetByAttachmentID(dbc dbctx.Context, attachmentID uuid.UUID) ([]*types.FileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FileVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("attachment_id = ?", attachmentID).
		Order("version_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *fileVersionRepo) GetByAttachmentAndNumber(dbc dbctx.Context, attachmentID uuid.UUID, versionNumber int) (*types.FileVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.FileVersion
	err := transaction.WithContext(dbc.Ctx).
		Where("attachment_id = ? AND version_number = ?", attachmentID, versionNumber).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *fileVersionRepo) MaxVersionNumber(dbc dbctx.Context, attachmentID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var max int
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.FileVersion{}).
		Where("attachment_id = ?", attachmentID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *fileVersionRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.FileVersion{}).Error
}

func (r *fileVersionRepo) FullDeleteByAttachmentIDs(dbc dbctx.Context, attachmentIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(attachmentIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("attachment_id IN ?", attachmentIDs).
		Delete(&types.FileVersion{}).Error
}
