package attachments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type AttachmentRepo interface {
	Create(dbc dbctx.Context, att *types.Attachment) (*types.Attachment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error)
	// GetByIDForUpdate takes a row lock on the attachment; it is the
	// per-attachment exclusion point for appends, rollbacks, and
	// enforcement. Requires a transaction.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	UpdateSummary(dbc dbctx.Context, id uuid.UUID, latest, count int, fileName, mimeType string, sizeBytes int64) error
	SetVersionCount(dbc dbctx.Context, id uuid.UUID, count int) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type attachmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	repoLog := baseLog.With("repo", "AttachmentRepo")
	return &attachmentRepo{db: db, log: repoLog}
}

func (r *attachmentRepo) Create(dbc dbctx.Context, att *types.Attachment) (*types.Attachment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(att).Error; err != nil {
		return nil, err
	}
	return att, nil
}

func (r *attachmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var att types.Attachment
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Attachment, error) {
	if dbc.Tx == nil {
		return nil, errors.New("GetByIDForUpdate requires a transaction")
	}
	var att types.Attachment
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&att).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Attachment{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *attachmentRepo) UpdateSummary(dbc dbctx.Context, id uuid.UUID, latest, count int, fileName, mimeType string, sizeBytes int64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"latest_version_number": latest,
			"version_count":         count,
			"file_name":             fileName,
			"mime_type":             mimeType,
			"size_bytes":            sizeBytes,
			"updated_at":            time.Now(),
		}).Error
}

func (r *attachmentRepo) SetVersionCount(dbc dbctx.Context, id uuid.UUID, count int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"version_count": count,
			"updated_at":    time.Now(),
		}).Error
}

func (r *attachmentRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Attachment{}).Error
}

func (r *attachmentRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&types.Attachment{}).Error
}
