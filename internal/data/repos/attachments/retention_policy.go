package attachments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type RetentionPolicyRepo interface {
	Create(dbc dbctx.Context, p *types.RetentionPolicy) (*types.RetentionPolicy, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RetentionPolicy, error)
	GetGlobal(dbc dbctx.Context) (*types.RetentionPolicy, error)
	GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) (*types.RetentionPolicy, error)
	GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.RetentionPolicy, error)
	// UpdateLimits overwrites the two tunable fields; nil clears.
	UpdateLimits(dbc dbctx.Context, id uuid.UUID, maxVersions, keepDays *int) error
	List(dbc dbctx.Context) ([]*types.RetentionPolicy, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type retentionPolicyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRetentionPolicyRepo(db *gorm.DB, baseLog *logger.Logger) RetentionPolicyRepo {
	repoLog := baseLog.With("repo", "RetentionPolicyRepo")
	return &retentionPolicyRepo{db: db, log: repoLog}
}

func (r *retentionPolicyRepo) Create(dbc dbctx.Context, p *types.RetentionPolicy) (*types.RetentionPolicy, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *retentionPolicyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.RetentionPolicy, error) {
	return r.getOne(dbc, "id = ?", id)
}

func (r *retentionPolicyRepo) GetGlobal(dbc dbctx.Context) (*types.RetentionPolicy, error) {
	return r.getOne(dbc, "scope = ?", types.PolicyScopeGlobal)
}

func (r *retentionPolicyRepo) GetByTeamID(dbc dbctx.Context, teamID uuid.UUID) (*types.RetentionPolicy, error) {
	return r.getOne(dbc, "scope = ? AND team_id = ?", types.PolicyScopeTeam, teamID)
}

func (r *retentionPolicyRepo) GetByProjectID(dbc dbctx.Context, projectID uuid.UUID) (*types.RetentionPolicy, error) {
	return r.getOne(dbc, "scope = ? AND project_id = ?", types.PolicyScopeProject, projectID)
}

func (r *retentionPolicyRepo) getOne(dbc dbctx.Context, query string, args ...interface{}) (*types.RetentionPolicy, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.RetentionPolicy
	err := transaction.WithContext(dbc.Ctx).Where(query, args...).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *retentionPolicyRepo) UpdateLimits(dbc dbctx.Context, id uuid.UUID, maxVersions, keepDays *int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.RetentionPolicy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"max_versions": maxVersions,
			"keep_days":    keepDays,
			"updated_at":   time.Now(),
		}).Error
}

func (r *retentionPolicyRepo) List(dbc dbctx.Context) ([]*types.RetentionPolicy, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RetentionPolicy
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *retentionPolicyRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&types.RetentionPolicy{}).Error
}
