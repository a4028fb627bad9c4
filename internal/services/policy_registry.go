package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/apierr"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

type CreatePolicyInput struct {
	Scope       types.PolicyScope
	TeamID      *uuid.UUID
	ProjectID   *uuid.UUID
	MaxVersions *int
	KeepDays    *int
}

// UpdatePolicyInput overwrites the two tunable fields; nil clears a
// limit. Scope and target are immutable after creation.
type UpdatePolicyInput struct {
	MaxVersions *int
	KeepDays    *int
}

// PolicyRegistry owns retention policy lifecycle: one policy per
// (scope, target) pair, created and mutated only here.
type PolicyRegistry interface {
	Create(dbc dbctx.Context, in CreatePolicyInput) (*types.RetentionPolicy, error)
	Update(dbc dbctx.Context, policyID uuid.UUID, in UpdatePolicyInput) (*types.RetentionPolicy, error)
	Delete(dbc dbctx.Context, policyID uuid.UUID) error
	List(dbc dbctx.Context) ([]*types.RetentionPolicy, error)
}

type policyRegistry struct {
	db       *gorm.DB
	log      *logger.Logger
	policies repos.RetentionPolicyRepo
}

func NewPolicyRegistry(db *gorm.DB, baseLog *logger.Logger, policies repos.RetentionPolicyRepo) PolicyRegistry {
	serviceLog := baseLog.With("service", "PolicyRegistry")
	return &policyRegistry{db: db, log: serviceLog, policies: policies}
}

func validateLimits(maxVersions, keepDays *int) error {
	if maxVersions != nil && *maxVersions < 1 {
		return apierr.InvalidArgument("max_versions must be a positive integer")
	}
	if keepDays != nil && *keepDays < 1 {
		return apierr.InvalidArgument("keep_days must be a positive integer")
	}
	return nil
}

func validateScopeTarget(in CreatePolicyInput) error {
	switch in.Scope {
	case types.PolicyScopeGlobal:
		if in.TeamID != nil || in.ProjectID != nil {
			return apierr.InvalidArgument("global policy must not target a team or project")
		}
	case types.PolicyScopeTeam:
		if in.TeamID == nil {
			return apierr.InvalidArgument("team policy requires team_id")
		}
		if in.ProjectID != nil {
			return apierr.InvalidArgument("team policy must not target a project")
		}
	case types.PolicyScopeProject:
		if in.ProjectID == nil {
			return apierr.InvalidArgument("project policy requires project_id")
		}
		if in.TeamID != nil {
			return apierr.InvalidArgument("project policy must not target a team")
		}
	default:
		return apierr.InvalidArgument(fmt.Sprintf("unknown policy scope %q", in.Scope))
	}
	return nil
}

func (s *policyRegistry) Create(dbc dbctx.Context, in CreatePolicyInput) (*types.RetentionPolicy, error) {
	if err := validateScopeTarget(in); err != nil {
		return nil, err
	}
	if err := validateLimits(in.MaxVersions, in.KeepDays); err != nil {
		return nil, err
	}

	var created *types.RetentionPolicy
	err := withTx(s.db, dbc, func(txc dbctx.Context) error {
		existing, err := s.findByTarget(txc, in)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Conflict(fmt.Sprintf("retention policy already exists for scope %q", in.Scope))
		}
		p := &types.RetentionPolicy{
			ID:          uuid.New(),
			Scope:       in.Scope,
			TeamID:      in.TeamID,
			ProjectID:   in.ProjectID,
			MaxVersions: in.MaxVersions,
			KeepDays:    in.KeepDays,
		}
		created, err = s.policies.Create(txc, p)
		return err
	})
	if err != nil {
		// A concurrent create for the same target can pass the existence
		// check above and lose to the per-target unique index instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierr.Conflict(fmt.Sprintf("retention policy already exists for scope %q", in.Scope))
		}
		return nil, err
	}
	s.log.Info("retention policy created", "policy_id", created.ID, "scope", created.Scope)
	return created, nil
}

func (s *policyRegistry) findByTarget(dbc dbctx.Context, in CreatePolicyInput) (*types.RetentionPolicy, error) {
	switch in.Scope {
	case types.PolicyScopeTeam:
		return s.policies.GetByTeamID(dbc, *in.TeamID)
	case types.PolicyScopeProject:
		return s.policies.GetByProjectID(dbc, *in.ProjectID)
	default:
		return s.policies.GetGlobal(dbc)
	}
}

func (s *policyRegistry) Update(dbc dbctx.Context, policyID uuid.UUID, in UpdatePolicyInput) (*types.RetentionPolicy, error) {
	if err := validateLimits(in.MaxVersions, in.KeepDays); err != nil {
		return nil, err
	}

	var updated *types.RetentionPolicy
	err := withTx(s.db, dbc, func(txc dbctx.Context) error {
		p, err := s.policies.GetByID(txc, policyID)
		if err != nil {
			return err
		}
		if p == nil {
			return apierr.NotFound(fmt.Sprintf("retention policy %s", policyID))
		}
		if err := s.policies.UpdateLimits(txc, policyID, in.MaxVersions, in.KeepDays); err != nil {
			return err
		}
		p.MaxVersions = in.MaxVersions
		p.KeepDays = in.KeepDays
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *policyRegistry) Delete(dbc dbctx.Context, policyID uuid.UUID) error {
	return withTx(s.db, dbc, func(txc dbctx.Context) error {
		p, err := s.policies.GetByID(txc, policyID)
		if err != nil {
			return err
		}
		if p == nil {
			return apierr.NotFound(fmt.Sprintf("retention policy %s", policyID))
		}
		return s.policies.FullDeleteByIDs(txc, []uuid.UUID{policyID})
	})
}

func (s *policyRegistry) List(dbc dbctx.Context) ([]*types.RetentionPolicy, error) {
	return s.policies.List(dbc)
}
