package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/data/repos"
	types "github.com/taskforge/taskforge-backend/internal/domain"
	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

// PolicyResolver picks the single effective retention policy for an
// attachment: project scope beats team scope beats global, first match
// wins. A nil result with nil error means unconstrained retention,
// a valid and common terminal state. Resolution never synthesizes a
// policy and holds no state of its own.
type PolicyResolver interface {
	Resolve(dbc dbctx.Context, att *types.Attachment) (*types.RetentionPolicy, error)
}

type policyResolver struct {
	log      *logger.Logger
	tasks    repos.TaskRepo
	projects repos.ProjectRepo
	policies repos.RetentionPolicyRepo
}

func NewPolicyResolver(
	baseLog *logger.Logger,
	tasks repos.TaskRepo,
	projects repos.ProjectRepo,
	policies repos.RetentionPolicyRepo,
) PolicyResolver {
	serviceLog := baseLog.With("service", "PolicyResolver")
	return &policyResolver{
		log:      serviceLog,
		tasks:    tasks,
		projects: projects,
		policies: policies,
	}
}

func (s *policyResolver) Resolve(dbc dbctx.Context, att *types.Attachment) (*types.RetentionPolicy, error) {
	if att == nil {
		return nil, fmt.Errorf("Resolve: attachment is nil")
	}

	projectID, err := s.owningProjectID(dbc, att)
	if err != nil {
		return nil, err
	}

	if projectID != nil {
		p, err := s.policies.GetByProjectID(dbc, *projectID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}

		project, err := s.projects.GetByID(dbc, *projectID)
		if err != nil {
			return nil, err
		}
		if project != nil && project.TeamID != nil {
			p, err := s.policies.GetByTeamID(dbc, *project.TeamID)
			if err != nil {
				return nil, err
			}
			if p != nil {
				return p, nil
			}
		}
	}

	return s.policies.GetGlobal(dbc)
}

func (s *policyResolver) owningProjectID(dbc dbctx.Context, att *types.Attachment) (*uuid.UUID, error) {
	if att.ProjectID != nil {
		return att.ProjectID, nil
	}
	if att.TaskID == nil {
		return nil, nil
	}
	task, err := s.tasks.GetByID(dbc, *att.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	return &task.ProjectID, nil
}
