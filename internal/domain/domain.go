package domain

import (
	"github.com/taskforge/taskforge-backend/internal/domain/attachments"
	"github.com/taskforge/taskforge-backend/internal/domain/core"
)

type Team = core.Team
type Project = core.Project
type Task = core.Task

type Attachment = attachments.Attachment
type FileVersion = attachments.FileVersion
type RetentionPolicy = attachments.RetentionPolicy

type PolicyScope = attachments.PolicyScope

const (
	PolicyScopeGlobal  = attachments.PolicyScopeGlobal
	PolicyScopeTeam    = attachments.PolicyScopeTeam
	PolicyScopeProject = attachments.PolicyScopeProject
)
