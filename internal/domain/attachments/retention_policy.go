package attachments

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge-backend/internal/domain/core"
)

type PolicyScope string

const (
	PolicyScopeGlobal  PolicyScope = "global"
	PolicyScopeTeam    PolicyScope = "team"
	PolicyScopeProject PolicyScope = "project"
)

// RetentionPolicy bounds how much version history survives: MaxVersions
// caps the retained count, KeepDays caps age. Either may be unset. At
// most one policy exists per (scope, target); deleting the targeted
// team/project nulls the reference and leaves the policy dormant.
type RetentionPolicy struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Scope     PolicyScope   `gorm:"column:scope;not null;index" json:"scope"`
	TeamID    *uuid.UUID    `gorm:"type:uuid;index" json:"team_id,omitempty"`
	Team      *core.Team    `gorm:"constraint:OnDelete:SET NULL;foreignKey:TeamID;references:ID" json:"team,omitempty"`
	ProjectID *uuid.UUID    `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Project   *core.Project `gorm:"constraint:OnDelete:SET NULL;foreignKey:ProjectID;references:ID" json:"project,omitempty"`

	MaxVersions *int `gorm:"column:max_versions" json:"max_versions,omitempty"`
	KeepDays    *int `gorm:"column:keep_days" json:"keep_days,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RetentionPolicy) TableName() string { return "retention_policy" }
