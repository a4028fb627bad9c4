package attachments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/domain/core"
)

// Attachment is a logical file slot attached to exactly one task or one
// project, never both. FileName/MimeType/SizeBytes mirror the latest
// version; LatestVersionNumber and VersionCount are denormalized caches
// of the version chain and are maintained in the same transaction as
// every version insert/delete.
type Attachment struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TaskID    *uuid.UUID    `gorm:"type:uuid;index" json:"task_id,omitempty"`
	Task      *core.Task    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	ProjectID *uuid.UUID    `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Project   *core.Project `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`

	FileName  string `gorm:"column:file_name;not null" json:"file_name"`
	MimeType  string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes int64  `gorm:"column:size_bytes" json:"size_bytes"`

	LatestVersionNumber int `gorm:"column:latest_version_number;not null;default:0" json:"latest_version_number"`
	VersionCount        int `gorm:"column:version_count;not null;default:0" json:"version_count"`

	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Attachment) TableName() string { return "attachment" }
