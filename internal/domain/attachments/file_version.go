package attachments

import (
	"time"

	"github.com/google/uuid"
)

// FileVersion is one immutable physical revision of an Attachment.
// VersionNumber is unique per attachment, strictly increasing, never
// reused; the row with the highest number is the latest and is never a
// purge target. Rows are hard-deleted on purge so version listings stay
// purge-accurate.
type FileVersion struct {
	ID            uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AttachmentID  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_file_version_attachment_number" json:"attachment_id"`
	Attachment    *Attachment `gorm:"constraint:OnDelete:CASCADE;foreignKey:AttachmentID;references:ID" json:"attachment,omitempty"`
	VersionNumber int         `gorm:"column:version_number;not null;uniqueIndex:idx_file_version_attachment_number" json:"version_number"`

	FileName   string `gorm:"column:file_name;not null" json:"file_name"`
	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`
	MimeType   string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64  `gorm:"column:size_bytes" json:"size_bytes"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (FileVersion) TableName() string { return "file_version" }
