package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dmmedia/pkg/enums"
)

// UploadRecord journals a single media upload attempt and the last phase it reached.
type UploadRecord struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	FilePath      string              `gorm:"column:file_path;not null"`
	MimeType      string              `gorm:"column:mime_type;not null"`
	SizeBytes     int64               `gorm:"column:size_bytes;not null"`
	DurationMs    *int64              `gorm:"column:duration_ms"`
	MediaCategory enums.MediaCategory `gorm:"column:media_category"`
	MediaID       *string             `gorm:"column:media_id"`
	Phase         enums.UploadPhase   `gorm:"column:phase;not null"`
	ErrorCode     *string             `gorm:"column:error_code"`
	ErrorMessage  *string             `gorm:"column:error_message"`
	StatusPolls   int                 `gorm:"column:status_polls;not null;default:0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt   *time.Time          `gorm:"column:completed_at"`
}

// TableName pins the journal table name.
func (UploadRecord) TableName() string {
	return "upload_records"
}
