package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AudioObject is an immutable record of an uploaded audio file. Owned by
// IngestAPI; never mutated after creation.
type AudioObject struct {
	FileID     string    `json:"file_id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	BlobKey    string    `json:"blob_key" gorm:"type:text;not null"`
	SizeBytes  int64     `json:"size_bytes" gorm:"not null"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null"`
	ReceivedAt time.Time `json:"received_at" gorm:"autoCreateTime"`
}

func (a *AudioObject) BeforeCreate(tx *gorm.DB) error {
	if a.FileID == "" {
		a.FileID = uuid.New().String()
	}
	return nil
}
