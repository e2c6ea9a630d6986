package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transcript is an immutable speech-to-text result for one AudioObject.
type Transcript struct {
	TranscriptID    string    `json:"transcript_id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_transcripts_user"`
	AudioFileID     string    `json:"audio_file_id" gorm:"type:varchar(36);not null"`
	Text            string    `json:"text" gorm:"type:text;not null"`
	DurationSeconds float64   `json:"duration_seconds" gorm:"not null"`
	BlobKey         string    `json:"blob_key" gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null;index:idx_transcripts_user"`
}

func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	if t.TranscriptID == "" {
		t.TranscriptID = uuid.New().String()
	}
	return nil
}

// DailySummary is the per-user, per-day natural-language digest. Body is
// stored encrypted under the user's KeyVault key; TranscriptStore decrypts
// on read and never returns ciphertext to handlers.
type DailySummary struct {
	SummaryID      string    `json:"summary_id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_summary_user_date"`
	SummaryDate    string    `json:"summary_date" gorm:"type:varchar(10);not null;uniqueIndex:idx_summary_user_date"`
	EncryptedBody  []byte    `json:"-" gorm:"type:blob;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (s *DailySummary) BeforeCreate(tx *gorm.DB) error {
	if s.SummaryID == "" {
		s.SummaryID = uuid.New().String()
	}
	return nil
}

// SummaryBody is the plaintext structure encrypted into DailySummary.EncryptedBody.
type SummaryBody struct {
	Family   []string `json:"family"`
	Business []string `json:"business"`
	Misc     []string `json:"misc"`
}
