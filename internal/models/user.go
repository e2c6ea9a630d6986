package models

import "time"

// User is the authentication subsystem's principal. The core treats it as
// a stable opaque ID; registration/login plumbing lives outside the core.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null;type:varchar(100)"`
	PasswordHash string    `json:"-" gorm:"not null;type:varchar(255)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Preferences maps a user to their notification/transcription settings.
// Mutated only by the user via the external API; read by the scheduler
// and the job processor.
type Preferences struct {
	UserID                     string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	NotificationEmail          string    `json:"notification_email" gorm:"type:varchar(255)"`
	EnableDailySummary         bool      `json:"enable_daily_summary" gorm:"not null;default:false"`
	EnableTranscription        bool      `json:"enable_transcription" gorm:"not null;default:true"`
	SummaryTimeLocal           string    `json:"summary_time_local" gorm:"type:varchar(5);not null;default:'09:00'"`
	TimezoneOffsetHours        int       `json:"timezone_offset_hours" gorm:"not null;default:0"`
	RecordingMaxDurationMinute int       `json:"recording_max_duration_minutes" gorm:"column:recording_max_duration_minutes;not null;default:60"`
	UpdatedAt                  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// KeyRecord is the per-user envelope key managed by KeyVault (component A).
// The raw key bytes never leave this package except through KeyVault.GetKey.
type KeyRecord struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	KeyBytes  []byte    `json:"-" gorm:"type:blob;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
