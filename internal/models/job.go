package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobKind distinguishes the two job shapes the processor dispatches.
type JobKind string

const (
	KindTranscription JobKind = "transcription"
	KindDailySummary  JobKind = "daily_summary"
)

// JobStatus is the job lifecycle state. See the state machine in §4.L.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is the single unit of deferred work driven by the processor. Every
// field beyond ID/Kind/UserID is mutated only through a conditional update
// keyed on (job_id, expected_status) — see repository.JobRepository.Update.
//
// BlobKey denormalizes the source AudioObject's blob key onto
// Transcription jobs (nil for daily_summary) purely so a unique index
// can enforce spec §8's idempotence law: RegisterAudio may persist two
// AudioObjects for the same blob_key, but at most one Transcription job
// may exist per blob_key. SQLite treats every NULL in a unique index as
// distinct from every other, so daily_summary rows never collide on it.
type Job struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string     `json:"user_id" gorm:"type:varchar(36);not null;index:idx_jobs_user"`
	Kind          JobKind    `json:"kind" gorm:"type:varchar(20);not null"`
	AudioFileID   *string    `json:"audio_file_id,omitempty" gorm:"type:varchar(36)"`
	BlobKey       *string    `json:"blob_key,omitempty" gorm:"type:varchar(255);uniqueIndex:idx_jobs_blob_key"`
	SummaryDate   *string    `json:"summary_date,omitempty" gorm:"type:varchar(10);index:idx_jobs_summary_date"`
	Status        JobStatus  `json:"status" gorm:"type:varchar(20);not null;index:idx_jobs_status"`
	CreatedAt     time.Time  `json:"created_at" gorm:"not null"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Attempts      int        `json:"attempts" gorm:"not null;default:0"`
	ErrorMessage  *string    `json:"error_message,omitempty" gorm:"type:text"`
}

// BeforeCreate assigns a UUID when the caller hasn't pinned one (tests
// frequently pin IDs to assert on idempotence).
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// JobPatch is the set of fields a conditional Update may change. Nil
// pointers leave the corresponding column untouched.
type JobPatch struct {
	Status        JobStatus
	LastAttemptAt *time.Time
	CompletedAt   *time.Time
	Attempts      *int
	ErrorMessage  *string
}
