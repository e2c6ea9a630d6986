package repository

import (
	"context"
	"errors"
	"time"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// JobRepository stores deferred work. Every status transition after
// insert goes through the conditional WHERE clause of Claim, Update or
// ReapStale —
// there is no unconditional status write anywhere in this package,
// because that's the only thing that makes the processor's claim safe
// under concurrent workers.
type JobRepository struct {
	*BaseRepository[models.Job]
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{BaseRepository: NewBaseRepository[models.Job](db), db: db}
}

// Insert creates a new job. For daily_summary jobs the caller (the
// scheduler) is responsible for the pre-insert existence check; Insert
// itself just persists the row.
//
// For transcription jobs, a conflict on idx_jobs_blob_key means another
// job already exists for this exact blob_key — RegisterAudio is
// idempotent by (user_id, blob_key) per spec §8, so a repeat
// registration of the same blob must not create a second job. Insert
// looks the blob_key up first and returns nil without writing when a
// job for it already exists; a unique-index conflict reported as
// gorm.ErrDuplicatedKey is swallowed the same way.
func (r *JobRepository) Insert(ctx context.Context, job *models.Job) error {
	if job.BlobKey != nil {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Job{}).Where("blob_key = ?", *job.BlobKey).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}
	err := r.db.WithContext(ctx).Create(job).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// FindEligible returns pending jobs whose backoff window has elapsed,
// oldest first, up to limit rows. It deliberately does NOT filter by
// age or attempt count — a job that has aged out or exhausted its
// retries must still surface here so the processor can transition it
// to Failed (spec §3 invariants 4-5); silently excluding it from the
// query would leave it stuck in Pending forever instead.
func (r *JobRepository) FindEligible(ctx context.Context, retryBackoff time.Duration, limit int) ([]models.Job, error) {
	var jobs []models.Job
	backoffCutoff := time.Now().Add(-retryBackoff)
	err := r.db.WithContext(ctx).
		Where("status = ? AND (last_attempt_at IS NULL OR last_attempt_at <= ?)",
			models.StatusPending, backoffCutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim atomically transitions a pending job to processing. Returns
// false (no error) if another worker already claimed it — the caller
// moves on to the next candidate rather than treating this as failure.
func (r *JobRepository) Claim(ctx context.Context, jobID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":          models.StatusProcessing,
			"last_attempt_at": now,
			"attempts":        gorm.Expr("attempts + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Update applies a conditional patch: the write only lands if the row
// is still in expectedStatus, so a reaper sweep and a worker's own
// completion can never race each other into a corrupted state.
func (r *JobRepository) Update(ctx context.Context, jobID string, expectedStatus models.JobStatus, patch models.JobPatch) (bool, error) {
	updates := map[string]interface{}{"status": patch.Status}
	if patch.LastAttemptAt != nil {
		updates["last_attempt_at"] = *patch.LastAttemptAt
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}
	if patch.Attempts != nil {
		updates["attempts"] = *patch.Attempts
	}
	if patch.ErrorMessage != nil {
		updates["error_message"] = *patch.ErrorMessage
	}

	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, expectedStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReapStale reverts jobs stuck in processing past the processing
// deadline back to pending, without incrementing attempts a second
// time (the attempt was already counted at Claim time). Returns the
// IDs it reverted so the caller can log each transition.
func (r *JobRepository) ReapStale(ctx context.Context, deadline time.Time) ([]string, error) {
	var stale []models.Job
	if err := r.db.WithContext(ctx).
		Where("status = ? AND last_attempt_at < ?", models.StatusProcessing, deadline).
		Find(&stale).Error; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(stale))
	for _, j := range stale {
		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", j.ID, models.StatusProcessing).
			Updates(map[string]interface{}{"status": models.StatusPending})
		if res.Error != nil {
			return ids, res.Error
		}
		if res.RowsAffected == 1 {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}

// ExistsActiveDailySummary reports whether a non-failed daily_summary
// job already exists for (userID, date), the pre-insert check the
// scheduler's dedupe relies on alongside its in-process map.
func (r *JobRepository) ExistsActiveDailySummary(ctx context.Context, userID, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("user_id = ? AND kind = ? AND summary_date = ? AND status != ?",
			userID, models.KindDailySummary, date, models.StatusFailed).
		Count(&count).Error
	return count > 0, err
}

// ListByUser returns jobs for a user, optionally filtered by kind, most
// recent first — the backing query for GET /jobs.
func (r *JobRepository) ListByUser(ctx context.Context, userID string, kind models.JobKind, offset, limit int) ([]models.Job, int64, error) {
	var jobs []models.Job
	var count int64

	q := r.db.WithContext(ctx).Model(&models.Job{}).Where("user_id = ? AND kind = ?", userID, kind)
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, count, err
}
