package repository

import (
	"context"
	"testing"
	"time"

	"voicecore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestJobRepo(t *testing.T) *JobRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}))
	return NewJobRepository(db)
}

// TestClaimIsSingleWinner exercises spec §8 invariant 4: if two workers
// race to claim the same pending job, exactly one conditional update
// succeeds.
func TestClaimIsSingleWinner(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, job))

	now := time.Now()
	firstOK, err := repo.Claim(ctx, job.ID, now)
	require.NoError(t, err)
	secondOK, err := repo.Claim(ctx, job.ID, now)
	require.NoError(t, err)

	assert.True(t, firstOK)
	assert.False(t, secondOK)

	claimed, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
}

func TestFindEligibleExcludesJobsStillInBackoff(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	recent := time.Now()
	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now(), LastAttemptAt: &recent}
	require.NoError(t, repo.Insert(ctx, job))

	jobs, err := repo.FindEligible(ctx, 10*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFindEligibleIncludesJobsPastBackoff(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	stale := time.Now().Add(-20 * time.Minute)
	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now(), LastAttemptAt: &stale}
	require.NoError(t, repo.Insert(ctx, job))

	jobs, err := repo.FindEligible(ctx, 10*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestUpdateFailsOnStatusMismatch(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, job))

	ok, err := repo.Update(ctx, job.ID, models.StatusProcessing, models.JobPatch{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.False(t, ok, "update must not apply when expected_status doesn't match current status")

	unchanged, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, unchanged.Status)
}

func TestReapStaleRevertsOldProcessingJobsWithoutTouchingAttempts(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	old := time.Now().Add(-10 * time.Minute)
	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusProcessing, CreatedAt: time.Now(), LastAttemptAt: &old, Attempts: 1}
	require.NoError(t, repo.Insert(ctx, job))

	ids, err := repo.ReapStale(ctx, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{job.ID}, ids)

	reaped, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reaped.Status)
	assert.Equal(t, 1, reaped.Attempts)
}

func TestExistsActiveDailySummaryIgnoresFailedJobs(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	date := "2026-03-01"
	failed := &models.Job{UserID: "user-1", Kind: models.KindDailySummary, SummaryDate: &date, Status: models.StatusFailed, CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, failed))

	exists, err := repo.ExistsActiveDailySummary(ctx, "user-1", date)
	require.NoError(t, err)
	assert.False(t, exists, "a Failed daily_summary job must not block a fresh insert for the same date")

	pending := &models.Job{UserID: "user-1", Kind: models.KindDailySummary, SummaryDate: &date, Status: models.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, pending))

	exists, err = repo.ExistsActiveDailySummary(ctx, "user-1", date)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListByUserExcludesOtherKind(t *testing.T) {
	repo := newTestJobRepo(t)
	ctx := context.Background()

	date := "2026-03-01"
	require.NoError(t, repo.Insert(ctx, &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now()}))
	require.NoError(t, repo.Insert(ctx, &models.Job{UserID: "user-1", Kind: models.KindDailySummary, SummaryDate: &date, Status: models.StatusPending, CreatedAt: time.Now()}))

	jobs, total, err := repo.ListByUser(ctx, "user-1", models.KindTranscription, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.KindTranscription, jobs[0].Kind)
}
