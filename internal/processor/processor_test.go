package processor

import (
	"context"
	"testing"
	"time"

	"voicecore/internal/config"
	"voicecore/internal/models"
	"voicecore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newScanTestProcessor builds a Processor with only the jobs repository
// wired, enough to exercise scanPending/failPending without touching
// any of the external collaborators (blobstore, speech, mailer, ...)
// those tests don't need.
func newScanTestProcessor(t *testing.T) (*Processor, *repository.JobRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}))

	jobRepo := repository.NewJobRepository(db)
	p := &Processor{
		cfg:  &config.Config{MaxAttempts: 3, RetryBackoff: 10 * time.Minute, JobMaxAge: 24 * time.Hour, MaxConcurrentJobs: 4},
		jobs: jobRepo,
		ctx:  context.Background(),
	}
	p.jobChannel = make(chan string, 10)
	return p, jobRepo
}

// TestScanPendingFailsJobsThatExceedMaxAttempts covers spec §8 boundary
// behavior: a job at attempts=MAX_ATTEMPTS transitions to Failed on the
// next tick without ever being dispatched to a worker.
func TestScanPendingFailsJobsThatExceedMaxAttempts(t *testing.T) {
	p, jobRepo := newScanTestProcessor(t)
	ctx := context.Background()

	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now(), Attempts: 3}
	require.NoError(t, jobRepo.Insert(ctx, job))

	p.scanPending()

	updated, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, updated.Status)
	require.NotNil(t, updated.ErrorMessage)
	assert.Equal(t, "exceeded max retries", *updated.ErrorMessage)

	select {
	case id := <-p.jobChannel:
		t.Fatalf("job %s must not be dispatched to a worker once it has exceeded max attempts", id)
	default:
	}
}

// TestScanPendingFailsJobsOlderThanMaxAge covers spec §3 invariant 5: a
// Pending job older than JOB_MAX_AGE must be failed on the next sweep.
func TestScanPendingFailsJobsOlderThanMaxAge(t *testing.T) {
	p, jobRepo := newScanTestProcessor(t)
	ctx := context.Background()

	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now().Add(-25 * time.Hour)}
	require.NoError(t, jobRepo.Insert(ctx, job))

	p.scanPending()

	updated, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, updated.Status)
	require.NotNil(t, updated.ErrorMessage)
	assert.Equal(t, "job aged out", *updated.ErrorMessage)
}

// TestScanPendingDispatchesEligibleJobs covers the normal path: a fresh
// pending job under both limits is handed to a worker, not failed.
func TestScanPendingDispatchesEligibleJobs(t *testing.T) {
	p, jobRepo := newScanTestProcessor(t)
	ctx := context.Background()

	job := &models.Job{UserID: "user-1", Kind: models.KindTranscription, Status: models.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, jobRepo.Insert(ctx, job))

	p.scanPending()

	select {
	case id := <-p.jobChannel:
		assert.Equal(t, job.ID, id)
	default:
		t.Fatal("expected job to be dispatched to the worker channel")
	}

	unchanged, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, unchanged.Status, "scanPending itself must not claim the job")
}

func TestRenderSummaryEmailEmptyDayGetsPlaceholder(t *testing.T) {
	html := renderSummaryEmail("2026-03-01", models.SummaryBody{})
	assert.Contains(t, html, "No recordings today.")
	assert.NotContains(t, html, "<h3>")
}

func TestRenderSummaryEmailIncludesOnlyNonEmptySections(t *testing.T) {
	html := renderSummaryEmail("2026-03-01", models.SummaryBody{
		Family: []string{"Called mom"},
	})
	assert.Contains(t, html, "<h3>Family</h3>")
	assert.Contains(t, html, "Called mom")
	assert.NotContains(t, html, "<h3>Business</h3>")
	assert.NotContains(t, html, "<h3>Misc</h3>")
}

func TestRenderSummaryEmailIncludesAllSectionsWhenPopulated(t *testing.T) {
	html := renderSummaryEmail("2026-03-01", models.SummaryBody{
		Family:   []string{"Called mom"},
		Business: []string{"Reviewed Q1 numbers"},
		Misc:     []string{"Dentist reminder"},
	})
	assert.Contains(t, html, "<h3>Family</h3>")
	assert.Contains(t, html, "<h3>Business</h3>")
	assert.Contains(t, html, "<h3>Misc</h3>")
}
