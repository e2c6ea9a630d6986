package ingest

import (
	"context"
	"testing"
	"time"

	"voicecore/internal/ledger"
	"voicecore/internal/models"
	"voicecore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *repository.JobRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AudioObject{}, &models.Job{}, &models.CreditAccount{}, &models.UsageRecord{},
	))

	audioRepo := repository.NewAudioRepository(db)
	jobRepo := repository.NewJobRepository(db)
	ledgerSvc := ledger.New(repository.NewLedgerRepository(db))

	return New(audioRepo, jobRepo, ledgerSvc), jobRepo
}

func TestRegisterAudioRejectsNonPositiveSize(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RegisterAudio(context.Background(), "user-1", "audio/user-1/f.enc", 0, time.Now())
	assert.Error(t, err)
}

// TestRegisterAudioPersistsChargesAndEnqueuesInOrder exercises the
// persist -> charge -> enqueue sequence: after a successful call, the
// audio row, a negative-balance usage charge, and a pending job must
// all exist, with the job's CreatedAt pinned to the recording's own
// timestamp rather than wall-clock call time.
func TestRegisterAudioPersistsChargesAndEnqueuesInOrder(t *testing.T) {
	svc, jobRepo := newTestService(t)
	ctx := context.Background()

	recordedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fileID, err := svc.RegisterAudio(ctx, "user-1", "audio/user-1/f.enc", 1<<20, recordedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, fileID)

	_, err = svc.audio.FindByID(ctx, fileID)
	require.NoError(t, err)

	// 1 MiB at $0.023/GB rounds to $0.000022, charged against a zero balance.
	acct, err := svc.led.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.000022, acct.UsedTotal, 1e-9)
	assert.Less(t, acct.BalanceUSD, 0.0)

	jobs, total, err := jobRepo.ListByUser(ctx, "user-1", models.KindTranscription, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.StatusPending, jobs[0].Status)
	assert.True(t, jobs[0].CreatedAt.Equal(recordedAt))
	require.NotNil(t, jobs[0].AudioFileID)
	assert.Equal(t, fileID, *jobs[0].AudioFileID)
}

// TestRegisterAudioIsIdempotentByBlobKey asserts the spec §8 law: calling
// RegisterAudio twice with the same (user_id, blob_key) produces two
// AudioObjects but at most one Transcription job for that blob_key.
func TestRegisterAudioIsIdempotentByBlobKey(t *testing.T) {
	svc, jobRepo := newTestService(t)
	ctx := context.Background()
	const blobKey = "audio/user-1/f.enc"
	recordedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	fileID1, err := svc.RegisterAudio(ctx, "user-1", blobKey, 1<<20, recordedAt)
	require.NoError(t, err)
	fileID2, err := svc.RegisterAudio(ctx, "user-1", blobKey, 1<<20, recordedAt)
	require.NoError(t, err)
	assert.NotEqual(t, fileID1, fileID2)

	jobs, total, err := jobRepo.ListByUser(ctx, "user-1", models.KindTranscription, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].BlobKey)
	assert.Equal(t, blobKey, *jobs[0].BlobKey)
}
