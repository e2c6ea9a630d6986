// Package ingest implements IngestAPI (spec §4.N): the single entry
// point that turns an uploaded audio file into a billed AudioObject
// plus a queued transcription job. Every effect happens in the fixed
// order the spec requires — persist, charge, enqueue — so a partial
// failure always leaves the system in a recognizable, resumable state
// rather than a billed-but-unrecorded or queued-but-unbilled one.
package ingest

import (
	"context"
	"time"

	"voicecore/internal/apperr"
	"voicecore/internal/ledger"
	"voicecore/internal/models"
	"voicecore/internal/repository"
)

type Service struct {
	audio *repository.AudioRepository
	jobs  *repository.JobRepository
	led   *ledger.Service
}

func New(audio *repository.AudioRepository, jobs *repository.JobRepository, led *ledger.Service) *Service {
	return &Service{audio: audio, jobs: jobs, led: led}
}

// RegisterAudio persists a new AudioObject, charges the upload cost,
// and enqueues a transcription job whose CreatedAt is pinned to the
// recording's own timestamp rather than the ingest call time, so the
// processor's job-age eligibility check is judged against when the
// audio was recorded, not when it happened to be uploaded.
func (s *Service) RegisterAudio(ctx context.Context, userID, blobKey string, sizeBytes int64, recordedAt time.Time) (string, error) {
	if sizeBytes <= 0 {
		return "", apperr.New(apperr.InvalidInput, "size_bytes must be positive", nil)
	}

	audioObj := &models.AudioObject{
		UserID:     userID,
		BlobKey:    blobKey,
		SizeBytes:  sizeBytes,
		RecordedAt: recordedAt,
	}
	if err := s.audio.Create(ctx, audioObj); err != nil {
		return "", apperr.New(apperr.Unavailable, "failed to persist audio object", err)
	}

	gb := float64(sizeBytes) / (1024 * 1024 * 1024)
	if _, err := s.led.Charge(ctx, userID, ledger.RateUpload, gb); err != nil {
		return audioObj.FileID, err
	}

	job := &models.Job{
		UserID:      userID,
		Kind:        models.KindTranscription,
		AudioFileID: &audioObj.FileID,
		BlobKey:     &blobKey,
		Status:      models.StatusPending,
		CreatedAt:   recordedAt,
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		return audioObj.FileID, apperr.New(apperr.Unavailable, "failed to enqueue transcription job", err)
	}

	return audioObj.FileID, nil
}
