// Package transcriptstore implements TranscriptStore (spec §4.D): the
// read/write path for transcripts and daily summaries. It calls KeyVault
// and CryptoCore to seal a DailySummary body before it reaches the
// database, and to open it again on the way out — callers never see
// summary ciphertext. (The processor uses KeyVault and CryptoCore too,
// to decrypt uploaded audio.)
package transcriptstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"voicecore/internal/apperr"
	"voicecore/internal/crypto"
	"voicecore/internal/keyvault"
	"voicecore/internal/models"
	"voicecore/internal/repository"

	"gorm.io/gorm"
)

type Store struct {
	transcripts *repository.TranscriptRepository
	summaries   *repository.SummaryRepository
	vault       *keyvault.Service
}

func New(transcripts *repository.TranscriptRepository, summaries *repository.SummaryRepository, vault *keyvault.Service) *Store {
	return &Store{transcripts: transcripts, summaries: summaries, vault: vault}
}

// SaveTranscript persists a finished transcription. Transcript text is
// stored in the clear, matching spec §3 — only DailySummary bodies are
// encrypted at rest.
func (s *Store) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	if err := s.transcripts.Create(ctx, t); err != nil {
		return apperr.New(apperr.Unavailable, "failed to save transcript", err)
	}
	return nil
}

func (s *Store) GetTranscriptByAudio(ctx context.Context, audioFileID string) (*models.Transcript, error) {
	t, err := s.transcripts.FindByAudioFileID(ctx, audioFileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "transcript not found", err)
		}
		return nil, apperr.New(apperr.Unavailable, "transcript lookup failed", err)
	}
	return t, nil
}

// ListTranscriptsInRange returns every transcript in [from, to) for
// userID, the daily summary job's input set.
func (s *Store) ListTranscriptsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Transcript, error) {
	ts, err := s.transcripts.ListByUserAndDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, apperr.New(apperr.Unavailable, "transcript range lookup failed", err)
	}
	return ts, nil
}

func (s *Store) ListTranscripts(ctx context.Context, userID string, offset, limit int) ([]models.Transcript, int64, error) {
	ts, count, err := s.transcripts.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, apperr.New(apperr.Unavailable, "transcript list failed", err)
	}
	return ts, count, nil
}

// SaveSummary encrypts body under the user's key and persists it.
// A row already present for (user, date) makes the insert fail on
// idx_summary_user_date; that failure, like any other write error, is
// returned as apperr.Unavailable.
func (s *Store) SaveSummary(ctx context.Context, userID, date string, body models.SummaryBody) (*models.DailySummary, error) {
	key, err := s.vault.GetKey(ctx, userID)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "failed to marshal summary body", err)
	}

	ciphertext, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	summary := &models.DailySummary{
		UserID:        userID,
		SummaryDate:   date,
		EncryptedBody: ciphertext,
	}
	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, apperr.New(apperr.Unavailable, "failed to persist summary", err)
	}
	return summary, nil
}

// GetSummary decrypts and returns the body for (userID, date).
func (s *Store) GetSummary(ctx context.Context, userID, date string) (*models.DailySummary, *models.SummaryBody, error) {
	summary, err := s.summaries.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.NotFound, "summary not found", err)
		}
		return nil, nil, apperr.New(apperr.Unavailable, "summary lookup failed", err)
	}
	body, err := s.decrypt(ctx, userID, summary.EncryptedBody)
	if err != nil {
		return nil, nil, err
	}
	return summary, body, nil
}

// GetSummaryByID decrypts and returns a summary by its primary key,
// additionally returning the owning user ID so handlers can enforce
// ownership before returning the body.
func (s *Store) GetSummaryByID(ctx context.Context, id string) (*models.DailySummary, *models.SummaryBody, error) {
	summary, err := s.summaries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.NotFound, "summary not found", err)
		}
		return nil, nil, apperr.New(apperr.Unavailable, "summary lookup failed", err)
	}
	body, err := s.decrypt(ctx, summary.UserID, summary.EncryptedBody)
	if err != nil {
		return nil, nil, err
	}
	return summary, body, nil
}

// ListSummaries returns one page (offset, limit) of a user's summary
// rows with their decrypted bodies, plus the user's total row count,
// for the export endpoint and the summary list view.
func (s *Store) ListSummaries(ctx context.Context, userID string, offset, limit int) ([]models.DailySummary, []models.SummaryBody, int64, error) {
	rows, count, err := s.summaries.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, nil, 0, apperr.New(apperr.Unavailable, "summary list failed", err)
	}

	bodies := make([]models.SummaryBody, 0, len(rows))
	for _, row := range rows {
		body, err := s.decrypt(ctx, userID, row.EncryptedBody)
		if err != nil {
			return nil, nil, 0, err
		}
		bodies = append(bodies, *body)
	}
	return rows, bodies, count, nil
}

func (s *Store) DeleteSummary(ctx context.Context, id string) error {
	if err := s.summaries.Delete(ctx, id); err != nil {
		return apperr.New(apperr.Unavailable, "failed to delete summary", err)
	}
	return nil
}

func (s *Store) decrypt(ctx context.Context, userID string, ciphertext []byte) (*models.SummaryBody, error) {
	key, err := s.vault.GetKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Decrypt(key, ciphertext)
	if err != nil {
		return nil, err
	}
	var body models.SummaryBody
	if err := json.Unmarshal(plaintext, &body); err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "failed to unmarshal decrypted summary", err)
	}
	return &body, nil
}

// ParseDate validates and parses a YYYY-MM-DD date; the processor uses
// it to turn a daily summary job's target date into a midnight instant.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.New(apperr.InvalidInput, "invalid date format, expected YYYY-MM-DD", err)
	}
	return t, nil
}
