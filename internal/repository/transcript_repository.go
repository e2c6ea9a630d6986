package repository

import (
	"context"
	"time"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// TranscriptRepository stores immutable Transcript rows.
type TranscriptRepository struct {
	*BaseRepository[models.Transcript]
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{BaseRepository: NewBaseRepository[models.Transcript](db), db: db}
}

func (r *TranscriptRepository) FindByAudioFileID(ctx context.Context, audioFileID string) (*models.Transcript, error) {
	var t models.Transcript
	if err := r.db.WithContext(ctx).First(&t, "audio_file_id = ?", audioFileID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUserAndDateRange returns every transcript created in
// [from, to) for userID, the source rows the scheduler's generated
// daily_summary job folds into one digest.
func (r *TranscriptRepository) ListByUserAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]models.Transcript, error) {
	var ts []models.Transcript
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Order("created_at asc").
		Find(&ts).Error
	return ts, err
}

func (r *TranscriptRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.Transcript, int64, error) {
	var ts []models.Transcript
	var count int64

	q := r.db.WithContext(ctx).Model(&models.Transcript{}).Where("user_id = ?", userID)
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&ts).Error
	return ts, count, err
}
