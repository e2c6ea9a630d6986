package repository

import (
	"context"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// SummaryRepository stores DailySummary rows. Bodies are opaque
// ciphertext at this layer — encryption/decryption is the
// transcriptstore package's job, not this one's.
type SummaryRepository struct {
	*BaseRepository[models.DailySummary]
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{BaseRepository: NewBaseRepository[models.DailySummary](db), db: db}
}

func (r *SummaryRepository) FindByUserAndDate(ctx context.Context, userID, date string) (*models.DailySummary, error) {
	var s models.DailySummary
	if err := r.db.WithContext(ctx).First(&s, "user_id = ? AND summary_date = ?", userID, date).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SummaryRepository) FindByID(ctx context.Context, id string) (*models.DailySummary, error) {
	var s models.DailySummary
	if err := r.db.WithContext(ctx).First(&s, "summary_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SummaryRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.DailySummary, int64, error) {
	var ss []models.DailySummary
	var count int64

	q := r.db.WithContext(ctx).Model(&models.DailySummary{}).Where("user_id = ?", userID)
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("summary_date desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, count, err
}

func (r *SummaryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.DailySummary{}, "summary_id = ?", id).Error
}
