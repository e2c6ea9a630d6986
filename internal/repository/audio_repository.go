package repository

import (
	"context"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// AudioRepository stores AudioObject rows. AudioObjects are immutable
// once ingested, so this type never exposes an Update.
type AudioRepository struct {
	*BaseRepository[models.AudioObject]
	db *gorm.DB
}

func NewAudioRepository(db *gorm.DB) *AudioRepository {
	return &AudioRepository{BaseRepository: NewBaseRepository[models.AudioObject](db), db: db}
}

func (r *AudioRepository) FindByID(ctx context.Context, fileID string) (*models.AudioObject, error) {
	var a models.AudioObject
	if err := r.db.WithContext(ctx).First(&a, "file_id = ?", fileID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AudioRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.AudioObject, int64, error) {
	var objs []models.AudioObject
	var count int64

	q := r.db.WithContext(ctx).Model(&models.AudioObject{}).Where("user_id = ?", userID)
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("recorded_at desc").Offset(offset).Limit(limit).Find(&objs).Error
	return objs, count, err
}

func (r *AudioRepository) Delete(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).Delete(&models.AudioObject{}, "file_id = ?", fileID).Error
}
