package repository

import (
	"context"
	"errors"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// PrefRepository stores per-user Preferences, created lazily on first
// access (spec: a user with no row yet gets the struct defaults).
type PrefRepository struct {
	db *gorm.DB
}

func NewPrefRepository(db *gorm.DB) *PrefRepository {
	return &PrefRepository{db: db}
}

func (r *PrefRepository) FindByUser(ctx context.Context, userID string) (*models.Preferences, error) {
	var p models.Preferences
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = models.Preferences{UserID: userID}
		if createErr := r.db.WithContext(ctx).Create(&p).Error; createErr != nil {
			return nil, createErr
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PrefRepository) Update(ctx context.Context, p *models.Preferences) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ListEnabledForDailySummary returns every user with daily summaries
// turned on, the scheduler's candidate set for each tick.
func (r *PrefRepository) ListEnabledForDailySummary(ctx context.Context) ([]models.Preferences, error) {
	var prefs []models.Preferences
	err := r.db.WithContext(ctx).Where("enable_daily_summary = ?", true).Find(&prefs).Error
	return prefs, err
}
