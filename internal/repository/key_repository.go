package repository

import (
	"context"
	"errors"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// KeyRepository stores per-user envelope keys. Kept separate from the
// generic Repository[T] surface because keys are never listed, never
// updated, and the only lookup is by owning user.
type KeyRepository struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

func (r *KeyRepository) FindByUser(ctx context.Context, userID string) (*models.KeyRecord, error) {
	var rec models.KeyRecord
	err := r.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create persists a new key record, failing with gorm.ErrDuplicatedKey
// semantics if one already exists for this user — KeyVault treats that
// as AlreadyExists.
func (r *KeyRepository) Create(ctx context.Context, rec *models.KeyRecord) error {
	var existing models.KeyRecord
	err := r.db.WithContext(ctx).First(&existing, "user_id = ?", rec.UserID).Error
	if err == nil {
		return gorm.ErrDuplicatedKey
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(rec).Error
}
