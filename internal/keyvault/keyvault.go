// Package keyvault implements KeyVault (spec §4.A): the single place
// that owns per-user envelope keys. Every other component that needs a
// user's key goes through GetKey rather than reading KeyRecord directly.
package keyvault

import (
	"context"
	"errors"

	"voicecore/internal/apperr"
	"voicecore/internal/crypto"
	"voicecore/internal/models"
	"voicecore/internal/repository"

	"gorm.io/gorm"
)

// Service is the KeyVault contract.
type Service struct {
	repo *repository.KeyRepository
}

func New(repo *repository.KeyRepository) *Service {
	return &Service{repo: repo}
}

// GetKey returns userID's raw envelope key. NotFound if CreateKey has
// never been called for this user.
func (s *Service) GetKey(ctx context.Context, userID string) ([]byte, error) {
	rec, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "no key for user", err)
		}
		return nil, apperr.New(apperr.Unavailable, "key lookup failed", err)
	}
	return rec.KeyBytes, nil
}

// CreateKey generates and persists a fresh key for userID. AlreadyExists
// (surfaced as apperr.Conflict) if one already exists — CryptoCore never
// rotates a key implicitly, since that would orphan every ciphertext
// sealed under the old one.
func (s *Service) CreateKey(ctx context.Context, userID string) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	rec := &models.KeyRecord{UserID: userID, KeyBytes: key}
	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "key already exists for user", err)
		}
		return apperr.New(apperr.Unavailable, "failed to persist key", err)
	}
	return nil
}
