package repository

import (
	"context"
	"time"

	"voicecore/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository stores CreditAccount balances and UsageRecord
// history. Debits go through a conditional update so a concurrent
// charge from another worker can never silently overwrite this one's
// read of the balance.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) FindAccount(ctx context.Context, userID string) (*models.CreditAccount, error) {
	var acct models.CreditAccount
	err := r.db.WithContext(ctx).First(&acct, "user_id = ?", userID).Error
	return &acct, err
}

// EnsureAccount creates a zero-balance account for userID if one
// doesn't exist yet, matching the lazy-creation pattern PrefRepository
// uses for Preferences.
func (r *LedgerRepository) EnsureAccount(ctx context.Context, userID string) (*models.CreditAccount, error) {
	acct, err := r.FindAccount(ctx, userID)
	if err == nil {
		return acct, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	fresh := &models.CreditAccount{UserID: userID}
	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

// Debit atomically subtracts amount from the balance, conditioned on
// the balance still being the one the caller read just before. Returns
// false if another charge raced in between that read and this write —
// the ledger's retry-once
// policy (spec §5) re-reads and retries exactly once on that signal.
func (r *LedgerRepository) Debit(ctx context.Context, userID string, observedBalance, amount float64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("user_id = ? AND balance_usd = ?", userID, observedBalance).
		Updates(map[string]interface{}{
			"balance_usd": gorm.Expr("balance_usd - ?", amount),
			"used_total":  gorm.Expr("used_total + ?", amount),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) Grant(ctx context.Context, userID string, amount float64) error {
	return r.db.WithContext(ctx).Model(&models.CreditAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance_usd":   gorm.Expr("balance_usd + ?", amount),
			"granted_total": gorm.Expr("granted_total + ?", amount),
		}).Error
}

func (r *LedgerRepository) RecordUsage(ctx context.Context, rec *models.UsageRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// SumUsageForMonth returns the total cost charged to userID in the
// given YYYY-MM month, for the GET /costs endpoint.
func (r *LedgerRepository) SumUsageForMonth(ctx context.Context, userID, month string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.UsageRecord{}).
		Where("user_id = ? AND month = ?", userID, month).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	return total, err
}

func (r *LedgerRepository) ListUsage(ctx context.Context, userID string, since time.Time) ([]models.UsageRecord, error) {
	var recs []models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_at >= ?", userID, since).
		Order("occurred_at desc").
		Find(&recs).Error
	return recs, err
}
