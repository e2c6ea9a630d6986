package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditAccount tracks a user's spendable balance plus lifetime totals.
// Mutated by the ledger on usage or top-up; never read or written
// directly by the job processor (it goes through ledger.Service).
type CreditAccount struct {
	UserID        string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	BalanceUSD    float64   `json:"balance_usd" gorm:"not null;default:0"`
	GrantedTotal  float64   `json:"granted_total" gorm:"not null;default:0"`
	UsedTotal     float64   `json:"used_total" gorm:"not null;default:0"`
	RefundedTotal float64   `json:"refunded_total" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UsageRecord is an append-only charge entry. Never updated or deleted.
type UsageRecord struct {
	UsageID   string    `json:"usage_id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_usage_user_month"`
	Service   string    `json:"service" gorm:"type:varchar(40);not null"`
	Operation string    `json:"operation" gorm:"type:varchar(40);not null"`
	Quantity  float64   `json:"quantity" gorm:"not null"`
	Unit      string    `json:"unit" gorm:"type:varchar(40);not null"`
	CostUSD   float64   `json:"cost_usd" gorm:"not null"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
	Month     string    `json:"month" gorm:"type:varchar(7);not null;index:idx_usage_user_month"`
}

func (u *UsageRecord) BeforeCreate(tx *gorm.DB) error {
	if u.UsageID == "" {
		u.UsageID = uuid.New().String()
	}
	return nil
}
