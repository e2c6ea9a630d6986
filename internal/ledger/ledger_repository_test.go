package ledger

import (
	"context"
	"testing"
	"time"

	"voicecore/internal/models"
	"voicecore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CreditAccount{}, &models.UsageRecord{}))
	return New(repository.NewLedgerRepository(db))
}

func TestHasCreditFalseForFreshZeroBalanceAccount(t *testing.T) {
	svc := newTestService(t)
	has, err := svc.HasCredit(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHasCreditTrueAfterGrant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user-1", 10.0))

	has, err := svc.HasCredit(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestChargeAlwaysDebitsEvenPastZero(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user-1", 0.001))

	// A charge larger than the balance still lands per spec: only
	// HasCredit gates new work, Charge never refuses an already-started one.
	cost, err := svc.Charge(ctx, "user-1", RateTranscribe, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.006, cost, 1e-9)

	acct, err := svc.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Less(t, acct.BalanceUSD, 0.0)
	assert.InDelta(t, 0.006, acct.UsedTotal, 1e-9)
}

func TestChargeRecordsUsageForMonthlyCost(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user-1", 10.0))
	_, err := svc.Charge(ctx, "user-1", RateTranscribe, 1.0)
	require.NoError(t, err)

	month := time.Now().UTC().Format("2006-01")
	total, err := svc.MonthlyCost(ctx, "user-1", month)
	require.NoError(t, err)
	assert.InDelta(t, 0.006, total, 1e-9)
}

func TestChargeAccumulatesAcrossMultipleCalls(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user-1", 10.0))
	_, err := svc.Charge(ctx, "user-1", RateTranscribe, 1.0)
	require.NoError(t, err)
	_, err = svc.Charge(ctx, "user-1", RateKeyVaultRetrieve, 1.0)
	require.NoError(t, err)

	acct, err := svc.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.056, acct.UsedTotal, 1e-9)
}
