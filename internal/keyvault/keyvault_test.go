package keyvault

import (
	"context"
	"testing"

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
	require.NoError(t, db.AutoMigrate(&models.KeyRecord{}))
	return New(repository.NewKeyRepository(db))
}

func TestCreateKeyThenGetKeyRoundTrips(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateKey(ctx, "user-1"))

	key, err := svc.GetKey(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestGetKeyNotFoundForUnknownUser(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetKey(context.Background(), "unknown-user")
	assert.Error(t, err)
}

func TestCreateKeyTwiceConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateKey(ctx, "user-1"))
	err := svc.CreateKey(ctx, "user-1")
	assert.Error(t, err)
}

func TestCreateKeyGeneratesDistinctKeysPerUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateKey(ctx, "user-1"))
	require.NoError(t, svc.CreateKey(ctx, "user-2"))

	k1, err := svc.GetKey(ctx, "user-1")
	require.NoError(t, err)
	k2, err := svc.GetKey(ctx, "user-2")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}
