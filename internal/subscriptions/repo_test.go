package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mortarline/notify-backend/pkg/db/models"
)

func setupSubscriptionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS push_subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  endpoint TEXT NOT NULL UNIQUE,
  p256dh TEXT NOT NULL,
  auth TEXT NOT NULL,
  user_agent TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func createSubscription(t *testing.T, repo Repository, userID uuid.UUID, endpoint string) *models.PushSubscription {
	t.Helper()

	sub, err := repo.UpsertByEndpoint(context.Background(), &models.PushSubscription{
		ID:       uuid.New(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
	})
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}

func TestRepositoryUpsertByEndpoint_updatesExistingRow(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	original := createSubscription(t, repo, uuid.New(), "https://push.example.com/send/abc")
	require.NoError(t, repo.Deactivate(ctx, original.ID))

	newOwner := uuid.New()
	updated, err := repo.UpsertByEndpoint(ctx, &models.PushSubscription{
		ID:       uuid.New(),
		UserID:   newOwner,
		Endpoint: original.Endpoint,
		P256dh:   "rotated-key",
		Auth:     "rotated-secret",
	})
	require.NoError(t, err)

	// same endpoint stays one row, reassigned and reactivated
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, newOwner, updated.UserID)
	assert.Equal(t, "rotated-key", updated.P256dh)
	assert.True(t, updated.IsActive)

	var count int64
	require.NoError(t, db.Model(&models.PushSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryFindActiveByUser_excludesDeactivated(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	active := createSubscription(t, repo, userID, "https://push.example.com/send/active")
	stale := createSubscription(t, repo, userID, "https://push.example.com/send/stale")
	createSubscription(t, repo, uuid.New(), "https://push.example.com/send/other")

	require.NoError(t, repo.Deactivate(ctx, stale.ID))

	subs, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, active.ID, subs[0].ID)
}

func TestRepositoryDeleteByEndpoint(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := createSubscription(t, repo, uuid.New(), "https://push.example.com/send/gone")

	deleted, err := repo.DeleteByEndpoint(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.True(t, deleted)

	missing, err := repo.DeleteByEndpoint(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.False(t, missing)

	found, err := repo.FindByEndpoint(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryDeleteInactiveBefore(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	stale := createSubscription(t, repo, userID, "https://push.example.com/send/stale")
	fresh := createSubscription(t, repo, userID, "https://push.example.com/send/fresh")
	active := createSubscription(t, repo, userID, "https://push.example.com/send/active")

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.PushSubscription{}).
		Where("id = ?", stale.ID).
		Updates(map[string]any{"is_active": false, "updated_at": cutoff.Add(-time.Hour)}).Error)
	require.NoError(t, repo.Deactivate(ctx, fresh.ID))

	deleted, err := repo.DeleteInactiveBefore(ctx, nil, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := repo.FindByEndpoint(ctx, stale.Endpoint)
	require.NoError(t, err)
	assert.Nil(t, gone)

	for _, endpoint := range []string{fresh.Endpoint, active.Endpoint} {
		kept, err := repo.FindByEndpoint(ctx, endpoint)
		require.NoError(t, err)
		assert.NotNil(t, kept)
	}
}
