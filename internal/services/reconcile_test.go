package services

import (
	"context"
	"testing"
	"time"

	"dailymind-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.UnknownToken{}))
	return db
}

func TestReconcileCreatesSubscription(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	autoRenew := true

	err := reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID:  "sub-1",
		Platform:        models.PlatformApple,
		ProductID:       "premium_monthly",
		ReceiptData:     "receipt-blob",
		ExpiresDate:     &expires,
		AutoRenewStatus: &autoRenew,
	})
	require.NoError(t, err)

	var stored models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&stored).Error)
	assert.Equal(t, models.PlatformApple, stored.Platform)
	assert.Equal(t, "premium_monthly", stored.ProductID)
	assert.Equal(t, "receipt-blob", stored.ReceiptData)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.AutoRenewStatus)
	assert.WithinDuration(t, expires, stored.ExpiresDate, time.Second)
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	autoRenew := true
	event := &SubscriptionEvent{
		SubscriptionID:  "sub-1",
		Platform:        models.PlatformApple,
		ProductID:       "premium_monthly",
		ExpiresDate:     &expires,
		AutoRenewStatus: &autoRenew,
	}

	require.NoError(t, reconciler.Reconcile(context.Background(), event))

	var first models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&first).Error)

	require.NoError(t, reconciler.Reconcile(context.Background(), event))

	var second models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&second).Error)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Only updated_at may differ between replays
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Platform, second.Platform)
	assert.Equal(t, first.ProductID, second.ProductID)
	assert.Equal(t, first.IsActive, second.IsActive)
	assert.Equal(t, first.AutoRenewStatus, second.AutoRenewStatus)
	assert.Equal(t, first.ExpiresDate.Unix(), second.ExpiresDate.Unix())
}

func TestReconcileRecomputesActiveFromExpiry(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	past := time.Now().Add(-time.Hour).UTC()
	err := reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID: "sub-expired",
		Platform:       models.PlatformGoogle,
		ExpiresDate:    &past,
	})
	require.NoError(t, err)

	var stored models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-expired").First(&stored).Error)
	assert.False(t, stored.IsActive)

	// A later event with a future expiry reactivates the record
	future := time.Now().Add(time.Hour).UTC()
	require.NoError(t, reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID: "sub-expired",
		ExpiresDate:    &future,
	}))

	require.NoError(t, db.Where("subscription_id = ?", "sub-expired").First(&stored).Error)
	assert.True(t, stored.IsActive)
}

func TestReconcilePartialEventKeepsStoredFields(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	expires := time.Now().Add(24 * time.Hour).UTC()
	autoRenew := true
	require.NoError(t, reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID:  "sub-1",
		Platform:        models.PlatformGoogle,
		ProductID:       "premium_yearly",
		PurchaseToken:   "token-1",
		ExpiresDate:     &expires,
		AutoRenewStatus: &autoRenew,
	}))

	// Notification without an expiry only touches the fields it carries
	active := true
	require.NoError(t, reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID:   "sub-1",
		IsActive:         &active,
		NotificationType: "2",
	}))

	var stored models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&stored).Error)
	assert.Equal(t, models.PlatformGoogle, stored.Platform)
	assert.Equal(t, "premium_yearly", stored.ProductID)
	assert.Equal(t, "token-1", stored.PurchaseToken)
	assert.Equal(t, "2", stored.LastNotificationType)
	assert.True(t, stored.IsActive)
	assert.WithinDuration(t, expires, stored.ExpiresDate, time.Second)
}

func TestReconcileRejectsEmptySubscriptionID(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	err := reconciler.Reconcile(context.Background(), &SubscriptionEvent{Platform: models.PlatformApple})
	assert.Error(t, err)
}

func TestReconcileStampsPollTime(t *testing.T) {
	db := newTestDB(t)
	reconciler := NewReconciler(db)

	expires := time.Now().Add(24 * time.Hour).UTC()
	require.NoError(t, reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID: "sub-1",
		Platform:       models.PlatformApple,
		ExpiresDate:    &expires,
	}))

	var stored models.Subscription
	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&stored).Error)
	assert.Nil(t, stored.LastPolledAt)

	require.NoError(t, reconciler.Reconcile(context.Background(), &SubscriptionEvent{
		SubscriptionID: "sub-1",
		ExpiresDate:    &expires,
		FromPoll:       true,
	}))

	require.NoError(t, db.Where("subscription_id = ?", "sub-1").First(&stored).Error)
	require.NotNil(t, stored.LastPolledAt)
	assert.WithinDuration(t, time.Now(), *stored.LastPolledAt, 5*time.Second)
}
