package database

import (
	"time"

	"dailymind-api/internal/models"
)

// GetSubscription looks up a subscription by its stable identifier
func GetSubscription(subscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("subscription_id = ?", subscriptionID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetSubscriptionByPurchaseToken looks up a Google subscription by purchase token
func GetSubscriptionByPurchaseToken(purchaseToken string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("platform = ? AND purchase_token = ?", models.PlatformGoogle, purchaseToken).
		First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// MarkSubscriptionInactive flips is_active to false for an expired record.
// Used by the lazy check on reads; the expiry itself is left as stored.
func MarkSubscriptionInactive(subscriptionID string) error {
	return DB.Model(&models.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Update("is_active", false).Error
}

// RecordUnknownToken persists a Google purchase token that no subscription
// matches yet. FirstOrCreate keeps redelivered notifications from piling up rows.
func RecordUnknownToken(purchaseToken, packageName string, notificationType int) error {
	unknown := models.UnknownToken{
		PurchaseToken:    purchaseToken,
		PackageName:      packageName,
		NotificationType: notificationType,
	}
	return DB.Where("purchase_token = ?", purchaseToken).FirstOrCreate(&unknown).Error
}

// SubscriptionStats holds aggregate counts for the admin stats endpoint
type SubscriptionStats struct {
	TotalActive         int64 `json:"total_active"`
	AppleSubscriptions  int64 `json:"apple_subscriptions"`
	GoogleSubscriptions int64 `json:"google_subscriptions"`
	RecentPolls24h      int64 `json:"recent_polls_24h"`
}

// GetSubscriptionStats computes aggregate subscription counts
func GetSubscriptionStats() (*SubscriptionStats, error) {
	stats := &SubscriptionStats{}

	if err := DB.Model(&models.Subscription{}).
		Where("is_active = ?", true).
		Count(&stats.TotalActive).Error; err != nil {
		return nil, err
	}

	if err := DB.Model(&models.Subscription{}).
		Where("is_active = ? AND platform = ?", true, models.PlatformApple).
		Count(&stats.AppleSubscriptions).Error; err != nil {
		return nil, err
	}

	if err := DB.Model(&models.Subscription{}).
		Where("is_active = ? AND platform = ?", true, models.PlatformGoogle).
		Count(&stats.GoogleSubscriptions).Error; err != nil {
		return nil, err
	}

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	if err := DB.Model(&models.Subscription{}).
		Where("last_polled_at >= ?", yesterday).
		Count(&stats.RecentPolls24h).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
