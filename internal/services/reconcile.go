package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailymind-api/internal/models"
	"dailymind-api/pkg/logging"

	"gorm.io/gorm"
)

// SubscriptionEvent is one normalized observation of subscription state,
// sourced from receipt verification, a vendor notification, or the poller.
// Nil pointer fields mean "not observed" and leave stored values untouched.
type SubscriptionEvent struct {
	SubscriptionID   string
	Platform         string
	ProductID        string
	ReceiptData      string // Apple credential, retained for re-verification
	PurchaseToken    string // Google credential
	ExpiresDate      *time.Time
	AutoRenewStatus  *bool
	IsActive         *bool // honored only when ExpiresDate is absent
	NotificationType string
	FromPoll         bool
}

// Reconciler merges normalized events into the subscription store via
// idempotent upserts keyed by subscription id.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a reconciler bound to one store handle
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Reconcile upserts one event. Validity is recomputed from the expiry
// timestamp at write time; a caller-supplied is_active flag only applies when
// the event carries no expiry (partial notifications). Replaying the same
// event leaves the record identical except for updated_at.
func (r *Reconciler) Reconcile(ctx context.Context, event *SubscriptionEvent) error {
	if event.SubscriptionID == "" {
		return fmt.Errorf("event has no subscription id")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the row so concurrent reconciliations serialize per subscription
		var subscription models.Subscription
		err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("subscription_id = ?", event.SubscriptionID).
			First(&subscription).Error

		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			subscription = models.Subscription{SubscriptionID: event.SubscriptionID}
			applyEvent(&subscription, event)
			if err := tx.Create(&subscription).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
			logging.Infof("Created subscription %s (platform: %s, active: %v)",
				subscription.SubscriptionID, subscription.Platform, subscription.IsActive)
			return nil
		}

		applyEvent(&subscription, event)
		if err := tx.Save(&subscription).Error; err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		logging.Infof("Reconciled subscription %s (active: %v, expires: %s)",
			subscription.SubscriptionID, subscription.IsActive, subscription.ExpiresDate.Format(time.RFC3339))
		return nil
	})
}

// applyEvent writes observed fields onto the record, leaving the rest alone
func applyEvent(subscription *models.Subscription, event *SubscriptionEvent) {
	if event.Platform != "" {
		subscription.Platform = event.Platform
	}
	if event.ProductID != "" {
		subscription.ProductID = event.ProductID
	}
	if event.ReceiptData != "" {
		subscription.ReceiptData = event.ReceiptData
	}
	if event.PurchaseToken != "" {
		subscription.PurchaseToken = event.PurchaseToken
	}

	if event.ExpiresDate != nil {
		subscription.ExpiresDate = event.ExpiresDate.UTC()
		subscription.IsActive = event.ExpiresDate.After(time.Now())
		if event.AutoRenewStatus != nil {
			subscription.AutoRenewStatus = *event.AutoRenewStatus
		}
	} else {
		// Partial update: trust the caller's flags rather than dropping the event
		if event.IsActive != nil {
			subscription.IsActive = *event.IsActive
		}
		if event.AutoRenewStatus != nil {
			subscription.AutoRenewStatus = *event.AutoRenewStatus
		}
	}

	if event.NotificationType != "" {
		subscription.LastNotificationType = event.NotificationType
	}
	if event.FromPoll {
		now := time.Now().UTC()
		subscription.LastPolledAt = &now
	}
}
