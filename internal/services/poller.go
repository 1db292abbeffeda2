package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dailymind-api/internal/models"
	"dailymind-api/pkg/logging"

	"gorm.io/gorm"
)

// Poller re-verifies every active subscription on a fixed interval to catch
// state changes the vendor notifications missed. It is a single long-lived
// task owning its own store handle, started and stopped by the process
// supervisor. Concurrent cycles are safe because reconciliation is an
// idempotent upsert, they just waste vendor API quota.
type Poller struct {
	db            *gorm.DB
	apple         *AppleVerifier
	google        *GoogleVerifier
	reconciler    *Reconciler
	interval      time.Duration
	retryInterval time.Duration
}

// NewPoller creates a poller bound to its own store handle and verifiers
func NewPoller(db *gorm.DB, apple *AppleVerifier, google *GoogleVerifier, interval, retryInterval time.Duration) *Poller {
	return &Poller{
		db:            db,
		apple:         apple,
		google:        google,
		reconciler:    NewReconciler(db),
		interval:      interval,
		retryInterval: retryInterval,
	}
}

// Start runs poll cycles until ctx is cancelled. A failed cycle shortens the
// sleep to the retry interval; per-subscription failures do not fail a cycle.
func (p *Poller) Start(ctx context.Context) {
	logging.Infof("Subscription poller started (interval: %s, retry interval: %s)", p.interval, p.retryInterval)

	for {
		sleep := p.interval
		if err := p.RunCycle(ctx); err != nil {
			logging.Errorf("Poll cycle failed: %v", err)
			sleep = p.retryInterval
		}

		select {
		case <-ctx.Done():
			logging.Infof("Subscription poller stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle re-verifies every subscription currently flagged active. Each
// subscription is checked independently; one failure never aborts the batch.
func (p *Poller) RunCycle(ctx context.Context) error {
	var subscriptions []models.Subscription
	if err := p.db.Where("is_active = ?", true).Find(&subscriptions).Error; err != nil {
		return fmt.Errorf("failed to load active subscriptions: %w", err)
	}

	logging.Infof("Checking %d active subscriptions", len(subscriptions))

	for i := range subscriptions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.checkSubscription(ctx, &subscriptions[i]); err != nil {
			logging.Errorf("Failed to check subscription %s: %v", subscriptions[i].SubscriptionID, err)
		}
	}

	logging.Infof("Subscription poll cycle completed")
	return nil
}

// checkSubscription re-verifies one subscription against its vendor and feeds
// the outcome through the reconciler. Records missing their verification
// credential are skipped with a warning, not retried within the cycle.
func (p *Poller) checkSubscription(ctx context.Context, subscription *models.Subscription) error {
	switch subscription.Platform {
	case models.PlatformApple:
		return p.checkApple(ctx, subscription)
	case models.PlatformGoogle:
		return p.checkGoogle(ctx, subscription)
	default:
		logging.Warnf("Skipping subscription %s with unknown platform %q",
			subscription.SubscriptionID, subscription.Platform)
		return nil
	}
}

func (p *Poller) checkApple(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ReceiptData == "" {
		logging.Warnf("Apple subscription %s has no stored receipt data, skipping", subscription.SubscriptionID)
		return nil
	}

	result, err := p.apple.Verify(ctx, subscription.ReceiptData, subscription.ProductID, subscription.SubscriptionID)
	if err != nil {
		if errors.Is(err, ErrMissingSharedSecret) {
			logging.Warnf("Apple verification not configured, skipping subscription %s", subscription.SubscriptionID)
			return nil
		}
		return err
	}

	return p.reconcileResult(ctx, subscription, result)
}

func (p *Poller) checkGoogle(ctx context.Context, subscription *models.Subscription) error {
	if !p.google.Enabled() {
		logging.Warnf("Google verification not configured, skipping subscription %s", subscription.SubscriptionID)
		return nil
	}
	if subscription.PurchaseToken == "" {
		logging.Warnf("Google subscription %s has no stored purchase token, skipping", subscription.SubscriptionID)
		return nil
	}

	result, err := p.google.Verify(ctx, subscription.PurchaseToken, subscription.ProductID)
	if err != nil {
		return err
	}

	return p.reconcileResult(ctx, subscription, result)
}

// reconcileResult turns a verification outcome into a poll-sourced event.
// A vendor rejection deactivates the record rather than being dropped.
func (p *Poller) reconcileResult(ctx context.Context, subscription *models.Subscription, result *VerificationResult) error {
	event := &SubscriptionEvent{
		SubscriptionID: subscription.SubscriptionID,
		FromPoll:       true,
	}

	if result.Valid {
		event.ProductID = result.ProductID
		event.ExpiresDate = &result.ExpiresDate
		event.AutoRenewStatus = boolPtr(result.AutoRenewStatus)
	} else {
		logging.Infof("Subscription %s no longer valid at vendor: %s", subscription.SubscriptionID, result.Err)
		event.IsActive = boolPtr(false)
	}

	if err := p.reconciler.Reconcile(ctx, event); err != nil {
		return err
	}

	logging.Infof("Subscription %s polled (active: %s)", subscription.SubscriptionID, strconv.FormatBool(result.Valid))
	return nil
}

func boolPtr(v bool) *bool {
	return &v
}
