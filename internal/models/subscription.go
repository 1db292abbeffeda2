package models

import (
	"time"
)

// Platform values for Subscription.Platform
const (
	PlatformApple  = "apple"
	PlatformGoogle = "google"
)

// Subscription is the merged, latest-known state of one purchase lineage.
// SubscriptionID is the Apple original transaction id or the Google latest
// successful order id and never changes once assigned.
type Subscription struct {
	BaseModel

	SubscriptionID string `json:"subscription_id" gorm:"size:100;uniqueIndex;not null"`
	ProductID      string `json:"product_id" gorm:"size:100"`
	Platform       string `json:"platform" gorm:"size:20;index"`

	// Vendor credentials, retained so the poller can re-verify.
	ReceiptData   string `json:"receipt_data,omitempty" gorm:"type:text"`   // Apple base64 receipt blob
	PurchaseToken string `json:"purchase_token,omitempty" gorm:"type:text"` // Google purchase token

	ExpiresDate     time.Time `json:"expires_date" gorm:"index"`
	AutoRenewStatus bool      `json:"auto_renew_status"`

	// IsActive is derived from ExpiresDate at write time and may be up to one
	// poll interval stale. Readers that need ground truth must compare
	// ExpiresDate against the current time as well.
	IsActive bool `json:"is_active" gorm:"index"`

	LastNotificationType string     `json:"last_notification_type" gorm:"size:50"`
	LastPolledAt         *time.Time `json:"last_polled_at" gorm:"index"`
}

// UnknownToken records a Google purchase token that arrived in a notification
// before any verifiable purchase was seen. It is never promoted automatically.
type UnknownToken struct {
	BaseModel

	PurchaseToken    string `json:"purchase_token" gorm:"type:text;uniqueIndex:idx_unknown_token,length:255"`
	PackageName      string `json:"package_name" gorm:"size:200"`
	NotificationType int    `json:"notification_type"`
}
