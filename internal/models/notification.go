package models

// AppleTransaction is one transaction entry from Apple's receipt verification
// response or server notification. All numeric fields arrive as strings.
type AppleTransaction struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	PurchaseDateMS        string `json:"purchase_date_ms"`
	ExpiresDateMS         string `json:"expires_date_ms"`
	AutoRenewStatus       string `json:"auto_renew_status"`
	IsTrialPeriod         string `json:"is_trial_period"`
}

// AppleNotification represents an App Store Server Notification (V1).
// The unified receipt carries the freshest transaction first in
// latest_receipt_info, unlike the polled verifyReceipt response.
type AppleNotification struct {
	NotificationType string `json:"notification_type"`
	Environment      string `json:"environment"`
	UnifiedReceipt   struct {
		LatestReceipt     string             `json:"latest_receipt"`
		LatestReceiptInfo []AppleTransaction `json:"latest_receipt_info"`
	} `json:"unified_receipt"`
}

// GooglePubSubEnvelope is the Pub/Sub push wrapper around a Google Play
// Realtime Developer Notification. Message.Data is base64-encoded JSON.
type GooglePubSubEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// GoogleDeveloperNotification is the decoded Pub/Sub message body.
type GoogleDeveloperNotification struct {
	Version                  string                          `json:"version"`
	PackageName              string                          `json:"packageName"`
	EventTimeMillis          string                          `json:"eventTimeMillis"`
	SubscriptionNotification *GoogleSubscriptionNotification `json:"subscriptionNotification"`
}

// GoogleSubscriptionNotification carries the subscription event details.
type GoogleSubscriptionNotification struct {
	Version          string `json:"version"`
	NotificationType int    `json:"notificationType"`
	PurchaseToken    string `json:"purchaseToken"`
	SubscriptionID   string `json:"subscriptionId"`
}

// Google Play notification types this service acts on. Other codes are
// recorded on the subscription but do not change its validity; the poller is
// the corrective mechanism for those.
const (
	GoogleNotificationRecovered = 1
	GoogleNotificationRenewed   = 2
	GoogleNotificationPurchased = 4
)
