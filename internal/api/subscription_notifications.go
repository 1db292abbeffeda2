package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/response"
	"dailymind-api/internal/services"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AppleSubscriptionNotifications handles App Store Server Notifications.
// Every request is acknowledged with HTTP 200; a non-200 would only make
// Apple redeliver a payload we already know we cannot process.
func AppleSubscriptionNotifications(c *gin.Context) {
	var notification models.AppleNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		logging.Warnf("Malformed Apple notification: %v", err)
		response.NotificationAckError(c, "invalid notification payload")
		return
	}

	logging.Infof("Apple notification received (type: %s, environment: %s)",
		notification.NotificationType, notification.Environment)

	transactions := notification.UnifiedReceipt.LatestReceiptInfo
	if len(transactions) == 0 {
		logging.Warnf("Apple notification %s carried no transactions", notification.NotificationType)
		response.NotificationAckError(c, "no transactions in notification")
		return
	}

	// The unified receipt lists the freshest transaction first
	transaction := transactions[0]
	if transaction.OriginalTransactionID == "" {
		logging.Warnf("Apple notification transaction has no original transaction id")
		response.NotificationAckError(c, "transaction has no original transaction id")
		return
	}

	event := &services.SubscriptionEvent{
		SubscriptionID:   transaction.OriginalTransactionID,
		Platform:         models.PlatformApple,
		ProductID:        transaction.ProductID,
		ReceiptData:      notification.UnifiedReceipt.LatestReceipt,
		NotificationType: notification.NotificationType,
	}

	if expiresDate, err := services.ParseAppleTimestamp(transaction.ExpiresDateMS); err == nil {
		event.ExpiresDate = &expiresDate
		autoRenew := transaction.AutoRenewStatus == "1"
		event.AutoRenewStatus = &autoRenew
	} else {
		logging.Warnf("Apple notification transaction has unparseable expiry %q", transaction.ExpiresDateMS)
	}

	if err := services.NewReconciler(database.DB).Reconcile(c.Request.Context(), event); err != nil {
		logging.Errorf("Failed to reconcile Apple notification for %s: %v", event.SubscriptionID, err)
		response.NotificationAckError(c, "failed to store notification")
		return
	}

	response.NotificationAck(c)
}

// GoogleSubscriptionNotifications handles Play realtime developer
// notifications delivered by Pub/Sub push. Acknowledged with HTTP 200 in all
// cases for the same redelivery reason as the Apple endpoint.
func GoogleSubscriptionNotifications(c *gin.Context) {
	var envelope models.GooglePubSubEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		logging.Warnf("Malformed Pub/Sub envelope: %v", err)
		response.NotificationAckError(c, "invalid envelope")
		return
	}

	payload, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		logging.Warnf("Failed to decode Pub/Sub message data: %v", err)
		response.NotificationAckError(c, "invalid message data")
		return
	}

	var notification models.GoogleDeveloperNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		logging.Warnf("Failed to parse developer notification: %v", err)
		response.NotificationAckError(c, "invalid notification payload")
		return
	}

	// Test notifications and one-time product events carry no subscription
	if notification.SubscriptionNotification == nil {
		logging.Infof("Google notification without subscription details, ignoring")
		response.NotificationAck(c)
		return
	}

	sub := notification.SubscriptionNotification
	logging.Infof("Google notification received (type: %d, package: %s)",
		sub.NotificationType, notification.PackageName)

	subscription, err := database.GetSubscriptionByPurchaseToken(sub.PurchaseToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No purchase has been verified for this token yet; remember it
			// for reconciliation once the client verifies
			if err := database.RecordUnknownToken(sub.PurchaseToken, notification.PackageName, sub.NotificationType); err != nil {
				logging.Errorf("Failed to record unknown purchase token: %v", err)
			}
			response.NotificationAck(c)
			return
		}
		logging.Errorf("Failed to look up purchase token: %v", err)
		response.NotificationAckError(c, "failed to look up subscription")
		return
	}

	event := &services.SubscriptionEvent{
		SubscriptionID:   subscription.SubscriptionID,
		Platform:         models.PlatformGoogle,
		PurchaseToken:    sub.PurchaseToken,
		NotificationType: strconv.Itoa(sub.NotificationType),
	}

	switch sub.NotificationType {
	case models.GoogleNotificationRecovered,
		models.GoogleNotificationRenewed,
		models.GoogleNotificationPurchased:
		active := true
		event.IsActive = &active
		event.AutoRenewStatus = &active
	}

	if err := services.NewReconciler(database.DB).Reconcile(c.Request.Context(), event); err != nil {
		logging.Errorf("Failed to reconcile Google notification for %s: %v", subscription.SubscriptionID, err)
		response.NotificationAckError(c, "failed to store notification")
		return
	}

	response.NotificationAck(c)
}
