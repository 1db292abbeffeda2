package api

import (
	"errors"
	"net/http"
	"time"

	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/services"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VerifyAppleReceiptRequest represents an Apple receipt verification request
type VerifyAppleReceiptRequest struct {
	ReceiptData   string `json:"receipt_data" binding:"required"`
	ProductID     string `json:"product_id" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

// VerifyAppleReceipt verifies an App Store receipt and stores the resulting
// subscription state. A rejected receipt is a normal outcome, not an error.
func VerifyAppleReceipt(c *gin.Context) {
	var req VerifyAppleReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "Invalid request format: " + err.Error(),
		})
		return
	}

	result, err := deps.Apple.Verify(c.Request.Context(), req.ReceiptData, req.ProductID, req.TransactionID)
	if err != nil {
		if errors.Is(err, services.ErrMissingSharedSecret) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"valid": false,
				"error": "Apple verification is not configured",
			})
			return
		}
		logging.Errorf("Apple receipt verification failed: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "Verification request failed",
		})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": result.Err,
		})
		return
	}

	event := &services.SubscriptionEvent{
		SubscriptionID:  result.SubscriptionID,
		Platform:        models.PlatformApple,
		ProductID:       result.ProductID,
		ReceiptData:     req.ReceiptData,
		ExpiresDate:     &result.ExpiresDate,
		AutoRenewStatus: &result.AutoRenewStatus,
	}
	if err := services.NewReconciler(database.DB).Reconcile(c.Request.Context(), event); err != nil {
		logging.Errorf("Failed to store subscription %s: %v", result.SubscriptionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid": false,
			"error": "Failed to store subscription",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":             true,
		"subscription_id":   result.SubscriptionID,
		"product_id":        result.ProductID,
		"expires_date":      result.ExpiresDate.Format(time.RFC3339),
		"is_active":         result.ExpiresDate.After(time.Now()),
		"auto_renew_status": result.AutoRenewStatus,
	})
}

// VerifyGoogleReceiptRequest represents a Google purchase verification
// request. Older clients send the purchase token in receipt_data.
type VerifyGoogleReceiptRequest struct {
	ReceiptData   string `json:"receipt_data"`
	PurchaseToken string `json:"purchase_token"`
	ProductID     string `json:"product_id" binding:"required"`
	IsRestore     bool   `json:"is_restore"`
}

// VerifyGoogleReceipt verifies a Play Store purchase token and stores the
// resulting subscription state. Restores run through the same path; the
// idempotent upsert makes restore and purchase the same write.
func VerifyGoogleReceipt(c *gin.Context) {
	var req VerifyGoogleReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "Invalid request format: " + err.Error(),
		})
		return
	}

	purchaseToken := req.PurchaseToken
	if purchaseToken == "" {
		purchaseToken = req.ReceiptData
	}
	if purchaseToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "purchase_token or receipt_data is required",
		})
		return
	}

	if req.IsRestore {
		logging.Infof("Google purchase restore requested for product %s", req.ProductID)
	}

	result, err := deps.Google.Verify(c.Request.Context(), purchaseToken, req.ProductID)
	if err != nil {
		logging.Errorf("Google purchase verification failed: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": "Verification request failed",
		})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": result.Err,
		})
		return
	}

	event := &services.SubscriptionEvent{
		SubscriptionID:  result.SubscriptionID,
		Platform:        models.PlatformGoogle,
		ProductID:       result.ProductID,
		PurchaseToken:   purchaseToken,
		ExpiresDate:     &result.ExpiresDate,
		AutoRenewStatus: &result.AutoRenewStatus,
	}
	if err := services.NewReconciler(database.DB).Reconcile(c.Request.Context(), event); err != nil {
		logging.Errorf("Failed to store subscription %s: %v", result.SubscriptionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"valid": false,
			"error": "Failed to store subscription",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":             true,
		"subscription_id":   result.SubscriptionID,
		"product_id":        result.ProductID,
		"expires_date":      result.ExpiresDate.Format(time.RFC3339),
		"is_active":         result.ExpiresDate.After(time.Now()),
		"auto_renew_status": result.AutoRenewStatus,
	})
}

// CheckSubscription reports the stored state of one subscription. A record
// whose expiry has passed is flipped inactive on read, so clients see the
// truth even between poll cycles.
func CheckSubscription(c *gin.Context) {
	subscriptionID := c.Param("subscription_id")

	subscription, err := database.GetSubscription(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"is_active": false,
				"error":     "Subscription not found",
			})
			return
		}
		logging.Errorf("Failed to load subscription %s: %v", subscriptionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"is_active": false,
			"error":     "Failed to load subscription",
		})
		return
	}

	if subscription.IsActive && subscription.ExpiresDate.Before(time.Now()) {
		if err := database.MarkSubscriptionInactive(subscriptionID); err != nil {
			logging.Errorf("Failed to deactivate expired subscription %s: %v", subscriptionID, err)
		}
		subscription.IsActive = false
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_id":   subscription.SubscriptionID,
		"product_id":        subscription.ProductID,
		"platform":          subscription.Platform,
		"is_active":         subscription.IsActive,
		"expires_date":      subscription.ExpiresDate.Format(time.RFC3339),
		"auto_renew_status": subscription.AutoRenewStatus,
	})
}
