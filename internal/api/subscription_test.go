package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"dailymind-api/internal/config"
	"dailymind-api/internal/database"
	"dailymind-api/internal/models"
	"dailymind-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupTestAPI(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.UnknownToken{}))
	database.DB = db

	r := gin.New()
	r.GET("/api/check-subscription/:subscription_id", CheckSubscription)
	r.POST("/api/apple-subscription-notifications", AppleSubscriptionNotifications)
	r.POST("/api/google-subscription-notifications", GoogleSubscriptionNotifications)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pubsubEnvelope(t *testing.T, notification interface{}) map[string]interface{} {
	t.Helper()

	data, err := json.Marshal(notification)
	require.NoError(t, err)

	return map[string]interface{}{
		"message": map[string]interface{}{
			"data":      base64.StdEncoding.EncodeToString(data),
			"messageId": "msg-1",
		},
		"subscription": "projects/test/subscriptions/play-events",
	}
}

func TestVerifyAppleReceiptEndToEnd(t *testing.T) {
	r := setupTestAPI(t)

	future := time.Now().Add(24 * time.Hour).UnixMilli()
	appleServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 0,
			"latest_receipt_info": []map[string]interface{}{
				{
					"product_id":              "premium_monthly",
					"original_transaction_id": "orig-1",
					"expires_date_ms":         strconv.FormatInt(future, 10),
					"auto_renew_status":       "1",
				},
			},
		})
	}))
	defer appleServer.Close()

	config.AppConfig = &config.Config{
		AppleSharedSecret: "test-secret",
		AppleVerifyURL:    appleServer.URL,
		AppleSandboxURL:   appleServer.URL,
	}
	deps.Apple = services.NewAppleVerifier()
	r.POST("/api/verify-receipt", VerifyAppleReceipt)

	w := doJSON(t, r, http.MethodPost, "/api/verify-receipt", map[string]interface{}{
		"receipt_data": "receipt-blob",
		"product_id":   "premium_monthly",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, "orig-1", resp["subscription_id"])

	var stored models.Subscription
	require.NoError(t, database.DB.Where("subscription_id = ?", "orig-1").First(&stored).Error)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "receipt-blob", stored.ReceiptData)
}

func TestCheckSubscriptionLazyDeactivation(t *testing.T) {
	r := setupTestAPI(t)

	sub := models.Subscription{
		SubscriptionID: "sub-1",
		Platform:       models.PlatformApple,
		ProductID:      "premium_monthly",
		ExpiresDate:    time.Now().Add(-time.Hour),
		IsActive:       true,
	}
	require.NoError(t, database.DB.Create(&sub).Error)

	w := doJSON(t, r, http.MethodGet, "/api/check-subscription/sub-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["is_active"])

	// The flip is persisted, not just reported
	var stored models.Subscription
	require.NoError(t, database.DB.Where("subscription_id = ?", "sub-1").First(&stored).Error)
	assert.False(t, stored.IsActive)
}

func TestCheckSubscriptionActive(t *testing.T) {
	r := setupTestAPI(t)

	sub := models.Subscription{
		SubscriptionID:  "sub-1",
		Platform:        models.PlatformGoogle,
		ProductID:       "premium_yearly",
		ExpiresDate:     time.Now().Add(24 * time.Hour),
		IsActive:        true,
		AutoRenewStatus: true,
	}
	require.NoError(t, database.DB.Create(&sub).Error)

	w := doJSON(t, r, http.MethodGet, "/api/check-subscription/sub-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["is_active"])
	assert.Equal(t, "premium_yearly", resp["product_id"])
}

func TestCheckSubscriptionNotFound(t *testing.T) {
	r := setupTestAPI(t)

	w := doJSON(t, r, http.MethodGet, "/api/check-subscription/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppleNotificationReconcilesSubscription(t *testing.T) {
	r := setupTestAPI(t)

	future := time.Now().Add(24 * time.Hour).UnixMilli()
	payload := map[string]interface{}{
		"notification_type": "DID_RENEW",
		"environment":       "PROD",
		"unified_receipt": map[string]interface{}{
			"latest_receipt": "fresh-receipt-blob",
			"latest_receipt_info": []map[string]interface{}{
				{
					"product_id":              "premium_monthly",
					"original_transaction_id": "orig-1",
					"expires_date_ms":         strconv.FormatInt(future, 10),
					"auto_renew_status":       "1",
				},
			},
		},
	}

	w := doJSON(t, r, http.MethodPost, "/api/apple-subscription-notifications", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])

	var stored models.Subscription
	require.NoError(t, database.DB.Where("subscription_id = ?", "orig-1").First(&stored).Error)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "DID_RENEW", stored.LastNotificationType)
	assert.Equal(t, "fresh-receipt-blob", stored.ReceiptData)
}

func TestAppleNotificationMalformedStillAcknowledged(t *testing.T) {
	r := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/apple-subscription-notifications",
		bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
}

func TestGoogleNotificationUnknownToken(t *testing.T) {
	r := setupTestAPI(t)

	envelope := pubsubEnvelope(t, map[string]interface{}{
		"version":         "1.0",
		"packageName":     "com.example.dailymind",
		"eventTimeMillis": "1700000000000",
		"subscriptionNotification": map[string]interface{}{
			"version":          "1.0",
			"notificationType": 2,
			"purchaseToken":    "never-seen-token",
			"subscriptionId":   "premium_monthly",
		},
	})

	// Deliver twice; redelivery must not duplicate the record
	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/google-subscription-notifications", envelope)
		require.Equal(t, http.StatusOK, w.Code)
	}

	var unknownCount int64
	require.NoError(t, database.DB.Model(&models.UnknownToken{}).Count(&unknownCount).Error)
	assert.Equal(t, int64(1), unknownCount)

	var subCount int64
	require.NoError(t, database.DB.Model(&models.Subscription{}).Count(&subCount).Error)
	assert.Equal(t, int64(0), subCount)
}

func TestGoogleNotificationRenewsKnownSubscription(t *testing.T) {
	r := setupTestAPI(t)

	sub := models.Subscription{
		SubscriptionID: "GPA.1234",
		Platform:       models.PlatformGoogle,
		ProductID:      "premium_monthly",
		PurchaseToken:  "known-token",
		ExpiresDate:    time.Now().Add(-time.Hour),
		IsActive:       false,
	}
	require.NoError(t, database.DB.Create(&sub).Error)

	envelope := pubsubEnvelope(t, map[string]interface{}{
		"packageName": "com.example.dailymind",
		"subscriptionNotification": map[string]interface{}{
			"notificationType": 2,
			"purchaseToken":    "known-token",
			"subscriptionId":   "premium_monthly",
		},
	})

	w := doJSON(t, r, http.MethodPost, "/api/google-subscription-notifications", envelope)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Subscription
	require.NoError(t, database.DB.Where("subscription_id = ?", "GPA.1234").First(&stored).Error)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.AutoRenewStatus)
	assert.Equal(t, "2", stored.LastNotificationType)
}

func TestGoogleNotificationUnmappedTypeOnlyRecorded(t *testing.T) {
	r := setupTestAPI(t)

	sub := models.Subscription{
		SubscriptionID: "GPA.5678",
		Platform:       models.PlatformGoogle,
		ProductID:      "premium_monthly",
		PurchaseToken:  "known-token",
		ExpiresDate:    time.Now().Add(24 * time.Hour),
		IsActive:       true,
	}
	require.NoError(t, database.DB.Create(&sub).Error)

	// Type 3 (canceled) is not mapped; the poller corrects validity later
	envelope := pubsubEnvelope(t, map[string]interface{}{
		"packageName": "com.example.dailymind",
		"subscriptionNotification": map[string]interface{}{
			"notificationType": 3,
			"purchaseToken":    "known-token",
			"subscriptionId":   "premium_monthly",
		},
	})

	w := doJSON(t, r, http.MethodPost, "/api/google-subscription-notifications", envelope)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Subscription
	require.NoError(t, database.DB.Where("subscription_id = ?", "GPA.5678").First(&stored).Error)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "3", stored.LastNotificationType)
}

func TestGoogleNotificationWithoutSubscriptionDetails(t *testing.T) {
	r := setupTestAPI(t)

	envelope := pubsubEnvelope(t, map[string]interface{}{
		"version":     "1.0",
		"packageName": "com.example.dailymind",
	})

	w := doJSON(t, r, http.MethodPost, "/api/google-subscription-notifications", envelope)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
}
