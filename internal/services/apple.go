package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"dailymind-api/internal/config"
	"dailymind-api/internal/models"
	"dailymind-api/pkg/logging"
)

// ErrMissingSharedSecret indicates the Apple shared secret is not configured.
// Surfaced as a server error at the call site, never a process crash.
var ErrMissingSharedSecret = errors.New("APPLE_SHARED_SECRET is not configured")

// appleStatusSandboxReceipt is Apple's "sandbox receipt sent to production"
// status; it triggers exactly one retry against the sandbox endpoint.
const appleStatusSandboxReceipt = 21007

// VerificationResult is the normalized outcome of a vendor receipt check.
// Valid=false with a non-empty Err covers both vendor rejections and
// transport-level failures; neither is ever treated as active.
type VerificationResult struct {
	Valid           bool
	SubscriptionID  string
	ProductID       string
	ExpiresDate     time.Time
	AutoRenewStatus bool
	Err             string
}

// AppleVerificationError represents a nonzero Apple verification status
type AppleVerificationError struct {
	Status int
}

func (e *AppleVerificationError) Error() string {
	return fmt.Sprintf("apple verification failed with status: %d", e.Status)
}

// AppleVerifier verifies App Store receipts against the verifyReceipt endpoint
type AppleVerifier struct {
	httpClient   *http.Client
	verifyURL    string
	sandboxURL   string
	sharedSecret string
}

// NewAppleVerifier creates an Apple receipt verifier from the app config
func NewAppleVerifier() *AppleVerifier {
	return &AppleVerifier{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		verifyURL:    config.AppConfig.AppleVerifyURL,
		sandboxURL:   config.AppConfig.AppleSandboxURL,
		sharedSecret: config.AppConfig.AppleSharedSecret,
	}
}

// appleReceiptResponse is the verifyReceipt response. Transactions can appear
// both in the top-level latest_receipt_info list and nested in receipt.in_app;
// neither location is guaranteed to hold the newest one.
type appleReceiptResponse struct {
	Status            int                       `json:"status"`
	Environment       string                    `json:"environment"`
	LatestReceipt     string                    `json:"latest_receipt"`
	LatestReceiptInfo []models.AppleTransaction `json:"latest_receipt_info"`
	Receipt           struct {
		BundleID string                    `json:"bundle_id"`
		InApp    []models.AppleTransaction `json:"in_app"`
	} `json:"receipt"`
}

// Verify validates a receipt and returns the normalized result for the
// transaction matching productID with the latest expiry. Transport failures
// are returned as errors; vendor rejections come back as an invalid result.
func (v *AppleVerifier) Verify(ctx context.Context, receiptData, productID, transactionID string) (*VerificationResult, error) {
	if v.sharedSecret == "" {
		return nil, ErrMissingSharedSecret
	}

	resp, err := v.verifyWithApple(ctx, v.verifyURL, receiptData)
	if err != nil {
		return nil, err
	}

	// Sandbox receipt sent to production: retry once against sandbox
	if resp.Status == appleStatusSandboxReceipt {
		logging.Infof("Receipt is from sandbox, retrying with sandbox URL")
		resp, err = v.verifyWithApple(ctx, v.sandboxURL, receiptData)
		if err != nil {
			return nil, err
		}
	}

	if resp.Status != 0 {
		appleErr := &AppleVerificationError{Status: resp.Status}
		logging.Errorf("Apple receipt verification failed: %v", appleErr)
		return &VerificationResult{Valid: false, Err: appleErr.Error()}, nil
	}

	transaction := latestTransaction(resp, productID)
	if transaction == nil {
		return &VerificationResult{Valid: false, Err: "no matching subscription transaction found"}, nil
	}

	expiresDate, err := ParseAppleTimestamp(transaction.ExpiresDateMS)
	if err != nil {
		return &VerificationResult{Valid: false, Err: fmt.Sprintf("failed to parse expires date: %v", err)}, nil
	}

	subscriptionID := transaction.OriginalTransactionID
	if subscriptionID == "" {
		subscriptionID = transactionID
	}
	if subscriptionID == "" {
		subscriptionID = fmt.Sprintf("apple_%d", time.Now().Unix())
	}

	return &VerificationResult{
		Valid:           true,
		SubscriptionID:  subscriptionID,
		ProductID:       productID,
		ExpiresDate:     expiresDate,
		AutoRenewStatus: transaction.AutoRenewStatus == "1",
	}, nil
}

// verifyWithApple posts the receipt to one verification endpoint
func (v *AppleVerifier) verifyWithApple(ctx context.Context, url, receiptData string) (*appleReceiptResponse, error) {
	requestBody := map[string]interface{}{
		"receipt-data":             receiptData,
		"password":                 v.sharedSecret,
		"exclude-old-transactions": false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify receipt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verification endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var appleResp appleReceiptResponse
	if err := json.Unmarshal(body, &appleResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &appleResp, nil
}

// latestTransaction merges the transactions for productID from both response
// locations and picks the one with the maximum expires_date_ms. The vendor
// does not guarantee the newest transaction lives in one canonical place.
func latestTransaction(resp *appleReceiptResponse, productID string) *models.AppleTransaction {
	var matching []models.AppleTransaction

	for _, t := range resp.LatestReceiptInfo {
		if t.ProductID == productID {
			matching = append(matching, t)
		}
	}
	for _, t := range resp.Receipt.InApp {
		if t.ProductID == productID {
			matching = append(matching, t)
		}
	}

	if len(matching) == 0 {
		return nil
	}

	// Unparseable expiry strings sort as zero rather than failing the lookup
	sort.SliceStable(matching, func(i, j int) bool {
		return appleExpiryMS(matching[i]) > appleExpiryMS(matching[j])
	})

	return &matching[0]
}

func appleExpiryMS(t models.AppleTransaction) int64 {
	ms, err := strconv.ParseInt(t.ExpiresDateMS, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

// ParseAppleTimestamp parses Apple's millisecond epoch string into UTC time
func ParseAppleTimestamp(timestampStr string) (time.Time, error) {
	if timestampStr == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	ms, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC(), nil
}
