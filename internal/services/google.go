package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailymind-api/internal/config"
	"dailymind-api/pkg/logging"

	"github.com/golang-jwt/jwt/v5"
)

const (
	googleStateActive      = "SUBSCRIPTION_STATE_ACTIVE"
	androidPublisherScope  = "https://www.googleapis.com/auth/androidpublisher"
	googleJWTBearerGrant   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	googleStubSubscription = 30 * 24 * time.Hour
)

// GoogleVerifier checks subscription state through the Play Developer API,
// authenticating with a service-account JWT grant.
type GoogleVerifier struct {
	httpClient          *http.Client
	serviceAccountEmail string
	privateKeyPEM       string
	tokenURL            string
	apiBaseURL          string
	packageName         string
}

// NewGoogleVerifier creates a Google Play verifier from the app config
func NewGoogleVerifier() *GoogleVerifier {
	return &GoogleVerifier{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		serviceAccountEmail: config.AppConfig.GoogleServiceAccountEmail,
		privateKeyPEM:       config.AppConfig.GoogleServiceAccountPrivateKey,
		tokenURL:            config.AppConfig.GoogleTokenURL,
		apiBaseURL:          config.AppConfig.GooglePlayAPIURL,
		packageName:         config.AppConfig.AndroidPackageName,
	}
}

// Enabled reports whether service-account credentials are configured
func (v *GoogleVerifier) Enabled() bool {
	return v.serviceAccountEmail != "" && v.privateKeyPEM != "" && v.packageName != ""
}

// googleSubscriptionResponse is the purchases.subscriptionsv2 response
type googleSubscriptionResponse struct {
	SubscriptionState string           `json:"subscriptionState"`
	LineItems         []googleLineItem `json:"lineItems"`
}

type googleLineItem struct {
	ProductID        string `json:"productId"`
	ExpiryTime       string `json:"expiryTime"`
	AutoRenewingPlan struct {
		AutoRenewEnabled bool `json:"autoRenewEnabled"`
	} `json:"autoRenewingPlan"`
	LatestSuccessfulOrderID string `json:"latestSuccessfulOrderId"`
}

// Verify checks a purchase token against the Play Developer API. When the
// service account is not configured the platform degrades to a stubbed
// always-valid result instead of failing.
func (v *GoogleVerifier) Verify(ctx context.Context, purchaseToken, productID string) (*VerificationResult, error) {
	if !v.Enabled() {
		logging.Warnf("Google service account not configured, using stubbed verification")
		return &VerificationResult{
			Valid:           true,
			SubscriptionID:  fmt.Sprintf("google_%d", time.Now().Unix()),
			ProductID:       productID,
			ExpiresDate:     time.Now().UTC().Add(googleStubSubscription),
			AutoRenewStatus: true,
		}, nil
	}

	accessToken, err := v.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	subscription, err := v.fetchSubscription(ctx, accessToken, purchaseToken)
	if err != nil {
		return nil, err
	}

	// Exactly one state counts as active; everything else is invalid
	if subscription.SubscriptionState != googleStateActive {
		return &VerificationResult{
			Valid: false,
			Err:   fmt.Sprintf("subscription state is %s", subscription.SubscriptionState),
		}, nil
	}

	for _, item := range subscription.LineItems {
		if item.ProductID != productID {
			continue
		}

		expiresDate, err := time.Parse(time.RFC3339Nano, item.ExpiryTime)
		if err != nil {
			return &VerificationResult{Valid: false, Err: fmt.Sprintf("failed to parse expiry time: %v", err)}, nil
		}

		subscriptionID := item.LatestSuccessfulOrderID
		if subscriptionID == "" {
			subscriptionID = fmt.Sprintf("google_%d", time.Now().Unix())
		}

		return &VerificationResult{
			Valid:           true,
			SubscriptionID:  subscriptionID,
			ProductID:       productID,
			ExpiresDate:     expiresDate.UTC(),
			AutoRenewStatus: item.AutoRenewingPlan.AutoRenewEnabled,
		}, nil
	}

	return &VerificationResult{Valid: false, Err: "no matching line item found"}, nil
}

// fetchSubscription calls the subscriptionsv2 endpoint for one purchase token
func (v *GoogleVerifier) fetchSubscription(ctx context.Context, accessToken, purchaseToken string) (*googleSubscriptionResponse, error) {
	endpoint := fmt.Sprintf("%s/androidpublisher/v3/applications/%s/purchases/subscriptionsv2/tokens/%s",
		v.apiBaseURL, url.PathEscape(v.packageName), url.PathEscape(purchaseToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Play Developer API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Play Developer API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var subscription googleSubscriptionResponse
	if err := json.Unmarshal(body, &subscription); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &subscription, nil
}

// accessToken exchanges a signed service-account assertion for a bearer token
func (v *GoogleVerifier) accessToken(ctx context.Context) (string, error) {
	// Keys pasted into env files usually carry escaped newlines
	pemData := strings.ReplaceAll(v.privateKeyPEM, `\n`, "\n")
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account key: %w", err)
	}

	now := time.Now()
	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   v.serviceAccountEmail,
		"scope": androidPublisherScope,
		"aud":   v.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})

	signed, err := assertion.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", googleJWTBearerGrant)
	form.Set("assertion", signed)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	return tokenResp.AccessToken, nil
}
