package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Audio blob storage
	AudioDir string

	// Admin API configuration
	AdminAPIKey string

	// Apple App Store configuration
	AppleSharedSecret string
	AppleVerifyURL    string
	AppleSandboxURL   string

	// Google Play configuration
	GoogleServiceAccountEmail      string
	GoogleServiceAccountPrivateKey string
	GoogleTokenURL                 string
	GooglePlayAPIURL               string
	AndroidPackageName             string

	// Subscription polling configuration
	PollInterval  time.Duration
	RetryInterval time.Duration
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:        getEnv("PORT", "8080"),
		Mode:        getEnv("GIN_MODE", "debug"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AudioDir:    getEnv("AUDIO_DIR", "audio"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		AppleSharedSecret: getEnv("APPLE_SHARED_SECRET", ""),
		AppleVerifyURL:    getEnv("APPLE_VERIFY_URL", "https://buy.itunes.apple.com/verifyReceipt"),
		AppleSandboxURL:   getEnv("APPLE_SANDBOX_URL", "https://sandbox.itunes.apple.com/verifyReceipt"),

		GoogleServiceAccountEmail:      getEnv("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		GoogleServiceAccountPrivateKey: getEnv("GOOGLE_SERVICE_ACCOUNT_PRIVATE_KEY", ""),
		GoogleTokenURL:                 getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		GooglePlayAPIURL:               getEnv("GOOGLE_PLAY_API_URL", "https://androidpublisher.googleapis.com"),
		AndroidPackageName:             getEnv("ANDROID_PACKAGE_NAME", ""),

		PollInterval:  getEnvSeconds("SUBSCRIPTION_POLL_INTERVAL", 86400),
		RetryInterval: getEnvSeconds("SUBSCRIPTION_RETRY_INTERVAL", 60),
	}

	return nil
}

// IsGoogleEnabled reports whether Google Play verification is configured
func (c *Config) IsGoogleEnabled() bool {
	return c.GoogleServiceAccountEmail != "" &&
		c.GoogleServiceAccountPrivateKey != "" &&
		c.AndroidPackageName != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return time.Duration(intValue) * time.Second
		}
	}
	return time.Duration(defaultValue) * time.Second
}
