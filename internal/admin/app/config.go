package app

import (
	"os"
	"strconv"
	"time"

	"github.com/wardenhq/warden/internal/admin/blob"
	"github.com/wardenhq/warden/internal/admin/mail"
)

type Config struct {
	Issuer           string        // Issuer claim for access tokens (default: warden)
	SigningKeyFile   string        // Optional: PEM Ed25519 private key; absent means an ephemeral key per process
	DatabaseFile     string        // Path to SQLite database file (default: ./warden.db)
	AccessTokenTTL   time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL  time.Duration // Refresh token lifetime (default: 168h)
	PasswordResetURL string        // Base URL embedded in reset emails

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	Blob blob.Config
	Mail mail.Config
}

func LoadConfig() Config {
	return Config{
		Issuer:           getEnvOrDefault("WARDEN_ISSUER", "warden"),
		SigningKeyFile:   os.Getenv("WARDEN_SIGNING_KEY_FILE"),
		DatabaseFile:     getEnvOrDefault("WARDEN_DATABASE_FILE", "warden.db"),
		AccessTokenTTL:   getEnvDurationOrDefault("WARDEN_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getEnvDurationOrDefault("WARDEN_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		PasswordResetURL: getEnvOrDefault("WARDEN_PASSWORD_RESET_URL", "http://localhost:8080/reset"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		Blob: blob.Config{
			Bucket:       os.Getenv("WARDEN_S3_BUCKET"),
			Region:       getEnvOrDefault("WARDEN_S3_REGION", "us-east-1"),
			Endpoint:     os.Getenv("WARDEN_S3_ENDPOINT"),
			AccessKey:    os.Getenv("WARDEN_S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("WARDEN_S3_SECRET_KEY"),
			UsePathStyle: os.Getenv("WARDEN_S3_PATH_STYLE") == "true",
		},
		Mail: mail.Config{
			Host:     os.Getenv("WARDEN_SMTP_HOST"),
			Port:     getEnvIntOrDefault("WARDEN_SMTP_PORT", 587),
			Username: os.Getenv("WARDEN_SMTP_USERNAME"),
			Password: os.Getenv("WARDEN_SMTP_PASSWORD"),
			From:     os.Getenv("WARDEN_SMTP_FROM"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
