package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/kampunglabs/siskamling/pkg/jwtx"
)

type Config struct {
	JWTSecret     string        // Required: HS256 signing secret, at least 32 bytes
	AccessTTL     time.Duration // Access token lifetime (default: 15m)
	RefreshTTL    time.Duration // Refresh token lifetime (default: 7d)
	EncryptionKey string        // Required: camera secret key, 64-char hex or raw passphrase

	MaxLoginAttempts int           // Failed logins tolerated inside the lockout window (default: 5)
	LockoutWindow    time.Duration // Trailing lockout window (default: 15m)

	DatabaseFile         string        // Path to SQLite database file (default: ./portal.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	TelegramBotToken string // Optional: operator notifications via Telegram
	TelegramChatID   string
}

// LoadConfig reads configuration from the environment. Token lifetimes use
// the compact unit grammar ("15m", "7d"); see jwtx.ParseLifetime.
func LoadConfig() Config {
	return Config{
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AccessTTL:     getEnvLifetimeOrDefault("JWT_EXPIRES_IN", jwtx.DefaultLifetime),
		RefreshTTL:    getEnvLifetimeOrDefault("REFRESH_TOKEN_EXPIRES_IN", 7*24*time.Hour),
		EncryptionKey: os.Getenv("ENCRYPTION_KEY"),

		MaxLoginAttempts: getEnvIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LockoutWindow:    time.Duration(getEnvIntOrDefault("LOGIN_LOCKOUT_MINUTES", 15)) * time.Minute,

		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "portal.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// Validate rejects configurations that cannot possibly run safely.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY is required")
	}
	if c.MaxLoginAttempts < 1 {
		return errors.New("LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	return nil
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

func getEnvLifetimeOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return jwtx.ParseLifetime(value)
}
