package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	TelegramToken string

	// Google Sheets
	SpreadsheetID   string
	CredentialsPath string

	// Backend selection: "sheets" or "memory"
	DataBackend string

	// Pending-entry store
	PendingTTL     time.Duration
	PendingMaxSize int
}

func Load() *Config {
	return &Config{
		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		SpreadsheetID:   getEnv("SPREADSHEET_ID", ""),
		CredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", ""),
		DataBackend:     getEnv("DATA_BACKEND", "sheets"),
		PendingTTL:      getEnvDuration("PENDING_TTL", 15*time.Minute),
		PendingMaxSize:  getEnvInt("PENDING_MAX_SIZE", 256),
	}
}

// Validate checks the configuration, collecting every problem into one
// error. Missing token or storage coordinates is fatal: the process cannot
// serve a single request without them.
func (c *Config) Validate() error {
	var errs []string

	if c.TelegramToken == "" {
		errs = append(errs, "TELEGRAM_TOKEN is required")
	}

	switch c.DataBackend {
	case "sheets":
		if c.SpreadsheetID == "" {
			errs = append(errs, "SPREADSHEET_ID is required when using sheets backend")
		}
		if c.CredentialsPath == "" {
			errs = append(errs, "GOOGLE_CREDENTIALS_PATH is required when using sheets backend")
		} else if _, err := os.Stat(c.CredentialsPath); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("credentials file does not exist: %s", c.CredentialsPath))
		}
	case "memory":
		// Nothing else required
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [sheets memory]", c.DataBackend))
	}

	if c.PendingTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid pending TTL %v: must be at least 1 second", c.PendingTTL))
	}
	if c.PendingMaxSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid pending max size %d: must be at least 1", c.PendingMaxSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
