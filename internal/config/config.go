package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// AMQP (optional; events are not published when the URL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger
	Currency string
	LogLevel string

	// Auto-close worker
	AutoCloseInterval    time.Duration
	AutoCloseGraceDays   int
	AutoCloseConcurrency int

	// Category progress cache
	ProgressCacheSize int
	ProgressCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_audit"),

		Currency: strings.ToUpper(getEnv("LEDGER_CURRENCY", "EUR")),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AutoCloseInterval:    getEnvDuration("AUTO_CLOSE_INTERVAL", time.Hour),
		AutoCloseGraceDays:   getEnvInt("AUTO_CLOSE_GRACE_DAYS", 5),
		AutoCloseConcurrency: getEnvInt("AUTO_CLOSE_CONCURRENCY", 4),

		ProgressCacheSize: getEnvInt("PROGRESS_CACHE_SIZE", 256),
		ProgressCacheTTL:  getEnvDuration("PROGRESS_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// AMQPEnabled reports whether an AMQP broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := core.Zero(c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger currency '%s': must be a 3-letter ISO code", c.Currency))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate worker configuration
	if c.AutoCloseInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid auto-close interval %v: must be at least 1 minute", c.AutoCloseInterval))
	} else if c.AutoCloseInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid auto-close interval %v: must be at most 24 hours", c.AutoCloseInterval))
	}

	if c.AutoCloseGraceDays < 0 || c.AutoCloseGraceDays > 27 {
		errors = append(errors, fmt.Sprintf("invalid auto-close grace days %d: must be between 0 and 27", c.AutoCloseGraceDays))
	}

	if c.AutoCloseConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid auto-close concurrency %d: must be at least 1", c.AutoCloseConcurrency))
	} else if c.AutoCloseConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid auto-close concurrency %d: must be at most 64", c.AutoCloseConcurrency))
	}

	if c.ProgressCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid progress cache size %d: must be at least 1", c.ProgressCacheSize))
	}
	if c.ProgressCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid progress cache TTL %v: must be positive", c.ProgressCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
