package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Snapshot store
	SQLiteDBPath  string
	SnapshotsKept int

	// Initial document (used only when the store is empty)
	DocumentPath string
	LedgerName   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Scheduler
	SchedulerInterval time.Duration

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8082"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/envelope.db"),
		SnapshotsKept: getEnvInt("SNAPSHOTS_KEPT", 50),

		DocumentPath: getEnv("DOCUMENT_PATH", ""),
		LedgerName:   getEnv("LEDGER_NAME", "My Budget"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "envelope"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_created"),

		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.SnapshotsKept < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshots kept %d: must be at least 1", c.SnapshotsKept))
	}

	if c.DocumentPath != "" {
		if _, err := os.Stat(c.DocumentPath); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("document file does not exist: %s", c.DocumentPath))
		}
	}

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

	if c.SchedulerInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 minute", c.SchedulerInterval))
	} else if c.SchedulerInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at most 24 hours", c.SchedulerInterval))
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
		}
		hasFile := c.GoogleCredentialsFile != ""
		hasJSON := c.GoogleCredentialsJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsConfigured reports whether the export worker has everything it needs.
func (c *Config) SheetsConfigured() bool {
	return c.GoogleSpreadsheetID != "" &&
		(c.GoogleCredentialsFile != "" || c.GoogleCredentialsJSON != "")
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
