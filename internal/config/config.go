package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/log"
)

type Config struct {
	// HTTP Server
	Port      string
	JWTSecret string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger limits
	LedgerMaxAmount      string
	LedgerDescriptionMax int
	LedgerNotesMax       int
	LedgerMaxPast        time.Duration
	LedgerMaxFuture      time.Duration

	// Listing and export
	PageSizeDefault int
	PageSizeMax     int
	ExportMaxSpan   time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID      string
	GoogleExportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	defaults := core.DefaultLimits()

	return &Config{
		Port:      getEnv("PORT", "8081"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/splitledger.db"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "splitledger"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "ledger.events"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		LedgerMaxAmount:      getEnv("LEDGER_MAX_AMOUNT", defaults.MaxAmount.String()),
		LedgerDescriptionMax: getEnvInt("LEDGER_DESCRIPTION_MAX", defaults.DescriptionMax),
		LedgerNotesMax:       getEnvInt("LEDGER_NOTES_MAX", defaults.NotesMax),
		LedgerMaxPast:        getEnvDuration("LEDGER_MAX_PAST", defaults.MaxPast),
		LedgerMaxFuture:      getEnvDuration("LEDGER_MAX_FUTURE", defaults.MaxFuture),

		PageSizeDefault: getEnvInt("PAGE_SIZE_DEFAULT", 50),
		PageSizeMax:     getEnvInt("PAGE_SIZE_MAX", 200),
		ExportMaxSpan:   getEnvDuration("EXPORT_MAX_SPAN", 2*366*24*time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleExportSheetName:    getEnv("GOOGLE_EXPORT_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 bytes")
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
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	switch c.LogFormat {
	case "text", "json", "tint":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json tint]", c.LogFormat))
	}

	if amount, err := decimal.NewFromString(c.LedgerMaxAmount); err != nil || !amount.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid ledger max amount '%s': must be a positive number", c.LedgerMaxAmount))
	}
	if c.LedgerDescriptionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid description max %d: must be at least 1", c.LedgerDescriptionMax))
	}
	if c.LedgerNotesMax < 0 {
		errors = append(errors, fmt.Sprintf("invalid notes max %d: must not be negative", c.LedgerNotesMax))
	}
	if c.LedgerMaxPast < 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ledger max past %v: must be at least 24h", c.LedgerMaxPast))
	}
	if c.LedgerMaxFuture < 0 {
		errors = append(errors, fmt.Sprintf("invalid ledger max future %v: must not be negative", c.LedgerMaxFuture))
	}

	if c.PageSizeMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid page size max %d: must be at least 1", c.PageSizeMax))
	}
	if c.PageSizeDefault < 1 || c.PageSizeDefault > c.PageSizeMax {
		errors = append(errors, fmt.Sprintf("invalid page size default %d: must be between 1 and %d", c.PageSizeDefault, c.PageSizeMax))
	}
	if c.ExportMaxSpan < 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export max span %v: must be at least 24h", c.ExportMaxSpan))
	}

	// Validate Google Sheets configuration if export is enabled
	if c.SheetsEnabled() {
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheet export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Limits returns the ledger bounds. Call after Validate.
func (c *Config) Limits() core.Limits {
	l := core.DefaultLimits()
	if amount, err := decimal.NewFromString(c.LedgerMaxAmount); err == nil {
		l.MaxAmount = amount
	}
	l.DescriptionMax = c.LedgerDescriptionMax
	l.NotesMax = c.LedgerNotesMax
	l.MaxPast = c.LedgerMaxPast
	l.MaxFuture = c.LedgerMaxFuture
	return l
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
