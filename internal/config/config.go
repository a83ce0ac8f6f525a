package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bankcore/internal/services"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL         string
	AMQPExchange    string
	AMQPNotifyQueue string
	AMQPExportQueue string

	// Scheduler
	SchedulerRunAt        string
	SchedulerLookahead    time.Duration
	SchedulerRunOnStartup bool
	Timezone              string

	// Analytics cache
	AnalyticsCache     string
	AnalyticsCacheTTL  time.Duration
	AnalyticsCacheSize int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Google Sheets export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// SMTP notification delivery, log-only when SMTPAddr is empty
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	LogLevel string
}

var (
	validBackends      = []string{"sqlite", "memory"}
	validCacheBackends = []string{"none", "memory", "redis"}
	validLogLevels     = []string{"debug", "info", "warn", "warning", "error"}
)

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bankcore.db"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "bankcore"),
		AMQPNotifyQueue: getEnv("AMQP_NOTIFY_QUEUE", "notifications"),
		AMQPExportQueue: getEnv("AMQP_EXPORT_QUEUE", "record_exports"),

		SchedulerRunAt:        getEnv("SCHEDULER_RUN_AT", "00:00"),
		SchedulerLookahead:    getEnvDuration("SCHEDULER_LOOKAHEAD", services.DefaultDueLookahead),
		SchedulerRunOnStartup: getEnvBool("SCHEDULER_RUN_ON_STARTUP", true),
		Timezone:              getEnv("BANK_TIMEZONE", "Local"),

		AnalyticsCache:     getEnv("ANALYTICS_CACHE", "memory"),
		AnalyticsCacheTTL:  getEnvDuration("ANALYTICS_CACHE_TTL", time.Hour),
		AnalyticsCacheSize: getEnvInt("ANALYTICS_CACHE_SIZE", 1000),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transfers"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SMTPAddr:     getEnv("SMTP_ADDR", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@bankcore.local"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Location resolves Timezone; an invalid zone falls back to time.Local.
// Validate reports invalid zones.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if !contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
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

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPNotifyQueue == "" || c.AMQPExportQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		} else if c.AMQPNotifyQueue == c.AMQPExportQueue {
			errors = append(errors, fmt.Sprintf("AMQP notify and export queues must differ, both are '%s'", c.AMQPNotifyQueue))
		}
	}

	if _, err := services.ParseDailyTrigger(c.SchedulerRunAt, time.UTC); err != nil {
		errors = append(errors, err.Error())
	}
	if c.SchedulerLookahead < 0 {
		errors = append(errors, fmt.Sprintf("invalid scheduler lookahead %v: must not be negative", c.SchedulerLookahead))
	} else if c.SchedulerLookahead > 31*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler lookahead %v: must be at most 31 days", c.SchedulerLookahead))
	}
	if _, err := loadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if !contains(validCacheBackends, c.AnalyticsCache) {
		errors = append(errors, fmt.Sprintf("invalid analytics cache '%s': must be one of %v", c.AnalyticsCache, validCacheBackends))
	}
	if c.AnalyticsCache != "none" {
		if c.AnalyticsCacheTTL < time.Second {
			errors = append(errors, fmt.Sprintf("invalid analytics cache ttl %v: must be at least 1 second", c.AnalyticsCacheTTL))
		} else if c.AnalyticsCacheTTL > 24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid analytics cache ttl %v: must be at most 24 hours", c.AnalyticsCacheTTL))
		}
	}
	if c.AnalyticsCache == "memory" && c.AnalyticsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid analytics cache size %d: must be at least 1", c.AnalyticsCacheSize))
	}
	if c.AnalyticsCache == "redis" {
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address is required when using redis analytics cache")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			errors = append(errors, fmt.Sprintf("invalid redis db %d: must be between 0 and 15", c.RedisDB))
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SMTPAddr != "" {
		if _, port, ok := strings.Cut(c.SMTPAddr, ":"); !ok || port == "" {
			errors = append(errors, fmt.Sprintf("invalid SMTP address '%s': must be host:port", c.SMTPAddr))
		}
		if c.SMTPFrom == "" {
			errors = append(errors, "SMTP sender address cannot be empty when SMTP is configured")
		}
	}

	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
