package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"costalert/internal/core"
	applog "costalert/internal/log"
)

// DefaultConfigFile is the YAML file checked when COST_ALERT_CONFIG is unset.
const DefaultConfigFile = "cost-alert.yaml"

// Ledger backends
const (
	BackendSQLite   = "sqlite"
	BackendMarkdown = "markdown"
)

type Config struct {
	// DigitalOcean
	DOToken           string        `yaml:"-"`
	DOAPIURL          string        `yaml:"do_api_url"`
	BillingTimeout    time.Duration `yaml:"billing_timeout"`
	BillingMaxRetries int           `yaml:"billing_max_retries"`

	// Output
	ReportsDir    string `yaml:"reports_dir"`
	LedgerBackend string `yaml:"ledger_backend"`
	SQLiteDBPath  string `yaml:"sqlite_db_path"`
	Timezone      string `yaml:"timezone"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// AMQP (optional)
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets mirror (optional)
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`
	GoogleSheetName     string `yaml:"google_sheet_name"`

	// Sentry (optional)
	SentryDSN         string `yaml:"-"`
	SentryEnvironment string `yaml:"sentry_environment"`
}

// ValidationError lists every configuration problem found. It matches
// core.ErrConfiguration under errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *ValidationError) Is(target error) bool {
	return target == core.ErrConfiguration
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		DOAPIURL:          "https://api.digitalocean.com",
		BillingTimeout:    30 * time.Second,
		BillingMaxRetries: 3,
		ReportsDir:        ".",
		LedgerBackend:     BackendSQLite,
		SQLiteDBPath:      "./data/ledger.db",
		Timezone:          "UTC",
		LogLevel:          "info",
		LogFormat:         "text",
		AMQPExchange:      "cost_alert",
		AMQPQueue:         "ledger_updates",
		GoogleSheetName:   "DigitalOcean",
		SentryEnvironment: "production",
	}
}

// Load reads configuration using the hierarchy defaults < YAML < ENV. The
// YAML path comes from COST_ALERT_CONFIG.
func Load() (*Config, error) {
	return LoadFrom(getEnv("COST_ALERT_CONFIG", DefaultConfigFile))
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("%w: config yaml: %v", core.ErrConfiguration, err)
	}

	loadEnv(&cfg)
	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays non-empty environment variables onto cfg.
func loadEnv(cfg *Config) {
	setString(&cfg.DOToken, "DO_TOKEN")
	setString(&cfg.DOAPIURL, "DO_API_URL")
	setDuration(&cfg.BillingTimeout, "BILLING_TIMEOUT")
	setInt(&cfg.BillingMaxRetries, "BILLING_MAX_RETRIES")

	setString(&cfg.ReportsDir, "REPORTS_DIR")
	setString(&cfg.LedgerBackend, "LEDGER_BACKEND")
	setString(&cfg.SQLiteDBPath, "SQLITE_DB_PATH")
	setString(&cfg.Timezone, "TIMEZONE")

	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	setString(&cfg.AMQPURL, "AMQP_URL")
	setString(&cfg.AMQPExchange, "AMQP_EXCHANGE")
	setString(&cfg.AMQPQueue, "AMQP_QUEUE")

	setString(&cfg.GoogleSpreadsheetID, "GOOGLE_SPREADSHEET_ID")
	setString(&cfg.GoogleSheetName, "GOOGLE_SHEET_NAME")

	setString(&cfg.SentryDSN, "SENTRY_DSN")
	setString(&cfg.SentryEnvironment, "SENTRY_ENVIRONMENT")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	return c.validate(true)
}

// ValidateLedger checks only what the ledger commands need; the provider
// token is not required.
func (c *Config) ValidateLedger() error {
	return c.validate(false)
}

func (c *Config) validate(requireToken bool) error {
	var problems []string

	if requireToken && strings.TrimSpace(c.DOToken) == "" {
		problems = append(problems, "DigitalOcean API token not found, set DO_TOKEN")
	}

	if u, err := url.Parse(c.DOAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid DigitalOcean API URL '%s'", c.DOAPIURL))
	}
	if c.BillingTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid billing timeout %v: must be positive", c.BillingTimeout))
	}
	if c.BillingMaxRetries < 0 || c.BillingMaxRetries > 10 {
		problems = append(problems, fmt.Sprintf("invalid billing max retries %d: must be between 0 and 10", c.BillingMaxRetries))
	}

	if strings.TrimSpace(c.ReportsDir) == "" {
		problems = append(problems, "reports directory cannot be empty")
	}

	switch c.LedgerBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendMarkdown:
	default:
		problems = append(problems, fmt.Sprintf("invalid ledger backend '%s': must be one of [%s %s]", c.LedgerBackend, BackendSQLite, BackendMarkdown))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		problems = append(problems, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Location returns the configured time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AMQPEnabled reports whether ledger updates should be published
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the ledger should be mirrored to Google Sheets
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
