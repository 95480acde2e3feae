package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends for the expenses worksheet.
const (
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Worksheet
	DataBackend   string
	SpreadsheetID string
	WorksheetName string

	// Extraction
	GeminiModel        string
	InferenceTimeout   time.Duration
	ExtractConcurrency int
	QueueWorkers       int

	// Analytics
	AnalyticsCacheTTL time.Duration
	BudgetsFile       string

	// Optional archive / audit
	ArchiveBucket   string
	BigQueryProject string
	BigQueryDataset string

	// Logging
	LogLevel  string
	LogFormat string

	// Secrets
	SecretsFile string
}

// Load reads an optional .env file, then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config from getenv. Unparsable numbers and durations fall
// back to their defaults.
func LoadFrom(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		if i, err := strconv.Atoi(get(key, "")); err == nil {
			return i
		}
		return def
	}
	getDuration := func(key string, def time.Duration) time.Duration {
		if d, err := time.ParseDuration(get(key, "")); err == nil {
			return d
		}
		return def
	}

	return &Config{
		Port: get("PORT", "8080"),

		DataBackend:   get("DATA_BACKEND", BackendSheets),
		SpreadsheetID: get("GOOGLE_SPREADSHEET_ID", ""),
		WorksheetName: get("WORKSHEET_NAME", "Ausgaben"),

		GeminiModel:        get("GEMINI_MODEL", "gemini-2.5-flash"),
		InferenceTimeout:   getDuration("INFERENCE_TIMEOUT", 4*time.Minute),
		ExtractConcurrency: getInt("EXTRACT_CONCURRENCY", 1),
		QueueWorkers:       getInt("QUEUE_WORKERS", 1),

		AnalyticsCacheTTL: getDuration("ANALYTICS_CACHE_TTL", 10*time.Minute),
		BudgetsFile:       get("BUDGETS_FILE", ""),

		ArchiveBucket:   get("ARCHIVE_BUCKET", ""),
		BigQueryProject: get("BIGQUERY_PROJECT", ""),
		BigQueryDataset: get("BIGQUERY_DATASET", ""),

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "console"),

		SecretsFile: get("SECRETS_FILE", ".secrets.toml"),
	}
}

// Validate validates the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if c.WorksheetName == "" {
			errors = append(errors, "WORKSHEET_NAME is required when using sheets backend")
		}
	case BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendSheets, BackendMemory))
	}

	if c.GeminiModel == "" {
		errors = append(errors, "GEMINI_MODEL cannot be empty")
	}
	if c.InferenceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid inference timeout %v: must be at least 1 second", c.InferenceTimeout))
	}
	if c.ExtractConcurrency < 1 || c.ExtractConcurrency > 8 {
		errors = append(errors, fmt.Sprintf("invalid extract concurrency %d: must be between 1 and 8", c.ExtractConcurrency))
	}
	if c.QueueWorkers < 1 {
		errors = append(errors, fmt.Sprintf("invalid queue workers %d: must be at least 1", c.QueueWorkers))
	}
	if c.AnalyticsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid analytics cache ttl %v: must not be negative", c.AnalyticsCacheTTL))
	}
	if (c.BigQueryProject == "") != (c.BigQueryDataset == "") {
		errors = append(errors, "BIGQUERY_PROJECT and BIGQUERY_DATASET must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AuditEnabled reports whether model outputs are recorded in BigQuery.
func (c *Config) AuditEnabled() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}
