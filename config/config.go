package config

import (
	"os"
	"strconv"
	"time"
)

// Fetch backend variants selectable via FETCH_BACKEND.
const (
	BackendHTTP    = "http"
	BackendBrowser = "browser"
)

// Config holds all runtime settings, loaded from environment variables.
type Config struct {
	// Fetching
	FetchBackend string
	FetchTimeout time.Duration
	UserAgent    string

	// Extraction
	CatalogBaseURL string

	// Crawling
	CrawlMaxPages int

	// Price refresh
	RefreshWorkers       int
	RefreshRetryAttempts int
	RefreshRetryDelay    time.Duration
	RefreshSchedule      string

	// Retention
	RetentionDays     int
	RetentionSchedule string

	// Snapshots
	SnapshotDir      string
	SnapshotCompress bool

	// HTTP server
	Host           string
	Port           string
	AllowedOrigins string
	RateLimitRPS   float64
}

// Load reads the configuration from environment variables, falling back to
// defaults that match the production catalog deployment.
func Load() *Config {
	return &Config{
		FetchBackend:         getEnv("FETCH_BACKEND", BackendHTTP),
		FetchTimeout:         getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		UserAgent:            getEnv("FETCH_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"),
		CatalogBaseURL:       getEnv("CATALOG_BASE_URL", "https://www.dmo.gov.tr/"),
		CrawlMaxPages:        getEnvInt("CRAWL_MAX_PAGES", 200),
		RefreshWorkers:       getEnvInt("REFRESH_WORKERS", 5),
		RefreshRetryAttempts: getEnvInt("REFRESH_RETRY_ATTEMPTS", 3),
		RefreshRetryDelay:    getEnvDuration("REFRESH_RETRY_DELAY", 2*time.Second),
		RefreshSchedule:      getEnv("REFRESH_SCHEDULE", "0 0 0 * * *"),
		RetentionDays:        getEnvInt("RETENTION_DAYS", 30),
		RetentionSchedule:    getEnv("RETENTION_SCHEDULE", "0 30 0 * * *"),
		SnapshotDir:          getEnv("SNAPSHOT_DIR", "data_files"),
		SnapshotCompress:     getEnvBool("SNAPSHOT_COMPRESS", false),
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigins:       getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitRPS:         getEnvFloat("RATE_LIMIT_RPS", 5),
	}
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
