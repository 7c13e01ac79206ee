package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Token store
	TokenDBPath string

	// Scan
	ScanPageSize    int
	ScanFetchChunk  int
	ScanMaxMessages int
	FetchWorkers    int

	// Provider
	ModifyBatchSize int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	QuotaPerSecond  int
	QuotaBurst      int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/oauth/callback"),

		// Token store
		TokenDBPath: getEnv("TOKEN_DB_PATH", "sweep_tokens.db"),

		// Scan
		ScanPageSize:    getEnvInt("SCAN_PAGE_SIZE", 100),
		ScanFetchChunk:  getEnvInt("SCAN_FETCH_CHUNK", 50),
		ScanMaxMessages: getEnvInt("SCAN_MAX_MESSAGES", 500),
		FetchWorkers:    getEnvInt("FETCH_WORKERS", 5),

		// Provider
		ModifyBatchSize: getEnvInt("MODIFY_BATCH_SIZE", 1000),
		MaxRetries:      getEnvInt("PROVIDER_MAX_RETRIES", 3),
		RetryBaseDelay:  time.Duration(getEnvInt("PROVIDER_RETRY_BASE_MS", 500)) * time.Millisecond,
		QuotaPerSecond:  getEnvInt("PROVIDER_QUOTA_PER_SEC", 200),
		QuotaBurst:      getEnvInt("PROVIDER_QUOTA_BURST", 250),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	return cfg, nil
}

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

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
