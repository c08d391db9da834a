package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "knowledge-weaver/backend/pkg/errors"
)

// Store backends
const (
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Note store
	StoreBackend string
	DataDir      string

	// Neo4j projection (optional, empty URI disables it)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// AI
	LLMBaseURL     string
	LLMAPIKey      string
	ModelID        string
	LLMMaxAttempts int

	// Categorization service. Empty URL means the in-process classifier is used.
	CategorizerURL      string
	CategorizerTimeout  time.Duration
	BreakerFailureRatio float64

	// Capture
	FetchPageMetadata bool
	ImportConcurrency int

	// Graph builder
	EdgePolicy     string
	TemporalWindow time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8000"),
		Env:                 getEnv("ENV", "development"),
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", StoreBadger)),
		DataDir:             getEnv("DATA_DIR", "./data"),
		Neo4jURI:            getEnv("NEO4J_URI", ""),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		LLMBaseURL:          getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		LLMAPIKey:           getEnv("LLM_API_KEY", getEnv("DEEPSEEK_API_KEY", "")),
		ModelID:             getEnv("MODEL_ID", "deepseek-chat"),
		LLMMaxAttempts:      getEnvInt("LLM_MAX_ATTEMPTS", 1),
		CategorizerURL:      strings.TrimRight(getEnv("CATEGORIZER_URL", ""), "/"),
		CategorizerTimeout:  getEnvDuration("CATEGORIZER_TIMEOUT", 10*time.Second),
		BreakerFailureRatio: getEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		FetchPageMetadata:   getEnvBool("FETCH_PAGE_METADATA", false),
		ImportConcurrency:   getEnvInt("IMPORT_CONCURRENCY", 4),
		EdgePolicy:          strings.ToLower(getEnv("EDGE_POLICY", "first_wins")),
		TemporalWindow:      getEnvDuration("TEMPORAL_WINDOW", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Port == "" {
		return apperrors.NewConfigMissingRequired("PORT")
	}
	switch c.StoreBackend {
	case StoreBadger:
		if c.DataDir == "" {
			return apperrors.NewConfigMissingRequired("DATA_DIR")
		}
	case StoreMemory:
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}
	switch c.EdgePolicy {
	case "first_wins", "merge", "parallel":
	default:
		return apperrors.NewConfigValidationFailed("EDGE_POLICY", fmt.Sprintf("unknown policy %q", c.EdgePolicy))
	}
	if c.TemporalWindow <= 0 {
		return apperrors.NewConfigValidationFailed("TEMPORAL_WINDOW", "must be positive")
	}
	if c.ImportConcurrency <= 0 {
		return apperrors.NewConfigValidationFailed("IMPORT_CONCURRENCY", "must be positive")
	}
	if c.LLMMaxAttempts <= 0 {
		return apperrors.NewConfigValidationFailed("LLM_MAX_ATTEMPTS", "must be positive")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return apperrors.NewConfigValidationFailed("BREAKER_FAILURE_RATIO", "must be in (0,1]")
	}
	if c.ModelID == "" {
		return apperrors.NewConfigMissingRequired("MODEL_ID")
	}
	// LLM key is optional: without it categorization falls back to "General"
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GraphEnabled reports whether the Neo4j projection is configured
func (c *Config) GraphEnabled() bool {
	return c.Neo4jURI != ""
}

// RemoteCategorizer reports whether categorization goes over HTTP
func (c *Config) RemoteCategorizer() bool {
	return c.CategorizerURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
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
