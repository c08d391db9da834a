package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "knowledge-weaver/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("EDGE_POLICY", "")
	t.Setenv("PORT", "")
	t.Setenv("NEO4J_URI", "")
	t.Setenv("CATEGORIZER_URL", "")
	t.Setenv("TEMPORAL_WINDOW", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.Equal(t, "first_wins", cfg.EdgePolicy)
	assert.Equal(t, time.Hour, cfg.TemporalWindow)
	assert.False(t, cfg.GraphEnabled())
	assert.False(t, cfg.RemoteCategorizer())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("EDGE_POLICY", "merge")
	t.Setenv("TEMPORAL_WINDOW", "30m")
	t.Setenv("CATEGORIZER_URL", "http://localhost:8000/")
	t.Setenv("FETCH_PAGE_METADATA", "true")
	t.Setenv("IMPORT_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "merge", cfg.EdgePolicy)
	assert.Equal(t, 30*time.Minute, cfg.TemporalWindow)
	assert.Equal(t, "http://localhost:8000", cfg.CategorizerURL)
	assert.True(t, cfg.FetchPageMetadata)
	assert.Equal(t, 8, cfg.ImportConcurrency)
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:                "8000",
		StoreBackend:        StoreMemory,
		EdgePolicy:          "first_wins",
		TemporalWindow:      time.Hour,
		ImportConcurrency:   1,
		LLMMaxAttempts:      1,
		BreakerFailureRatio: 0.6,
		ModelID:             "deepseek-chat",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.Port = "" }},
		{"unknown backend", func(c *Config) { c.StoreBackend = "sqlite" }},
		{"badger without dir", func(c *Config) { c.StoreBackend = StoreBadger; c.DataDir = "" }},
		{"unknown policy", func(c *Config) { c.EdgePolicy = "random" }},
		{"zero window", func(c *Config) { c.TemporalWindow = 0 }},
		{"zero concurrency", func(c *Config) { c.ImportConcurrency = 0 }},
		{"bad ratio", func(c *Config) { c.BreakerFailureRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
		})
	}
}
