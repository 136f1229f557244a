package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/listings")
	t.Setenv("RECONSTRUCTION_URL", "http://reconstruct.internal/process")
	t.Setenv("FLW_WEBHOOK_HASH", "hash")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 300, cfg.Reconstruction.Timeout)
	assert.Equal(t, 15, cfg.Flutterwave.Timeout)
	assert.Equal(t, "https://api.flutterwave.com/v3", cfg.Flutterwave.BaseURL)
	assert.Equal(t, int64(50000), cfg.Promotion.PricePerListing)
	assert.Equal(t, 30*24*time.Hour, cfg.Promotion.PromotionPeriod())
	assert.Equal(t, "model3d-processing", cfg.Queue.Name)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.Gateway.Enabled)
	assert.Equal(t, "http://localhost:3000", cfg.CORS.AllowOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RECONSTRUCTION_TIMEOUT", "120")
	t.Setenv("PROMOTION_PRICE_PER_LISTING", "75000")
	t.Setenv("QUEUE_CONCURRENCY", "8")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("GATEWAY_ENABLED", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://listings.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Reconstruction.Timeout)
	assert.Equal(t, int64(75000), cfg.Promotion.PricePerListing)
	assert.Equal(t, 8, cfg.Queue.Concurrency)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.True(t, cfg.Gateway.Enabled)
	assert.Equal(t, "https://listings.example.com,https://admin.example.com", cfg.CORS.AllowOrigins)
}

func TestLoad_SecretFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	secretPath := filepath.Join(dir, "flw_hash")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))
	t.Setenv("FLW_WEBHOOK_HASH", "")
	t.Setenv("FLW_WEBHOOK_HASH_FILE", secretPath)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Flutterwave.WebhookHash)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:       DatabaseConfig{URL: "postgres://localhost/listings"},
			Queue:          QueueConfig{Concurrency: 4},
			Reconstruction: ReconstructionConfig{URL: "http://reconstruct", Timeout: 300},
			Flutterwave:    FlutterwaveConfig{WebhookHash: "hash", Timeout: 15},
			Promotion:      PromotionConfig{PricePerListing: 50000, DurationDays: 30},
			CORS:           CORSConfig{AllowOrigins: "http://localhost:3000"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.Database.URL = "" }, errString: "database.url"},
		{name: "missing reconstruction url", mutate: func(c *Config) { c.Reconstruction.URL = "" }, errString: "reconstruction.url"},
		{name: "missing webhook hash", mutate: func(c *Config) { c.Flutterwave.WebhookHash = "" }, errString: "webhook_hash"},
		{name: "zero price", mutate: func(c *Config) { c.Promotion.PricePerListing = 0 }, errString: "price_per_listing"},
		{name: "no cors origins", mutate: func(c *Config) { c.CORS.AllowOrigins = " " }, errString: "cors.allow_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
