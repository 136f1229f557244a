package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Queue          QueueConfig
	JWT            JWTConfig
	Zitadel        ZitadelConfig
	Gateway        GatewayConfig
	CORS           CORSConfig
	R2             R2Config
	Reconstruction ReconstructionConfig
	Flutterwave    FlutterwaveConfig
	Promotion      PromotionConfig
	RateLimit      RateLimitConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
}

type DatabaseConfig struct {
	URL     string
	PoolMax int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Name        string
	Concurrency int
}

type JWTConfig struct {
	Secret string
}

type ZitadelConfig struct {
	ClientID string
	Issuer   string
}

// GatewayConfig: when enabled the service sits behind a ForwardAuth gateway
// and trusts the X-Seller-* headers it sets.
type GatewayConfig struct {
	Enabled bool
}

// CORSConfig lists the browser origins allowed to call the API,
// comma-separated.
type CORSConfig struct {
	AllowOrigins string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type ReconstructionConfig struct {
	URL     string
	Timeout int // seconds
}

type FlutterwaveConfig struct {
	BaseURL     string
	SecretKey   string
	WebhookHash string
	Timeout     int // seconds
}

type PromotionConfig struct {
	PricePerListing int64 // minor currency unit
	DurationDays    int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// PromotionPeriod is how long a confirmed payment promotes each listing
func (c PromotionConfig) PromotionPeriod() time.Duration {
	return time.Duration(c.DurationDays) * 24 * time.Hour
}

// Validate reports configuration the service cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Reconstruction.URL == "" {
		errs = append(errs, errors.New("reconstruction.url is required"))
	}
	if c.Reconstruction.Timeout <= 0 {
		errs = append(errs, errors.New("reconstruction.timeout must be positive"))
	}
	if c.Flutterwave.WebhookHash == "" {
		errs = append(errs, errors.New("flutterwave.webhook_hash is required"))
	}
	if c.Flutterwave.Timeout <= 0 {
		errs = append(errs, errors.New("flutterwave.timeout must be positive"))
	}
	if c.Promotion.PricePerListing <= 0 {
		errs = append(errs, errors.New("promotion.price_per_listing must be positive"))
	}
	if strings.TrimSpace(c.CORS.AllowOrigins) == "" {
		errs = append(errs, errors.New("cors.allow_origins is required"))
	}
	if c.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("queue.concurrency must be positive"))
	}
	return errors.Join(errs...)
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	readSecret("DATABASE_URL")
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("FLW_SECRET_KEY")
	readSecret("FLW_WEBHOOK_HASH")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.port":                 "SERVER_PORT",
		"server.env":                  "SERVER_ENV",
		"server.log_level":            "LOG_LEVEL",
		"server.log_format":           "LOG_FORMAT",
		"database.url":                "DATABASE_URL",
		"database.pool_max":           "DATABASE_POOL_MAX",
		"redis.addr":                  "REDIS_ADDR",
		"redis.password":              "REDIS_PASSWORD",
		"redis.db":                    "REDIS_DB",
		"queue.name":                  "QUEUE_NAME",
		"queue.concurrency":           "QUEUE_CONCURRENCY",
		"jwt.secret":                  "JWT_SECRET",
		"zitadel.client_id":           "ZITADEL_CLIENT_ID",
		"zitadel.issuer":              "ZITADEL_ISSUER",
		"gateway.enabled":             "GATEWAY_ENABLED",
		"cors.allow_origins":          "CORS_ALLOW_ORIGINS",
		"r2.account_id":               "R2_ACCOUNT_ID",
		"r2.access_key_id":            "R2_ACCESS_KEY_ID",
		"r2.secret_access_key":        "R2_SECRET_ACCESS_KEY",
		"r2.bucket_name":              "R2_BUCKET_NAME",
		"r2.public_url":               "R2_PUBLIC_URL",
		"reconstruction.url":          "RECONSTRUCTION_URL",
		"reconstruction.timeout":      "RECONSTRUCTION_TIMEOUT",
		"flutterwave.base_url":        "FLW_BASE_URL",
		"flutterwave.secret_key":      "FLW_SECRET_KEY",
		"flutterwave.webhook_hash":    "FLW_WEBHOOK_HASH",
		"flutterwave.timeout":         "FLW_TIMEOUT",
		"promotion.price_per_listing": "PROMOTION_PRICE_PER_LISTING",
		"promotion.duration_days":     "PROMOTION_DURATION_DAYS",
		"ratelimit.requests":          "RATE_LIMIT_REQUESTS",
		"ratelimit.window":            "RATE_LIMIT_WINDOW",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.name", "model3d-processing")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("gateway.enabled", false)
	v.SetDefault("cors.allow_origins", "http://localhost:3000")
	v.SetDefault("reconstruction.timeout", 300)
	v.SetDefault("flutterwave.base_url", "https://api.flutterwave.com/v3")
	v.SetDefault("flutterwave.timeout", 15)
	v.SetDefault("promotion.price_per_listing", 50000)
	v.SetDefault("promotion.duration_days", 30)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", 15*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			LogFormat: v.GetString("server.log_format"),
		},
		Database: DatabaseConfig{
			URL:     v.GetString("database.url"),
			PoolMax: v.GetInt("database.pool_max"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Queue: QueueConfig{
			Name:        v.GetString("queue.name"),
			Concurrency: v.GetInt("queue.concurrency"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Zitadel: ZitadelConfig{
			ClientID: v.GetString("zitadel.client_id"),
			Issuer:   v.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
		},
		CORS: CORSConfig{
			AllowOrigins: v.GetString("cors.allow_origins"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		Reconstruction: ReconstructionConfig{
			URL:     v.GetString("reconstruction.url"),
			Timeout: v.GetInt("reconstruction.timeout"),
		},
		Flutterwave: FlutterwaveConfig{
			BaseURL:     v.GetString("flutterwave.base_url"),
			SecretKey:   v.GetString("flutterwave.secret_key"),
			WebhookHash: v.GetString("flutterwave.webhook_hash"),
			Timeout:     v.GetInt("flutterwave.timeout"),
		},
		Promotion: PromotionConfig{
			PricePerListing: v.GetInt64("promotion.price_per_listing"),
			DurationDays:    v.GetInt("promotion.duration_days"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
		},
	}

	return cfg, nil
}
