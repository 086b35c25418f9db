package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Shopify ShopifyConfig
	Sync    SyncConfig

	// EncryptionKey seeds the key that encrypts tenant access tokens at rest
	EncryptionKey string
}

// AppConfig holds HTTP-facing settings
type AppConfig struct {
	Port           string
	URL            string // public base URL, used for the OAuth redirect
	CORSOrigins    []string
	RequestTimeout time.Duration
	AdminAPIKey    string // guards tenant and sync routes; empty leaves them open
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string // debug, info, warn, error
}

// MongoConfig holds database connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds the sync status cache connection. Empty URL keeps status in memory.
type RedisConfig struct {
	URL string
}

// ShopifyConfig holds app credentials and client resilience settings
type ShopifyConfig struct {
	APIKey        string
	APISecret     string
	APIVersion    string
	Scopes        []string
	WebhookSecret string // falls back to APISecret

	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	CircuitThreshold  int
	CircuitTimeout    time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	HTTPTimeout       time.Duration
}

// SyncConfig holds the recurring sweep settings
type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads configuration from environment variables, falling back to built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Port:           v.GetString("PORT"),
			URL:            strings.TrimRight(v.GetString("APP_URL"), "/"),
			CORSOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RequestTimeout: v.GetDuration("HTTP_REQUEST_TIMEOUT"),
			AdminAPIKey:    v.GetString("ADMIN_API_KEY"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Shopify: ShopifyConfig{
			APIKey:            v.GetString("SHOPIFY_API_KEY"),
			APISecret:         v.GetString("SHOPIFY_API_SECRET"),
			APIVersion:        v.GetString("SHOPIFY_API_VERSION"),
			Scopes:            splitList(v.GetString("SHOPIFY_SCOPES")),
			WebhookSecret:     v.GetString("WEBHOOK_SECRET"),
			MaxRetries:        v.GetInt("SHOPIFY_MAX_RETRIES"),
			BaseDelay:         v.GetDuration("SHOPIFY_BASE_DELAY"),
			MaxDelay:          v.GetDuration("SHOPIFY_MAX_DELAY"),
			CircuitThreshold:  v.GetInt("SHOPIFY_CIRCUIT_THRESHOLD"),
			CircuitTimeout:    v.GetDuration("SHOPIFY_CIRCUIT_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("SHOPIFY_REQUESTS_PER_SECOND"),
			HTTPTimeout:       v.GetDuration("SHOPIFY_HTTP_TIMEOUT"),
		},
		Sync: SyncConfig{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Interval: time.Duration(v.GetInt("SYNC_INTERVAL_MINUTES")) * time.Minute,
		},
		EncryptionKey: v.GetString("ENCRYPTION_KEY"),
	}

	if cfg.Shopify.WebhookSecret == "" {
		cfg.Shopify.WebhookSecret = cfg.Shopify.APISecret
	}
	if cfg.App.URL == "" {
		cfg.App.URL = "http://localhost:" + cfg.App.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "shopify_sync")
	v.SetDefault("SHOPIFY_API_VERSION", "2024-01")
	v.SetDefault("SHOPIFY_SCOPES", "read_customers,read_orders,read_products")
	v.SetDefault("SHOPIFY_MAX_RETRIES", 5)
	v.SetDefault("SHOPIFY_BASE_DELAY", time.Second)
	v.SetDefault("SHOPIFY_MAX_DELAY", 32*time.Second)
	v.SetDefault("SHOPIFY_CIRCUIT_THRESHOLD", 5)
	v.SetDefault("SHOPIFY_CIRCUIT_TIMEOUT", 60*time.Second)
	v.SetDefault("SHOPIFY_REQUESTS_PER_SECOND", 2.0)
	v.SetDefault("SHOPIFY_HTTP_TIMEOUT", 30*time.Second)
	v.SetDefault("SYNC_ENABLED", true)
	v.SetDefault("SYNC_INTERVAL_MINUTES", 10)
}

func (c *Config) validate() error {
	if c.EncryptionKey == "" {
		return errors.New("ENCRYPTION_KEY environment variable is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("MONGODB_DATABASE cannot be empty")
	}
	if c.Shopify.MaxRetries < 0 {
		return fmt.Errorf("SHOPIFY_MAX_RETRIES cannot be negative (got %d)", c.Shopify.MaxRetries)
	}
	if c.Shopify.BaseDelay <= 0 || c.Shopify.MaxDelay < c.Shopify.BaseDelay {
		return fmt.Errorf("SHOPIFY_BASE_DELAY (%s) must be positive and not exceed SHOPIFY_MAX_DELAY (%s)",
			c.Shopify.BaseDelay, c.Shopify.MaxDelay)
	}
	if c.Shopify.CircuitThreshold < 1 {
		return fmt.Errorf("SHOPIFY_CIRCUIT_THRESHOLD must be at least 1 (got %d)", c.Shopify.CircuitThreshold)
	}
	if c.Shopify.CircuitTimeout <= 0 {
		return errors.New("SHOPIFY_CIRCUIT_TIMEOUT must be positive")
	}
	if c.Shopify.RequestsPerSecond < 0 {
		return errors.New("SHOPIFY_REQUESTS_PER_SECOND cannot be negative")
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return errors.New("SYNC_INTERVAL_MINUTES must be positive when sync is enabled")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
