package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Persistence backends.
const (
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8090"`

	// Commerce API
	CommerceAPIURL     string `env:"COMMERCE_API_URL" envDefault:"http://localhost:8080"`
	CommerceAPITimeout int    `env:"COMMERCE_API_TIMEOUT_SECONDS" envDefault:"10"`
	CommerceMaxRetries int    `env:"COMMERCE_API_MAX_RETRIES" envDefault:"2"`

	// Persistence
	PersistBackend string `env:"PERSIST_BACKEND" envDefault:"redis"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisSlowOpMS  int    `env:"REDIS_SLOW_OP_MS" envDefault:"100"`

	// Projection TTL in hours (default: 30 days). Zero keeps keys forever.
	PersistTTL int    `env:"PERSIST_TTL_HOURS" envDefault:"720"`
	StateDir   string `env:"STATE_DIR" envDefault:".storefront"`

	// Stores and sessions
	SearchDebounceMS      int  `env:"SEARCH_DEBOUNCE_MS" envDefault:"300"`
	DiscardStaleResponses bool `env:"DISCARD_STALE_RESPONSES" envDefault:"false"`
	SessionIdleMinutes    int  `env:"SESSION_IDLE_MINUTES" envDefault:"30"`

	// Edge
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	CatalogMaxAge      int      `env:"CATALOG_CACHE_MAX_AGE" envDefault:"30"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environment); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.CommerceAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid commerce API URL: %q", c.CommerceAPIURL)
	}
	if c.CommerceAPITimeout < 1 {
		return fmt.Errorf("invalid commerce API timeout: %d", c.CommerceAPITimeout)
	}
	if c.CommerceMaxRetries < 0 {
		return fmt.Errorf("invalid commerce API max retries: %d", c.CommerceMaxRetries)
	}
	switch c.PersistBackend {
	case BackendRedis, BackendMemory:
	case BackendFile:
		if c.StateDir == "" {
			return fmt.Errorf("STATE_DIR is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown persist backend: %q", c.PersistBackend)
	}
	if c.PersistTTL < 0 {
		return fmt.Errorf("invalid persist TTL: %d", c.PersistTTL)
	}
	if c.SearchDebounceMS < 0 {
		return fmt.Errorf("invalid search debounce: %d", c.SearchDebounceMS)
	}
	if c.SessionIdleMinutes < 1 {
		return fmt.Errorf("invalid session idle timeout: %d", c.SessionIdleMinutes)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTel sample rate: %v", c.OTelSampleRate)
	}
	return nil
}

// CommerceTimeout returns the per-request timeout for the commerce API.
func (c *Config) CommerceTimeout() time.Duration {
	return time.Duration(c.CommerceAPITimeout) * time.Second
}

// TTL returns the lifetime of persisted projections.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.PersistTTL) * time.Hour
}

// RedisSlowOp returns the threshold above which Redis commands are logged.
func (c *Config) RedisSlowOp() time.Duration {
	return time.Duration(c.RedisSlowOpMS) * time.Millisecond
}

// SearchDelay returns the search debounce delay.
func (c *Config) SearchDelay() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// SessionIdle returns how long an untouched session stays in memory.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}
