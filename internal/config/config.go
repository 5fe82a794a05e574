package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/shari-ar/Assets/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8001"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"assets"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"assets_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (login throttling). Leave the host empty to disable.
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Tokens
	JWTSecret            string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AccessTokenLifetime  int    `env:"ACCESS_TOKEN_LIFETIME_MINUTES" envDefault:"15"`
	RefreshTokenLifetime int    `env:"REFRESH_TOKEN_LIFETIME_DAYS" envDefault:"14"`

	// Cookies
	CookieSecure   bool   `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	CookieSameSite string `env:"AUTH_COOKIE_SAMESITE" envDefault:"lax"`

	// Login throttling
	LoginMaxFailures   int `env:"LOGIN_MAX_FAILURES" envDefault:"10"`
	LoginWindowMinutes int `env:"LOGIN_WINDOW_MINUTES" envDefault:"15"`

	// Per-IP request rate limiting
	RateLimitPerSecond int `env:"RATE_LIMIT_PER_SECOND" envDefault:"20"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Database pool
	DBMaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns int `env:"DB_MIN_CONNS" envDefault:"2"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.AccessTokenLifetime < 1 {
		return nil, fmt.Errorf("invalid access token lifetime: %d minutes", cfg.AccessTokenLifetime)
	}
	if cfg.RefreshTokenLifetime < 1 {
		return nil, fmt.Errorf("invalid refresh token lifetime: %d days", cfg.RefreshTokenLifetime)
	}
	switch cfg.CookieSameSite {
	case "lax", "strict", "none":
	default:
		return nil, fmt.Errorf("invalid AUTH_COOKIE_SAMESITE: %q", cfg.CookieSameSite)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// AccessTokenExpiry returns the access token lifetime as a duration.
func (c *Config) AccessTokenExpiry() time.Duration {
	return time.Duration(c.AccessTokenLifetime) * time.Minute
}

// RefreshTokenExpiry returns the refresh token lifetime as a duration.
func (c *Config) RefreshTokenExpiry() time.Duration {
	return time.Duration(c.RefreshTokenLifetime) * 24 * time.Hour
}

// LoginWindow returns the failed-login counting window as a duration.
func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowMinutes) * time.Minute
}
