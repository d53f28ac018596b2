package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	SessionBackendRedis  = "redis"
	SessionBackendCookie = "cookie"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	SecretKey string `env:"SECRET_KEY, default=its-a-secret"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Catalogue CatalogueConfig
}

type DatabaseConfig struct {
	// URL is a PostgreSQL DSN, or memory:// for a process-local store.
	URL          string `env:"DATABASE_URL,      default=postgres://localhost:5432/dndboard?sslmode=disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=10"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SessionConfig struct {
	Backend string        `env:"SESSION_BACKEND, default=redis"`
	MaxAge  time.Duration `env:"SESSION_MAX_AGE, default=168h"`
	Secure  bool          `env:"SESSION_SECURE,  default=false"`
}

type CatalogueConfig struct {
	BaseURL string        `env:"CATALOGUE_BASE_URL, default=https://www.dnd5eapi.co/api"`
	Timeout time.Duration `env:"CATALOGUE_TIMEOUT,  default=0s"`
}

// IsDevelopment reports whether the service runs with local defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesMemoryStore reports whether DATABASE_URL selects the in-memory store.
func (c *Config) UsesMemoryStore() bool {
	return c.Database.URL == "memory://"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY must not be empty")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	switch c.Session.Backend {
	case SessionBackendRedis, SessionBackendCookie:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionBackendRedis, SessionBackendCookie, c.Session.Backend)
	}
	if c.Session.MaxAge < 0 {
		return errors.New("SESSION_MAX_AGE must not be negative")
	}
	return nil
}
