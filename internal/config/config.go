// Package config loads server configuration from SKATE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name
const Prefix = "SKATE_"

// insecureSecret is the shipped JWT secret; it must be overridden outside local dev
const insecureSecret = "dev-insecure-secret-change-me"

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all server configuration parsed from environment variables.
type Config struct {
	// HTTP
	Host            string        `env:"HTTP_HOST"`
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Storage
	Storage       string `env:"STORAGE" envDefault:"memory"`
	RedisURL      string `env:"REDIS_URL"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	ReadRetries   uint64 `env:"READ_RETRIES" envDefault:"3"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-insecure-secret-change-me"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"skateduel"`

	// Match rules
	RemoteWindow      time.Duration `env:"REMOTE_WINDOW" envDefault:"24h"`
	ProposerPolicy    string        `env:"PROPOSER_POLICY" envDefault:"any"`
	ArbitrationPolicy string        `env:"ARBITRATION_POLICY" envDefault:"majority"`
	ArbitrationQuorum int           `env:"ARBITRATION_QUORUM" envDefault:"3"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// Load parses SKATE_* environment variables into a Config.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses the given variables instead of the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	return cfg, nil
}

// Validate checks that the selected backend is reachable by configuration and
// that no insecure default is used. Set SKATE_ALLOW_INSECURE_DEFAULTS=true to
// bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%sREDIS_URL is required when %sSTORAGE=redis", Prefix, Prefix)
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%sDATABASE_URL is required when %sSTORAGE=postgres", Prefix, Prefix)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP port %d", c.Port)
	}
	if c.RemoteWindow <= 0 {
		return fmt.Errorf("%sREMOTE_WINDOW must be positive", Prefix)
	}
	if c.ArbitrationQuorum < 1 {
		return fmt.Errorf("%sARBITRATION_QUORUM must be at least 1", Prefix)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureSecret {
		return fmt.Errorf("%sJWT_SECRET is set to the insecure default; set a strong secret or set %sALLOW_INSECURE_DEFAULTS=true for local dev", Prefix, Prefix)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%sJWT_SECRET is too short (%d chars); minimum 32 characters required", Prefix, len(c.JWTSecret))
	}
	return nil
}

// SlogLevel returns the configured level, or Info when LogLevel does not
// parse. Validate rejects unparseable levels.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
