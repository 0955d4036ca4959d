package redis

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings for the duel store
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	PoolSize int

	// ConnectTimeout bounds the initial ping in New
	ConnectTimeout time.Duration

	// MaxTxRetries bounds how often an optimistic transaction is replayed
	// after a watched match or turn key changed underneath it
	MaxTxRetries int
}

// DefaultConfig returns defaults for a single-node Redis
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		ConnectTimeout: 5 * time.Second,
		MaxTxRetries:   50,
	}
}

// options parses URL and applies the pool size
func (c Config) options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	return opts, nil
}
