package ratelimit

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

// Config represents rate limiting configuration
type Config struct {
	Limit  int64
	Period time.Duration
	// ExcludedPaths are route templates never limited, such as probes.
	ExcludedPaths []string
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() *Config {
	return &Config{
		Limit:         120,
		Period:        time.Minute,
		ExcludedPaths: []string{"/healthz", "/readyz"},
	}
}

// PerMinute returns the default configuration with limit requests per minute.
func PerMinute(limit int) *Config {
	cfg := DefaultConfig()
	cfg.Limit = int64(limit)
	return cfg
}

// ToLimiterRate converts Config to limiter.Rate
func (c *Config) ToLimiterRate() limiter.Rate {
	return limiter.Rate{
		Period: c.Period,
		Limit:  c.Limit,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Period <= 0 {
		return fmt.Errorf("rate limit period must be positive")
	}
	return nil
}
