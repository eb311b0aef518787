package monitoring

import (
	"fmt"
	"strings"

	"github.com/edge-sentinel/agent/pkg/config"
)

// reservedPaths are served by the diagnostics router and cannot host the exporter.
var reservedPaths = []string{"/healthz"}

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path"    yaml:"path"    mapstructure:"path"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Path:    "/metrics",
	}
}

// FromAppConfig builds the monitoring configuration from the agent configuration.
// Values left empty fall back to the defaults.
func FromAppConfig(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	cfg.Enabled = app.Monitoring.Enabled
	if app.Monitoring.Path != "" {
		cfg.Path = app.Monitoring.Path
	}
	return cfg
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	}
	if strings.HasPrefix(c.Path, "/api/") {
		return fmt.Errorf("monitoring path cannot be under /api/")
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	for _, reserved := range reservedPaths {
		if c.Path == reserved {
			return fmt.Errorf("monitoring path %s is reserved", c.Path)
		}
	}
	return nil
}
