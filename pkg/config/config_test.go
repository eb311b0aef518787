package config

import (
	"strings"
	"testing"
	"time"

	"github.com/edge-sentinel/agent/pkg/config/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Default(t *testing.T) {
	t.Run("Should return valid default configuration", func(t *testing.T) {
		cfg := Default()

		require.NotNil(t, cfg)
		assert.Equal(t, "edge-sentinel", cfg.Agent.ID)
		assert.Equal(t, definition.DefaultConfigurationObjectName, cfg.Agent.ConfigurationObjectName)
		assert.Equal(t, "twin.json", cfg.Twin.DocumentPath)
		assert.Equal(t, "complete", cfg.Twin.Mode)
		assert.Equal(t, 250*time.Millisecond, cfg.Twin.Debounce)
		assert.Equal(t, 5, cfg.Twin.ReadRetries)
		assert.Equal(t, 100*time.Millisecond, cfg.Twin.ReadRetryDelay)
		assert.False(t, cfg.Server.Enabled)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 8089, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
		assert.Equal(t, 120, cfg.Server.RateLimit)
		assert.True(t, cfg.Monitoring.Enabled)
		assert.Equal(t, "/metrics", cfg.Monitoring.Path)
		assert.True(t, cfg.History.Enabled)
		assert.Equal(t, 1000, cfg.History.Retention)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
	})

	t.Run("Should pass validation", func(t *testing.T) {
		svc := NewService()
		assert.NoError(t, svc.Validate(Default()))
	})
}

func TestConfig_Validation(t *testing.T) {
	svc := NewService()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Should reject an empty agent id", func(c *Config) { c.Agent.ID = "" }},
		{"Should reject an empty namespace", func(c *Config) { c.Agent.ConfigurationObjectName = "" }},
		{"Should reject a namespace with spaces", func(c *Config) { c.Agent.ConfigurationObjectName = "bad name" }},
		{"Should reject a namespace with quotes", func(c *Config) { c.Agent.ConfigurationObjectName = `a"b` }},
		{"Should reject an oversized namespace", func(c *Config) { c.Agent.ConfigurationObjectName = strings.Repeat("n", 257) }},
		{"Should reject an unknown twin mode", func(c *Config) { c.Twin.Mode = "partial" }},
		{"Should reject a missing document path", func(c *Config) { c.Twin.DocumentPath = "" }},
		{"Should reject negative retries", func(c *Config) { c.Twin.ReadRetries = -1 }},
		{"Should reject retries without delay", func(c *Config) { c.Twin.ReadRetryDelay = 0 }},
		{"Should reject an invalid port", func(c *Config) { c.Server.Port = 70000 }},
		{"Should reject a relative metrics path", func(c *Config) { c.Monitoring.Path = "metrics" }},
		{"Should reject a metrics path on the health endpoint", func(c *Config) {
			c.Server.Enabled = true
			c.Monitoring.Path = "/healthz"
		}},
		{"Should reject zero retention", func(c *Config) { c.History.Retention = 0 }},
		{"Should reject an unknown log level", func(c *Config) { c.Runtime.LogLevel = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, svc.Validate(cfg))
		})
	}

	t.Run("Should reject nil configuration", func(t *testing.T) {
		assert.Error(t, svc.Validate(nil))
	})

	t.Run("Should accept a colon separated namespace", func(t *testing.T) {
		cfg := Default()
		cfg.Agent.ConfigurationObjectName = "vendor:urn_custom_Config"
		assert.NoError(t, svc.Validate(cfg))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Should expose every config path with an env var", func(t *testing.T) {
		registry := definition.CreateRegistry()
		for _, path := range registry.Paths() {
			field, ok := registry.GetField(path)
			require.True(t, ok)
			assert.NotEmpty(t, field.EnvVar, path)
			assert.Equal(t, field.EnvVar, GetEnvVarForConfigPath(path), path)
		}
	})

	t.Run("Should map CLI flags to paths", func(t *testing.T) {
		mapping := definition.CreateRegistry().GetCLIFlagMapping()
		assert.Equal(t, "twin.document_path", mapping["twin-document"])
		assert.Equal(t, "runtime.log_level", mapping["log-level"])
	})
}
