package config

import (
	"context"
	"time"

	"github.com/edge-sentinel/agent/pkg/config/definition"
)

// Config represents the complete configuration of the agent.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Agent      AgentConfig      `koanf:"agent"      validate:"required"`
	Twin       TwinConfig       `koanf:"twin"       validate:"required"`
	Server     ServerConfig     `koanf:"server"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	History    HistoryConfig    `koanf:"history"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
}

// AgentConfig identifies the agent and its twin namespace.
type AgentConfig struct {
	ID                      string `koanf:"id"                        validate:"required"  env:"AGENT_ID"`
	ConfigurationObjectName string `koanf:"configuration_object_name" validate:"namespace" env:"AGENT_CONFIGURATION_OBJECT_NAME"`
}

// TwinConfig controls how the desired document is read.
type TwinConfig struct {
	DocumentPath   string        `koanf:"document_path"    validate:"required"              env:"TWIN_DOCUMENT_PATH"`
	Mode           string        `koanf:"mode"             validate:"oneof=complete patch"  env:"TWIN_MODE"`
	Debounce       time.Duration `koanf:"debounce"         validate:"min=0"                 env:"TWIN_DEBOUNCE"`
	ReadRetries    int           `koanf:"read_retries"     validate:"min=0,max=100"         env:"TWIN_READ_RETRIES"`
	ReadRetryDelay time.Duration `koanf:"read_retry_delay" validate:"min=0"                 env:"TWIN_READ_RETRY_DELAY"`
}

// ServerConfig contains diagnostics HTTP server configuration.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled" env:"SERVER_ENABLED"`
	Host    string        `koanf:"host"    env:"SERVER_HOST"    validate:"required"`
	Port    int           `koanf:"port"    env:"SERVER_PORT"    validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" env:"SERVER_TIMEOUT" validate:"min=0"`
	// RateLimit is the number of requests a client may make per minute; 0 disables limiting.
	RateLimit int `koanf:"rate_limit" env:"SERVER_RATE_LIMIT" validate:"min=0"`
}

// MonitoringConfig contains Prometheus metrics configuration.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"    validate:"required,startswith=/"`
}

// HistoryConfig contains update history persistence configuration.
type HistoryConfig struct {
	Enabled   bool   `koanf:"enabled"   env:"HISTORY_ENABLED"`
	Path      string `koanf:"path"      env:"HISTORY_PATH"      validate:"required"`
	Retention int    `koanf:"retention" env:"HISTORY_RETENTION" validate:"min=1"`
}

// RuntimeConfig contains logging configuration.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                                   env:"RUNTIME_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                                 env:"RUNTIME_LOG_SOURCE"`
}

// Service defines the configuration management service interface.
// It provides methods for loading, watching, and validating configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Watch monitors configuration changes and invokes callback on updates.
	Watch(ctx context.Context, callback func(*Config)) error
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Watch monitors the source for changes.
	Watch(ctx context.Context, callback func()) error
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config populated from the field registry.
func Default() *Config {
	registry := definition.CreateRegistry()
	return &Config{
		Agent: AgentConfig{
			ID:                      getString(registry, "agent.id"),
			ConfigurationObjectName: getString(registry, "agent.configuration_object_name"),
		},
		Twin: TwinConfig{
			DocumentPath:   getString(registry, "twin.document_path"),
			Mode:           getString(registry, "twin.mode"),
			Debounce:       getDuration(registry, "twin.debounce"),
			ReadRetries:    getInt(registry, "twin.read_retries"),
			ReadRetryDelay: getDuration(registry, "twin.read_retry_delay"),
		},
		Server: ServerConfig{
			Enabled:   getBool(registry, "server.enabled"),
			Host:      getString(registry, "server.host"),
			Port:      getInt(registry, "server.port"),
			Timeout:   getDuration(registry, "server.timeout"),
			RateLimit: getInt(registry, "server.rate_limit"),
		},
		Monitoring: MonitoringConfig{
			Enabled: getBool(registry, "monitoring.enabled"),
			Path:    getString(registry, "monitoring.path"),
		},
		History: HistoryConfig{
			Enabled:   getBool(registry, "history.enabled"),
			Path:      getString(registry, "history.path"),
			Retention: getInt(registry, "history.retention"),
		},
		Runtime: RuntimeConfig{
			LogLevel:  getString(registry, "runtime.log_level"),
			LogJSON:   getBool(registry, "runtime.log_json"),
			LogSource: getBool(registry, "runtime.log_source"),
		},
	}
}

// Helper functions for type-safe registry access
func getString(registry *definition.Registry, path string) string {
	if val := registry.GetDefault(path); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(registry *definition.Registry, path string) int {
	if val := registry.GetDefault(path); val != nil {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return 0
}

func getBool(registry *definition.Registry, path string) bool {
	if val := registry.GetDefault(path); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getDuration(registry *definition.Registry, path string) time.Duration {
	if val := registry.GetDefault(path); val != nil {
		if d, ok := val.(time.Duration); ok {
			return d
		}
	}
	return 0
}
