package definition

import (
	"reflect"
	"time"
)

// Standard type definitions for consistency
var (
	durationType = reflect.TypeOf(time.Duration(0))
	stringType   = reflect.TypeOf("")
	intType      = reflect.TypeOf(0)
	boolType     = reflect.TypeOf(true)
)

// DefaultConfigurationObjectName is the twin namespace object read by the agent.
const DefaultConfigurationObjectName = "ms_iotn:urn_azureiot_Security_SecurityAgentConfiguration"

// CreateRegistry creates and populates the configuration registry
// This is the SINGLE SOURCE OF TRUTH for all configuration defaults
func CreateRegistry() *Registry {
	registry := NewRegistry()
	registerAgentFields(registry)
	registerTwinFields(registry)
	registerServerFields(registry)
	registerMonitoringFields(registry)
	registerHistoryFields(registry)
	registerRuntimeFields(registry)
	return registry
}

func registerAgentFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "agent.id",
		Default: "edge-sentinel",
		CLIFlag: "agent-id",
		EnvVar:  "AGENT_ID",
		Type:    stringType,
		Help:    "Identifier attached to logs and history records",
	})
	registry.Register(&FieldDef{
		Path:    "agent.configuration_object_name",
		Default: DefaultConfigurationObjectName,
		CLIFlag: "configuration-object-name",
		EnvVar:  "AGENT_CONFIGURATION_OBJECT_NAME",
		Type:    stringType,
		Help:    "Twin namespace object holding the agent configuration",
	})
}

func registerTwinFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:      "twin.document_path",
		Default:   "twin.json",
		CLIFlag:   "twin-document",
		Shorthand: "d",
		EnvVar:    "TWIN_DOCUMENT_PATH",
		Type:      stringType,
		Help:      "Path of the desired twin document to synchronize from",
	})
	registry.Register(&FieldDef{
		Path:    "twin.mode",
		Default: "complete",
		CLIFlag: "twin-mode",
		EnvVar:  "TWIN_MODE",
		Type:    stringType,
		Help:    "Document shape: complete (full twin with desired section) or patch",
	})
	registry.Register(&FieldDef{
		Path:    "twin.debounce",
		Default: 250 * time.Millisecond,
		CLIFlag: "twin-debounce",
		EnvVar:  "TWIN_DEBOUNCE",
		Type:    durationType,
		Help:    "Quiet period after a document change before it is applied",
	})
	registry.Register(&FieldDef{
		Path:    "twin.read_retries",
		Default: 5,
		CLIFlag: "twin-read-retries",
		EnvVar:  "TWIN_READ_RETRIES",
		Type:    intType,
		Help:    "Retries while the document is missing or not yet valid JSON",
	})
	registry.Register(&FieldDef{
		Path:    "twin.read_retry_delay",
		Default: 100 * time.Millisecond,
		CLIFlag: "twin-read-retry-delay",
		EnvVar:  "TWIN_READ_RETRY_DELAY",
		Type:    durationType,
		Help:    "Initial backoff between document read retries",
	})
}

func registerServerFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "server.enabled",
		Default: false,
		CLIFlag: "server",
		EnvVar:  "SERVER_ENABLED",
		Type:    boolType,
		Help:    "Expose the diagnostics HTTP server",
	})
	registry.Register(&FieldDef{
		Path:    "server.host",
		Default: "127.0.0.1",
		CLIFlag: "host",
		EnvVar:  "SERVER_HOST",
		Type:    stringType,
		Help:    "Host to bind the diagnostics server to",
	})
	registry.Register(&FieldDef{
		Path:      "server.port",
		Default:   8089,
		CLIFlag:   "port",
		Shorthand: "p",
		EnvVar:    "SERVER_PORT",
		Type:      intType,
		Help:      "Port for the diagnostics server",
	})
	registry.Register(&FieldDef{
		Path:    "server.timeout",
		Default: 10 * time.Second,
		CLIFlag: "server-timeout",
		EnvVar:  "SERVER_TIMEOUT",
		Type:    durationType,
		Help:    "Read, write and shutdown timeout of the diagnostics server",
	})
	registry.Register(&FieldDef{
		Path:    "server.rate_limit",
		Default: 120,
		CLIFlag: "server-rate-limit",
		EnvVar:  "SERVER_RATE_LIMIT",
		Type:    intType,
		Help:    "Requests per minute allowed per client on the diagnostics server (0 disables)",
	})
}

func registerMonitoringFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "monitoring.enabled",
		Default: true,
		CLIFlag: "monitoring",
		EnvVar:  "MONITORING_ENABLED",
		Type:    boolType,
		Help:    "Collect Prometheus metrics",
	})
	registry.Register(&FieldDef{
		Path:    "monitoring.path",
		Default: "/metrics",
		CLIFlag: "monitoring-path",
		EnvVar:  "MONITORING_PATH",
		Type:    stringType,
		Help:    "HTTP path serving Prometheus metrics",
	})
}

func registerHistoryFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "history.enabled",
		Default: true,
		CLIFlag: "history",
		EnvVar:  "HISTORY_ENABLED",
		Type:    boolType,
		Help:    "Persist update outcomes to SQLite",
	})
	registry.Register(&FieldDef{
		Path:    "history.path",
		Default: "sentinel-history.db",
		CLIFlag: "history-path",
		EnvVar:  "HISTORY_PATH",
		Type:    stringType,
		Help:    "SQLite database file for update history (:memory: for in-memory)",
	})
	registry.Register(&FieldDef{
		Path:    "history.retention",
		Default: 1000,
		CLIFlag: "history-retention",
		EnvVar:  "HISTORY_RETENTION",
		Type:    intType,
		Help:    "Number of most recent update outcomes to keep",
	})
}

func registerRuntimeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "runtime.log_level",
		Default: "info",
		CLIFlag: "log-level",
		EnvVar:  "RUNTIME_LOG_LEVEL",
		Type:    stringType,
		Help:    "Log level (debug, info, warn, error)",
	})
	registry.Register(&FieldDef{
		Path:    "runtime.log_json",
		Default: false,
		CLIFlag: "log-json",
		EnvVar:  "RUNTIME_LOG_JSON",
		Type:    boolType,
		Help:    "Emit logs as JSON",
	})
	registry.Register(&FieldDef{
		Path:    "runtime.log_source",
		Default: false,
		CLIFlag: "log-source",
		EnvVar:  "RUNTIME_LOG_SOURCE",
		Type:    boolType,
		Help:    "Include source locations in logs",
	})
}
