package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/edge-sentinel/agent/cli/helpers"
	pkgconfig "github.com/edge-sentinel/agent/pkg/config"
)

func TestFlattenConfig(t *testing.T) {
	t.Run("Should cover every section of the configuration", func(t *testing.T) {
		cfg := pkgconfig.Default()
		flat := flattenConfig(cfg)
		assert.Equal(t, cfg.Agent.ConfigurationObjectName, flat["agent.configuration_object_name"])
		assert.Equal(t, cfg.Twin.Debounce.String(), flat["twin.debounce"])
		assert.Equal(t, "8089", flat["server.port"])
		assert.Equal(t, "/metrics", flat["monitoring.path"])
		assert.Equal(t, "1000", flat["history.retention"])
		assert.Equal(t, "info", flat["runtime.log_level"])
	})
}

func TestFormatConfigOutput(t *testing.T) {
	cfg := pkgconfig.Default()
	t.Run("Should print a sorted table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, formatConfigOutput(&buf, cfg, nil, "table"))
		out := buf.String()
		assert.Contains(t, out, "KEY")
		assert.NotContains(t, out, "SOURCE")
		assert.Less(t, bytes.Index(buf.Bytes(), []byte("agent.id")), bytes.Index(buf.Bytes(), []byte("twin.mode")))
	})
	t.Run("Should include sources in the table when requested", func(t *testing.T) {
		var buf bytes.Buffer
		sources := map[string]pkgconfig.SourceType{"twin.mode": pkgconfig.SourceCLI}
		require.NoError(t, formatConfigOutput(&buf, cfg, sources, "table"))
		assert.Contains(t, buf.String(), "SOURCE")
		assert.Regexp(t, `twin\.mode\s+complete\s+cli`, buf.String())
		assert.Regexp(t, `server\.host\s+127\.0\.0\.1\s+default`, buf.String())
	})
	t.Run("Should encode JSON and YAML documents", func(t *testing.T) {
		var jsonBuf bytes.Buffer
		require.NoError(t, formatConfigOutput(&jsonBuf, cfg, nil, "json"))
		var decoded map[string]map[string]string
		require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
		assert.Equal(t, "complete", decoded["config"]["twin.mode"])

		var yamlBuf bytes.Buffer
		require.NoError(t, formatConfigOutput(&yamlBuf, cfg, nil, "yaml"))
		var fromYAML map[string]map[string]string
		require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
		assert.Equal(t, "127.0.0.1", fromYAML["config"]["server.host"])
	})
	t.Run("Should reject unknown formats", func(t *testing.T) {
		err := formatConfigOutput(&bytes.Buffer{}, cfg, nil, "xml")
		var cliErr *helpers.CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "INVALID_FORMAT", cliErr.Code)
	})
}
