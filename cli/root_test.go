package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edge-sentinel/agent/engine/infra/server"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := RootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--env-file", "", "--config", "", "--format", "json"}, args...))
	err := root.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func writeTwin(t *testing.T, dir, fields string) string {
	t.Helper()
	path := filepath.Join(dir, "twin.json")
	doc := fmt.Sprintf(`{"desired": {%q: {%s}}}`, twinconfig.DefaultNamespace, fields)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should merge YAML and let flags win", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "edge-sentinel.yaml")
		yamlDoc := "twin:\n  mode: patch\n  read_retries: 2\nhistory:\n  retention: 10\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(yamlDoc), 0o600))
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("config", cfgPath))
		require.NoError(t, cmd.PersistentFlags().Set("twin-mode", "complete"))
		require.NoError(t, SetupGlobalConfig(cmd))
		t.Cleanup(func() { _ = config.ManagerFromContext(cmd.Context()).Close(t.Context()) })
		cfg := config.FromContext(cmd.Context())
		require.NotNil(t, cfg)
		assert.Equal(t, "complete", cfg.Twin.Mode)
		assert.Equal(t, 2, cfg.Twin.ReadRetries)
		assert.Equal(t, 10, cfg.History.Retention)
	})
	t.Run("Should reject an unknown output format", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("format", "xml"))
		assert.Error(t, SetupGlobalConfig(cmd))
	})
}

func TestExtractCLIFlags(t *testing.T) {
	t.Run("Should only include changed registry flags", func(t *testing.T) {
		cmd := RootCmd()
		flags := cmd.PersistentFlags()
		require.NoError(t, flags.Set("port", "9000"))
		require.NoError(t, flags.Set("twin-debounce", "1s"))
		require.NoError(t, flags.Set("server", "true"))
		require.NoError(t, flags.Set("no-color", "true"))
		out := make(map[string]any)
		extractCLIFlags(flags, out)
		assert.Equal(t, 9000, out["port"])
		assert.Equal(t, true, out["server"])
		assert.Contains(t, out, "twin-debounce")
		assert.NotContains(t, out, "no-color")
		assert.NotContains(t, out, "host")
	})
}

func TestIsPathWithinDirectory(t *testing.T) {
	t.Run("Should detect escapes from the directory", func(t *testing.T) {
		dir := t.TempDir()
		assert.True(t, isPathWithinDirectory(filepath.Join(dir, ".env"), dir))
		assert.True(t, isPathWithinDirectory(dir, dir))
		assert.False(t, isPathWithinDirectory(filepath.Join(dir, "..", "other", ".env"), dir))
	})
}

func TestApplyCommand(t *testing.T) {
	t.Run("Should apply a valid document and print the report", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTwin(t, dir, `"MaxMessageSize": 4096, "SnapshotFrequency": "PT1H"`)
		stdout, _, err := execute(t, "apply", "--file", path, "--history=false")
		require.NoError(t, err)
		var report map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, "ok", report["result"])
		assert.Equal(t, true, report["applied"])
		assert.Equal(t, "complete", report["mode"])
		snapshot := report["snapshot"].(map[string]any)
		assert.InDelta(t, 4096, snapshot["max_message_size"], 0)
		assert.InDelta(t, 3600000, snapshot["snapshot_frequency_ms"], 0)
		reported := report["reported"].(map[string]any)
		assert.Contains(t, reported, twinconfig.DefaultNamespace)
	})
	t.Run("Should fail and report rejected fields", func(t *testing.T) {
		dir := t.TempDir()
		path := writeTwin(t, dir, `"MaxMessageSize": "big"`)
		stdout, stderr, err := execute(t, "apply", "--file", path, "--history=false")
		require.Error(t, err)
		var report map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, "parse_exception", report["result"])
		assert.Equal(t, false, report["applied"])
		assert.Equal(t, []any{twinconfig.KeyMaxMessageSize}, report["rejected"])
		assert.Contains(t, stderr, "UPDATE_REJECTED")
	})
	t.Run("Should honor the patch mode flag", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "patch.json")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{%q: {"MaxLocalCacheSize": 10}}`,
			twinconfig.DefaultNamespace)), 0o600))
		stdout, _, err := execute(t, "apply", "--file", path, "--mode", "patch", "--history=false")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"mode": "patch"`)
		assert.Contains(t, stdout, `"max_local_cache_size": 10`)
	})
	t.Run("Should require the file flag", func(t *testing.T) {
		_, stderr, err := execute(t, "apply")
		require.Error(t, err)
		assert.Contains(t, stderr, "file")
	})
	t.Run("Should report a missing document", func(t *testing.T) {
		_, stderr, err := execute(t, "apply", "--file", filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, stderr, "READ_ERROR")
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("Should list outcomes recorded by apply", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "history.db")
		good := writeTwin(t, dir, `"MaxMessageSize": 1`)
		_, _, err := execute(t, "apply", "--file", good, "--record", "--history-path", dbPath)
		require.NoError(t, err)
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`[1]`), 0o600))
		_, _, err = execute(t, "apply", "--file", bad, "--record", "--history-path", dbPath)
		require.Error(t, err)

		stdout, _, err := execute(t, "history", "--history-path", dbPath)
		require.NoError(t, err)
		var listing struct {
			Count   int `json:"count"`
			Entries []struct {
				Result string `json:"result"`
			} `json:"entries"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &listing))
		require.Equal(t, 2, listing.Count)
		assert.Equal(t, "exception", listing.Entries[0].Result)
		assert.Equal(t, "ok", listing.Entries[1].Result)
	})
	t.Run("Should render a table in text mode", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "history.db")
		good := writeTwin(t, dir, `"MaxMessageSize": 1`)
		_, _, err := execute(t, "apply", "--file", good, "--record", "--history-path", dbPath)
		require.NoError(t, err)
		stdout, _, err := execute(t, "history", "--history-path", dbPath, "--format", "text", "--no-color")
		require.NoError(t, err)
		assert.Contains(t, stdout, "RESULT")
		assert.Contains(t, stdout, "1 entry")
	})
	t.Run("Should fail when history is disabled", func(t *testing.T) {
		_, stderr, err := execute(t, "history", "--history=false")
		require.Error(t, err)
		assert.Contains(t, stderr, "HISTORY_DISABLED")
	})
}

func TestConfigCommand(t *testing.T) {
	t.Run("Should show the effective configuration with sources", func(t *testing.T) {
		stdout, _, err := execute(t, "config", "show", "--output", "json", "--sources", "--twin-mode", "patch")
		require.NoError(t, err)
		var shown struct {
			Config  map[string]string `json:"config"`
			Sources map[string]string `json:"sources"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
		assert.Equal(t, "patch", shown.Config["twin.mode"])
		assert.Equal(t, "cli", shown.Sources["twin.mode"])
		assert.Equal(t, "default", shown.Sources["server.host"])
	})
	t.Run("Should validate the configuration", func(t *testing.T) {
		stdout, _, err := execute(t, "config", "validate")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"valid": true`)
	})
}

func startAgentServer(t *testing.T) (*twinconfig.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	twin, err := twinconfig.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = twin.Close() })
	cfg := config.Default().Server
	srv, err := server.NewServer(t.Context(), &cfg, server.Deps{Twin: twin})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return twin, ts.URL + "/api/v0"
}

func TestStatusCommand(t *testing.T) {
	t.Run("Should print the last outcome of a running agent", func(t *testing.T) {
		twin, base := startAgentServer(t)
		doc := fmt.Sprintf(`{"desired": {%q: {"MaxMessageSize": 2048}}}`, twinconfig.DefaultNamespace)
		require.NoError(t, twin.Update(t.Context(), []byte(doc), twinconfig.ModeComplete))
		stdout, _, err := execute(t, "status", "--url", base, "--reported")
		require.NoError(t, err)
		var report struct {
			Result   string          `json:"result"`
			Applied  bool            `json:"applied"`
			Server   string          `json:"server"`
			Reported json.RawMessage `json:"reported"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, "ok", report.Result)
		assert.True(t, report.Applied)
		assert.Equal(t, base, report.Server)
		assert.Contains(t, string(report.Reported), "2048")
	})
	t.Run("Should render fields in text mode", func(t *testing.T) {
		_, base := startAgentServer(t)
		stdout, _, err := execute(t, "status", "--url", base, "--format", "text", "--no-color")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Result: none")
		assert.Contains(t, stdout, twinconfig.KeyMaxMessageSize)
	})
	t.Run("Should fail when the agent is unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		base := ts.URL + "/api/v0"
		ts.Close()
		_, stderr, err := execute(t, "status", "--url", base)
		require.Error(t, err)
		assert.Contains(t, stderr, "AGENT_UNREACHABLE")
	})
}
