package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Load(t *testing.T) {
	t.Run("Should load and expose the configuration", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(func() { _ = m.Close(t.Context()) })
		cfg, err := m.Load(t.Context(), NewDefaultProvider())
		require.NoError(t, err)
		assert.Same(t, cfg, m.Get())
	})

	t.Run("Should return nil before loading", func(t *testing.T) {
		assert.Nil(t, NewManager(nil).Get())
	})
}

func TestManager_Reload(t *testing.T) {
	t.Run("Should notify only on changes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("runtime:\n  log_level: info\n"), 0o600))
		m := NewManager(nil)
		m.SetDebounce(0)
		t.Cleanup(func() { _ = m.Close(t.Context()) })

		var changes atomic.Int32
		m.OnChange(func(*Config) { changes.Add(1) })
		_, err := m.Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		require.Equal(t, int32(1), changes.Load())

		require.NoError(t, m.Reload(t.Context()))
		assert.Equal(t, int32(1), changes.Load())

		require.NoError(t, os.WriteFile(path, []byte("runtime:\n  log_level: debug\n"), 0o600))
		require.NoError(t, m.Reload(t.Context()))
		assert.Equal(t, "debug", m.Get().Runtime.LogLevel)
	})

	t.Run("Should keep the active configuration on invalid input", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("twin:\n  mode: patch\n"), 0o600))
		m := NewManager(nil)
		t.Cleanup(func() { _ = m.Close(t.Context()) })
		_, err := m.Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("twin:\n  mode: nope\n"), 0o600))
		assert.Error(t, m.Reload(t.Context()))
		assert.Equal(t, "patch", m.Get().Twin.Mode)
	})

	t.Run("Should hot reload a watched YAML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("agent:\n  id: one\n"), 0o600))
		m := NewManager(nil)
		m.SetDebounce(20 * time.Millisecond)
		t.Cleanup(func() { _ = m.Close(t.Context()) })
		_, err := m.Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		require.NoError(t, os.WriteFile(path, []byte("agent:\n  id: two\n"), 0o600))
		assert.Eventually(t, func() bool { return m.Get().Agent.ID == "two" }, 3*time.Second, 20*time.Millisecond)
	})
}

func TestConfigEqual(t *testing.T) {
	t.Run("Should compare configurations deeply", func(t *testing.T) {
		a, b := Default(), Default()
		assert.True(t, configEqual(a, b))
		b.Twin.Debounce = time.Minute
		assert.False(t, configEqual(a, b))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the manager configuration from context", func(t *testing.T) {
		m := NewManager(nil)
		t.Cleanup(func() { _ = m.Close(t.Context()) })
		_, err := m.Load(t.Context(), &mockSource{
			data:       map[string]any{"agent": map[string]any{"id": "ctx-agent"}},
			sourceType: SourceYAML,
		})
		require.NoError(t, err)
		ctx := ContextWithManager(t.Context(), m)
		assert.Same(t, m, ManagerFromContext(ctx))
		assert.Equal(t, "ctx-agent", FromContext(ctx).Agent.ID)
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		cfg := FromContext(t.Context())
		require.NotNil(t, cfg)
		assert.Equal(t, "edge-sentinel", cfg.Agent.ID)
	})
}
