package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("Should report writes to the watched file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		watcher, err := NewWatcher()
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		require.NoError(t, watcher.Watch(t.Context(), path))

		require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o600))
		assert.True(t, waitFor(t, func() bool { return calls.Load() >= 1 }))
	})

	t.Run("Should follow a file replaced by rename", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		watcher, err := NewWatcher()
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		require.NoError(t, watcher.Watch(t.Context(), path))

		tmp := filepath.Join(dir, "doc.json.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte(`{"b":2}`), 0o600))
		require.NoError(t, os.Rename(tmp, path))
		assert.True(t, waitFor(t, func() bool { return calls.Load() >= 1 }))
	})

	t.Run("Should ignore siblings of the watched file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "doc.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		watcher, err := NewWatcher()
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		require.NoError(t, watcher.Watch(t.Context(), path))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
		time.Sleep(200 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("Should stop reporting after the context is canceled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
		watcher, err := NewWatcher()
		require.NoError(t, err)
		defer watcher.Close()

		var calls atomic.Int32
		watcher.OnChange(func() { calls.Add(1) })
		ctx, cancel := context.WithCancel(t.Context())
		require.NoError(t, watcher.Watch(ctx, path))
		cancel()
		time.Sleep(100 * time.Millisecond)

		require.NoError(t, os.WriteFile(path, []byte(`{"c":3}`), 0o600))
		time.Sleep(200 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("Should fail for a missing directory", func(t *testing.T) {
		watcher, err := NewWatcher()
		require.NoError(t, err)
		defer watcher.Close()
		assert.Error(t, watcher.Watch(t.Context(), "/definitely/not/here/doc.json"))
	})
}

func TestWatcher_Close(t *testing.T) {
	t.Run("Should be idempotent", func(t *testing.T) {
		watcher, err := NewWatcher()
		require.NoError(t, err)
		require.NoError(t, watcher.Close())
		require.NoError(t, watcher.Close())
	})
}
