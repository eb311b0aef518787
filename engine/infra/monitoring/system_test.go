package monitoring

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func attrString(t *testing.T, set attribute.Set, key string) string {
	t.Helper()
	value, ok := set.Value(attribute.Key(key))
	require.True(t, ok, "expected attribute %q", key)
	require.Equal(t, attribute.STRING, value.Type(), "attribute %q should be a string", key)
	return value.AsString()
}

func collectGauge(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Gauge[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				gauge, ok := m.Data.(metricdata.Gauge[float64])
				require.True(t, ok, "%s should be a float64 gauge", name)
				return gauge
			}
		}
	}
	require.Failf(t, "metric not found", "%s", name)
	return metricdata.Gauge[float64]{}
}

func newSystemReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	ResetSystemMetricsForTesting()
	t.Cleanup(ResetSystemMetricsForTesting)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	InitSystemMetrics(t.Context(), provider.Meter("test"))
	return reader
}

func TestSystemMetrics(t *testing.T) {
	t.Run("Should record build info with version labels", func(t *testing.T) {
		reader := newSystemReader(t)
		gauge := collectGauge(t, reader, "sentinel_build_info")
		require.Len(t, gauge.DataPoints, 1)
		dp := gauge.DataPoints[0]
		assert.Equal(t, float64(1), dp.Value)
		assert.Equal(t, runtime.Version(), attrString(t, dp.Attributes, "go_version"))
		assert.NotEmpty(t, attrString(t, dp.Attributes, "version"))
		assert.NotEmpty(t, attrString(t, dp.Attributes, "commit_hash"))
	})
	t.Run("Should report monotonic uptime", func(t *testing.T) {
		reader := newSystemReader(t)
		first := collectGauge(t, reader, "sentinel_uptime_seconds")
		time.Sleep(20 * time.Millisecond)
		second := collectGauge(t, reader, "sentinel_uptime_seconds")
		require.Len(t, first.DataPoints, 1)
		require.Len(t, second.DataPoints, 1)
		assert.Greater(t, second.DataPoints[0].Value, first.DataPoints[0].Value)
	})
	t.Run("Should tolerate repeated initialization", func(t *testing.T) {
		reader := newSystemReader(t)
		InitSystemMetrics(t.Context(), sdkmetric.NewMeterProvider().Meter("other"))
		gauge := collectGauge(t, reader, "sentinel_uptime_seconds")
		assert.Len(t, gauge.DataPoints, 1)
	})
}

func TestGetBuildInfo(t *testing.T) {
	t.Run("Should prefer ldflags values", func(t *testing.T) {
		origVersion, origCommit := Version, CommitHash
		t.Cleanup(func() { Version, CommitHash = origVersion, origCommit })
		Version = "v1.2.3"
		CommitHash = "abc123"
		version, commit, goVersion := getBuildInfo()
		assert.Equal(t, "v1.2.3", version)
		assert.Equal(t, "abc123", commit)
		assert.Equal(t, runtime.Version(), goVersion)
	})
}
