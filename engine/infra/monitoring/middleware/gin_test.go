package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	ResetMetricsForTesting()
	t.Cleanup(ResetMetricsForTesting)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetrics(provider.Meter("test")))
	router.GET("/api/v0/twin/:view", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"view": c.Param("view")})
	})
	router.POST("/api/v0/twin/reported", func(c *gin.Context) {
		c.Status(http.StatusMethodNotAllowed)
	})
	return router, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func serve(router *gin.Engine, method, target string) int {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
	return w.Code
}

func TestHTTPMetrics(t *testing.T) {
	t.Run("Should count requests by route template", func(t *testing.T) {
		router, reader := newTestRouter(t)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v0/twin/status"))
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v0/twin/history"))
		m, ok := findMetric(t, reader, "sentinel_http_requests_total")
		require.True(t, ok)
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		attrs := sum.DataPoints[0].Attributes.ToSlice()
		assert.Contains(t, attrs, attribute.String("method", "GET"))
		assert.Contains(t, attrs, attribute.String("path", "/api/v0/twin/:view"))
		assert.Contains(t, attrs, attribute.String("status_code", "200"))
		assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	})
	t.Run("Should label unmatched routes to bound cardinality", func(t *testing.T) {
		router, reader := newTestRouter(t)
		assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/nope/1"))
		assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/nope/2"))
		m, ok := findMetric(t, reader, "sentinel_http_requests_total")
		require.True(t, ok)
		sum := m.Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Contains(t, sum.DataPoints[0].Attributes.ToSlice(), attribute.String("path", "unmatched"))
	})
	t.Run("Should record status codes other than success", func(t *testing.T) {
		router, reader := newTestRouter(t)
		serve(router, http.MethodPost, "/api/v0/twin/reported")
		m, ok := findMetric(t, reader, "sentinel_http_requests_total")
		require.True(t, ok)
		sum := m.Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Contains(t, sum.DataPoints[0].Attributes.ToSlice(), attribute.String("status_code", "405"))
	})
	t.Run("Should record latency with configured buckets", func(t *testing.T) {
		router, reader := newTestRouter(t)
		serve(router, http.MethodGet, "/api/v0/twin/status")
		m, ok := findMetric(t, reader, "sentinel_http_request_duration_seconds")
		require.True(t, ok)
		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
		assert.Len(t, hist.DataPoints[0].Bounds, 12)
	})
	t.Run("Should return to zero in-flight after completion", func(t *testing.T) {
		router, reader := newTestRouter(t)
		serve(router, http.MethodGet, "/api/v0/twin/status")
		m, ok := findMetric(t, reader, "sentinel_http_requests_in_flight")
		require.True(t, ok)
		sum := m.Data.(metricdata.Sum[int64])
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(0), sum.DataPoints[0].Value)
	})
	t.Run("Should pass requests through with a nil meter", func(t *testing.T) {
		ResetMetricsForTesting()
		t.Cleanup(ResetMetricsForTesting)
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(HTTPMetrics(nil))
		router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/healthz"))
	})
}
