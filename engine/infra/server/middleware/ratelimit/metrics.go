package ratelimit

import (
	"context"
	"sync"

	"github.com/edge-sentinel/agent/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	blocksTotal metric.Int64Counter
	metricsOnce sync.Once
	metricsMu   sync.Mutex
)

// InitMetrics initializes rate limiting metrics
func InitMetrics(meter metric.Meter) error {
	if meter == nil {
		return nil
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	var err error
	metricsOnce.Do(func() {
		blocksTotal, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("http", "rate_limit_blocks_total"),
			metric.WithDescription("Total number of requests blocked by rate limiting"),
			metric.WithUnit("1"),
		)
	})
	return err
}

// IncrementBlockedRequests increments the blocked requests counter
func IncrementBlockedRequests(ctx context.Context, route string) {
	metricsMu.Lock()
	counter := blocksTotal
	metricsMu.Unlock()
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
	}
}

// ResetMetricsForTesting resets the metrics initialization state.
// Only tests should call it.
func ResetMetricsForTesting() {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	blocksTotal = nil
	metricsOnce = sync.Once{}
}
