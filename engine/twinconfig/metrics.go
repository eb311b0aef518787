package twinconfig

import (
	"context"
	"fmt"

	"github.com/edge-sentinel/agent/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricsSubsystem = "twin"

// Metrics records update attempts as OpenTelemetry instruments.
type Metrics struct {
	attempts   metric.Int64Counter
	rejections metric.Int64Counter
	lastUpdate metric.Float64Gauge
}

// NewMetrics creates the instruments on meter. A nil meter yields a Metrics
// whose Record is a no-op.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return &Metrics{}, nil
	}
	attempts, err := meter.Int64Counter(
		metrics.MetricNameWithSubsystem(metricsSubsystem, "update_attempts_total"),
		metric.WithDescription("Twin configuration update attempts grouped by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create twin update attempts counter: %w", err)
	}
	rejections, err := meter.Int64Counter(
		metrics.MetricNameWithSubsystem(metricsSubsystem, "field_rejections_total"),
		metric.WithDescription("Twin configuration fields rejected grouped by key"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create twin field rejections counter: %w", err)
	}
	lastUpdate, err := meter.Float64Gauge(
		metrics.MetricNameWithSubsystem(metricsSubsystem, "last_update_timestamp_seconds"),
		metric.WithDescription("Unix time of the most recent update attempt grouped by result"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create twin last update gauge: %w", err)
	}
	return &Metrics{attempts: attempts, rejections: rejections, lastUpdate: lastUpdate}, nil
}

// Record is shaped to be registered with Store.OnOutcome.
func (m *Metrics) Record(ctx context.Context, outcome UpdateOutcome) {
	if m == nil || m.attempts == nil {
		return
	}
	result := attribute.String("result", outcome.Result.String())
	m.attempts.Add(ctx, 1, metric.WithAttributes(result, attribute.String("mode", outcome.Mode.String())))
	for _, key := range outcome.Bundle.Rejected() {
		m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
	}
	m.lastUpdate.Record(ctx, float64(outcome.Time.UnixNano())/1e9, metric.WithAttributes(result))
}
