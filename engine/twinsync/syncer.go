// Package twinsync feeds a desired-state document kept on disk into the twin
// configuration store and keeps it in sync as the file changes.
package twinsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/edge-sentinel/agent/engine/infra/monitoring/metrics"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/romdo/go-debounce"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxRetryDelay = 2 * time.Second

var (
	// ErrRead is returned when the document file cannot be read.
	ErrRead = errors.New("failed to read twin document")

	errIncomplete = errors.New("twin document is not valid JSON yet")
)

// Updater applies a document to the configuration.
type Updater interface {
	Update(ctx context.Context, document []byte, mode twinconfig.Mode) error
}

// Syncer applies the document at Config.Path to an Updater.
type Syncer struct {
	cfg      Config
	store    Updater
	mu       sync.Mutex
	duration metric.Float64Histogram
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithMeter records sync latency on meter.
func WithMeter(meter metric.Meter) Option {
	return func(s *Syncer) {
		if meter == nil {
			return
		}
		h, err := meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("twin", "sync_duration_seconds"),
			metric.WithDescription("Time to read and apply the desired document"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(metrics.SyncDurationBuckets...),
		)
		if err != nil {
			logger.Error("Failed to create sync duration histogram", "error", err)
			return
		}
		s.duration = h
	}
}

// New creates a Syncer.
func New(cfg Config, store Updater, opts ...Option) (*Syncer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("twin document path is required")
	}
	if store == nil {
		return nil, fmt.Errorf("updater is required")
	}
	if cfg.ReadRetries < 0 {
		return nil, fmt.Errorf("read retries must not be negative")
	}
	if cfg.ReadRetries > 0 && cfg.ReadRetryDelay <= 0 {
		return nil, fmt.Errorf("read retry delay must be positive when retries are enabled")
	}
	s := &Syncer{cfg: cfg, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sync reads the document once and applies it. A file that is still not valid
// JSON after all retries is applied anyway so the store records the failure.
func (s *Syncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	err := s.sync(ctx)
	s.record(ctx, start, err)
	return err
}

func (s *Syncer) sync(ctx context.Context) error {
	log := logger.FromContext(ctx).With("path", s.cfg.Path)
	document, err := s.read(ctx)
	switch {
	case errors.Is(err, errIncomplete):
		log.Warn("Twin document still invalid after retries", "retries", s.cfg.ReadRetries)
	case err != nil:
		return fmt.Errorf("%w %s: %w", ErrRead, s.cfg.Path, err)
	}
	return s.store.Update(ctx, document, s.cfg.Mode)
}

func (s *Syncer) read(ctx context.Context) ([]byte, error) {
	var last []byte
	readOnce := func(context.Context) ([]byte, error) {
		data, err := os.ReadFile(s.cfg.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, retry.RetryableError(err)
			}
			return nil, err
		}
		last = data
		if !gjson.ValidBytes(data) {
			return nil, retry.RetryableError(errIncomplete)
		}
		return data, nil
	}
	if s.cfg.ReadRetries == 0 {
		data, err := readOnce(ctx)
		return s.unwrapIncomplete(data, last, err)
	}
	backoff := retry.WithMaxRetries(
		uint64(s.cfg.ReadRetries),
		retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(s.cfg.ReadRetryDelay)),
	)
	data, err := retry.DoValue(ctx, backoff, readOnce)
	return s.unwrapIncomplete(data, last, err)
}

// unwrapIncomplete strips the retry marker left on errors by the final attempt.
func (s *Syncer) unwrapIncomplete(data, last []byte, err error) ([]byte, error) {
	if err == nil {
		return data, nil
	}
	if errors.Is(err, errIncomplete) {
		return last, errIncomplete
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return nil, pathErr
	}
	return nil, err
}

func (s *Syncer) record(ctx context.Context, start time.Time, err error) {
	if s.duration == nil {
		return
	}
	result := twinconfig.ResultOf(err).String()
	if errors.Is(err, ErrRead) {
		result = "read_error"
	}
	s.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("result", result)))
}

// Run performs an initial sync and then re-syncs on every debounced change
// of the document file until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).With("path", s.cfg.Path)
	watcher, err := config.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	resync := func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Sync(ctx); err != nil {
			log.Warn("Twin document sync failed", "error", err)
		}
	}
	trigger := resync
	if s.cfg.Debounce > 0 {
		debounced, cancel := debounce.NewWithMaxWait(s.cfg.Debounce, 10*s.cfg.Debounce, resync)
		defer cancel()
		trigger = debounced
	}
	watcher.OnChange(trigger)
	if err := watcher.Watch(ctx, s.cfg.Path); err != nil {
		return err
	}
	log.Info("Watching twin document", "mode", s.cfg.Mode.String(), "debounce", s.cfg.Debounce)
	resync()
	<-ctx.Done()
	return nil
}
