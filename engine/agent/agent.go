// Package agent assembles the twin configuration store with its document
// source, metrics, history and diagnostics server.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/edge-sentinel/agent/engine/infra/monitoring"
	"github.com/edge-sentinel/agent/engine/infra/server"
	"github.com/edge-sentinel/agent/engine/infra/sqlite"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/engine/twinsync"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Agent owns every long-lived component of a running agent.
type Agent struct {
	cfg        *config.Config
	monitoring *monitoring.Service
	store      *twinconfig.Store
	db         *sqlite.Store
	history    *sqlite.HistoryRepo
	syncer     *twinsync.Syncer
	server     *server.Server
	cleanups   []func(context.Context) error
}

// New builds an Agent from cfg. Components that fail to start are closed
// before the error is returned.
func New(ctx context.Context, cfg *config.Config) (_ *Agent, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	a := &Agent{cfg: cfg}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close(ctx))
		}
	}()
	if err := a.setupMonitoring(ctx); err != nil {
		return nil, err
	}
	if err := a.setupStore(ctx); err != nil {
		return nil, err
	}
	if err := a.setupHistory(ctx); err != nil {
		return nil, err
	}
	syncer, err := twinsync.New(twinsync.ConfigFrom(cfg), a.store, twinsync.WithMeter(a.monitoring.Meter()))
	if err != nil {
		return nil, fmt.Errorf("failed to create document synchronizer: %w", err)
	}
	a.syncer = syncer
	if err := a.setupServer(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Agent) setupMonitoring(ctx context.Context) error {
	a.monitoring = monitoring.NewMonitoringServiceWithFallback(ctx, monitoring.FromAppConfig(a.cfg))
	a.monitoring.SetAsGlobal()
	a.cleanups = append(a.cleanups, a.monitoring.Shutdown)
	return nil
}

func (a *Agent) setupStore(ctx context.Context) error {
	store, err := twinconfig.New(twinconfig.WithNamespace(a.cfg.Agent.ConfigurationObjectName))
	if err != nil {
		return err
	}
	a.store = store
	a.cleanups = append(a.cleanups, func(context.Context) error { return store.Close() })
	metrics, err := twinconfig.NewMetrics(a.monitoring.Meter())
	if err != nil {
		logger.FromContext(ctx).Warn("Twin metrics not initialized; continuing without metrics", "error", err)
		return nil
	}
	store.OnOutcome(metrics.Record)
	return nil
}

func (a *Agent) setupHistory(ctx context.Context) error {
	if !a.cfg.History.Enabled {
		return nil
	}
	db, err := sqlite.NewStore(ctx, &sqlite.Config{Path: a.cfg.History.Path})
	if err != nil {
		return fmt.Errorf("failed to open update history: %w", err)
	}
	a.db = db
	a.cleanups = append(a.cleanups, db.Close)
	a.history = sqlite.NewHistoryRepo(db.DB(), a.cfg.History.Retention)
	a.store.OnOutcome(func(ctx context.Context, outcome twinconfig.UpdateOutcome) {
		if _, err := a.history.Record(ctx, outcome); err != nil {
			logger.FromContext(ctx).Error("Failed to record update outcome", "error", err)
		}
	})
	return nil
}

func (a *Agent) setupServer(ctx context.Context) error {
	if !a.cfg.Server.Enabled {
		return nil
	}
	deps := server.Deps{
		Twin:       a.store,
		Monitoring: a.monitoring,
		Version:    monitoring.Version,
		Checks:     map[string]server.HealthChecker{},
	}
	if a.history != nil {
		deps.History = a.history
		deps.Checks["history"] = a.db
	}
	srv, err := server.NewServer(ctx, &a.cfg.Server, deps)
	if err != nil {
		return fmt.Errorf("failed to create diagnostics server: %w", err)
	}
	a.server = srv
	return nil
}

// Store returns the configuration store.
func (a *Agent) Store() *twinconfig.Store { return a.store }

// History returns the update history, or nil when it is disabled.
func (a *Agent) History() *sqlite.HistoryRepo { return a.history }

// Server returns the diagnostics server, or nil when it is disabled.
func (a *Agent) Server() *server.Server { return a.server }

// Run synchronizes the document and serves diagnostics until ctx is done or
// a component fails.
func (a *Agent) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.syncer.Run(gctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(gctx)
		})
	}
	log.Info("Agent started",
		"id", a.cfg.Agent.ID,
		"namespace", a.store.Namespace(),
		"document", a.cfg.Twin.DocumentPath,
		"server", a.server != nil,
		"history", a.history != nil,
	)
	err := g.Wait()
	log.Info("Agent stopped")
	return err
}

// Close releases components in reverse order of creation.
func (a *Agent) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
