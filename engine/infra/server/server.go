package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/edge-sentinel/agent/engine/infra/monitoring"
	"github.com/edge-sentinel/agent/engine/infra/server/middleware/ratelimit"
	"github.com/edge-sentinel/agent/engine/infra/sqlite"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultRequestTimeout = 10 * time.Second
	serverShutdownTimeout = 5 * time.Second
	httpIdleTimeout       = 60 * time.Second
)

// TwinReader is the read side of the configuration store.
type TwinReader interface {
	SerializedConfiguration() ([]byte, error)
	Snapshot() (twinconfig.Snapshot, error)
	LastUpdateOutcome() twinconfig.UpdateOutcome
	Namespace() string
}

// HistoryReader lists persisted update attempts.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]sqlite.Entry, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the components exposed by the diagnostics server. Twin is
// required; the others are optional.
type Deps struct {
	Twin       TwinReader
	History    HistoryReader
	Checks     map[string]HealthChecker
	Monitoring *monitoring.Service
	Version    string
}

// Server is the diagnostics HTTP server of the agent.
type Server struct {
	config *config.ServerConfig
	deps   Deps
	router *gin.Engine

	mu   sync.Mutex
	addr net.Addr
}

// NewServer builds the router for cfg and deps.
func NewServer(ctx context.Context, cfg *config.ServerConfig, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server configuration is required")
	}
	if deps.Twin == nil {
		return nil, fmt.Errorf("twin reader is required")
	}
	s := &Server{config: cfg, deps: deps}
	r, err := s.buildRouter(ctx)
	if err != nil {
		return nil, err
	}
	s.router = r
	return s, nil
}

func (s *Server) buildRouter(ctx context.Context) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	var meter metric.Meter
	if s.deps.Monitoring != nil {
		meter = s.deps.Monitoring.Meter()
		r.Use(s.deps.Monitoring.GinMiddleware())
	}
	if s.config.RateLimit > 0 {
		limitCfg := ratelimit.PerMinute(s.config.RateLimit)
		if s.deps.Monitoring != nil {
			limitCfg.ExcludedPaths = append(limitCfg.ExcludedPaths, s.deps.Monitoring.Path())
		}
		limited, err := ratelimit.NewMiddleware(limitCfg, meter)
		if err != nil {
			return nil, fmt.Errorf("failed to configure rate limiting: %w", err)
		}
		r.Use(limited)
	}
	if s.deps.Monitoring != nil {
		r.GET(s.deps.Monitoring.Path(), gin.WrapH(s.deps.Monitoring.ExporterHandler()))
	}
	registerHealthRoutes(r, s.deps)
	registerTwinRoutes(r, s.deps)
	return r, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound listener address once Run has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	address := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	log.Info("Starting diagnostics server", "address", fmt.Sprintf("http://%s", ln.Addr()))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("diagnostics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Diagnostics server stopped")
	return nil
}
