package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/reciyap-relay/internal/adapter/metrics"
	"github.com/pscheid92/reciyap-relay/internal/broadcast"
	"github.com/pscheid92/reciyap-relay/internal/platform/config"
)

type connectionRegistry interface {
	Len() int
}

type broadcaster interface {
	BroadcastAll(ctx context.Context, body any) (broadcast.Report, error)
	SendDirect(ctx context.Context, userID string, body any) (broadcast.DeliveryResult, error)
}

type websocketEndpoint interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	registry    connectionRegistry
	broadcaster broadcaster
	endpoint    websocketEndpoint
	limits      *ConnectionLimits

	metricsRegistry *prometheus.Registry
	relayMetrics    *metrics.RelayMetrics
	httpMetrics     *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
	shuttingDown atomic.Bool
}

func NewServer(cfg *config.Config, registry connectionRegistry, b broadcaster, endpoint websocketEndpoint, limits *ConnectionLimits, metricsRegistry *prometheus.Registry, relayMetrics *metrics.RelayMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:            e,
		config:          cfg,
		registry:        registry,
		broadcaster:     b,
		endpoint:        endpoint,
		limits:          limits,
		metricsRegistry: metricsRegistry,
		relayMetrics:    relayMetrics,
		httpMetrics:     metrics.NewHTTPMetrics(metricsRegistry),
		startTime:       time.Now(),
	}
	srv.healthChecks = []HealthCheck{
		{Name: "shutdown", Check: srv.checkNotShuttingDown},
		{Name: "registry", Check: srv.checkRegistry},
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests. Upgraded WebSocket connections are
// hijacked and not tracked by echo; the broadcaster closes those.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
