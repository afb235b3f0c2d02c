package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reciyap-relay/internal/adapter/httpserver"
	"github.com/pscheid92/reciyap-relay/internal/adapter/metrics"
	"github.com/pscheid92/reciyap-relay/internal/adapter/websocket"
	"github.com/pscheid92/reciyap-relay/internal/broadcast"
	"github.com/pscheid92/reciyap-relay/internal/platform/config"
	"github.com/pscheid92/reciyap-relay/internal/platform/logging"
	"github.com/pscheid92/reciyap-relay/internal/platform/version"
	"github.com/pscheid92/reciyap-relay/internal/registry"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, broadcaster *broadcast.Broadcaster) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Upgraded connections are invisible to the HTTP server; close them here.
		closed := broadcaster.Shutdown(shutdownCtx)
		slog.Info("Closed WebSocket connections", "count", closed)

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	metricsRegistry := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(metricsRegistry)

	connections := registry.New()
	metrics.RegisterActiveConnections(metricsRegistry, connections.Len)

	broadcaster := broadcast.NewBroadcaster(connections, relayMetrics)

	endpoint := websocket.NewEndpoint(connections, broadcaster, clock, relayMetrics, websocket.Config{
		Writer: broadcast.WriterConfig{
			BufferSize:   cfg.SendBufferSize,
			WriteTimeout: cfg.WriteTimeout,
			PingInterval: cfg.PingInterval,
			PongTimeout:  cfg.PongTimeout,
		},
		MaxMessageSize: cfg.MaxMessageSize,
		InboundRate:    cfg.InboundRate,
		InboundBurst:   cfg.InboundBurst,
	}, websocket.NewCheckOrigin(cfg.AllowedOrigins, !cfg.IsProduction()))

	limits := httpserver.NewConnectionLimits(
		clock,
		int64(cfg.MaxWebSocketConnections),
		cfg.MaxConnectionsPerIP,
		cfg.ConnectionRate,
		cfg.ConnectionBurst,
	)

	srv := httpserver.NewServer(cfg, connections, broadcaster, endpoint, limits, metricsRegistry, relayMetrics)

	done := runGracefulShutdown(cfg, srv, broadcaster)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
