package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minInternalTokenLength = 16

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// Origins allowed for CORS and WebSocket upgrades. "*" allows any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3008"`

	// Bearer token for the internal push API. Empty disables the API.
	InternalAPIToken string `env:"INTERNAL_API_TOKEN"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"50"`
	ConnectionRate          float64 `env:"CONNECTION_RATE" default:"10"`
	ConnectionBurst         int     `env:"CONNECTION_BURST" default:"20"`

	SendBufferSize int           `env:"SEND_BUFFER_SIZE" default:"16"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" default:"5s"`
	PingInterval   time.Duration `env:"PING_INTERVAL" default:"30s"`
	PongTimeout    time.Duration `env:"PONG_TIMEOUT" default:"60s"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" default:"8192"`
	InboundRate    float64       `env:"INBOUND_RATE" default:"20"`
	InboundBurst   int           `env:"INBOUND_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	positiveInts := []struct {
		name  string
		value int64
	}{
		{"MAX_WEBSOCKET_CONNECTIONS", int64(cfg.MaxWebSocketConnections)},
		{"MAX_CONNECTIONS_PER_IP", int64(cfg.MaxConnectionsPerIP)},
		{"CONNECTION_BURST", int64(cfg.ConnectionBurst)},
		{"SEND_BUFFER_SIZE", int64(cfg.SendBufferSize)},
		{"MAX_MESSAGE_SIZE", cfg.MaxMessageSize},
		{"INBOUND_BURST", int64(cfg.InboundBurst)},
	}
	for _, p := range positiveInts {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	if cfg.ConnectionRate <= 0 {
		return errors.New("CONNECTION_RATE must be positive")
	}
	if cfg.InboundRate <= 0 {
		return errors.New("INBOUND_RATE must be positive")
	}

	if cfg.WriteTimeout <= 0 || cfg.PingInterval <= 0 || cfg.PongTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return errors.New("WRITE_TIMEOUT, PING_INTERVAL, PONG_TIMEOUT and SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.PingInterval >= cfg.PongTimeout {
		return fmt.Errorf("PING_INTERVAL (%s) must be shorter than PONG_TIMEOUT (%s)", cfg.PingInterval, cfg.PongTimeout)
	}

	if cfg.IsProduction() && slices.Contains(cfg.AllowedOrigins, "*") {
		return errors.New("ALLOWED_ORIGINS must not contain * in production")
	}

	if cfg.InternalAPIToken != "" && len(cfg.InternalAPIToken) < minInternalTokenLength {
		return fmt.Errorf("INTERNAL_API_TOKEN must be at least %d characters", minInternalTokenLength)
	}

	return nil
}
