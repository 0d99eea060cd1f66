package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL    string        `env:"REDIS_URL"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	JournalPath string        `env:"JOURNAL_PATH"`
	EventsDir   string        `env:"EVENTS_DIR"`
	Seed        int64         `env:"SEED" envDefault:"1"`
	Ticks       int           `env:"TICKS" envDefault:"96"`
	TickMinutes int           `env:"TICK_MINUTES" envDefault:"15"`
	OTLPURL     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string        `env:"OTEL_SERVICE_NAME" envDefault:"wilds-engine"`
	WorkerID    string        `env:"WORKER_ID"`
	ResultTTL   time.Duration `env:"RESULT_TTL" envDefault:"24h"`

	LogLevel slog.Level // parsed from LogLevelRaw
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	if cfg.TickMinutes <= 0 {
		return nil, fmt.Errorf("TICK_MINUTES must be positive, got %d", cfg.TickMinutes)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
