package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/wilds-engine/internal/config"
	"github.com/jwebster45206/wilds-engine/internal/journal"
	"github.com/jwebster45206/wilds-engine/internal/logger"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

// ConsoleConfig holds what the UI needs to start or resume a run.
type ConsoleConfig struct {
	Config   *config.Config
	Bundle   *content.Bundle
	Store    storage.Store // nil when REDIS_URL is unset
	Recorder engine.Recorder
	Logger   *slog.Logger
}

// NewRunner starts a run, resuming sess when it is not nil.
func (c *ConsoleConfig) NewRunner(sess *engine.Session) (*sim.Runner, error) {
	surv, err := survivor.New(survivor.DefaultSpec(), survivor.DefaultRewards(), c.Logger)
	if err != nil {
		return nil, err
	}
	opts := sim.Options{
		Bundle:      c.Bundle,
		Survivor:    surv,
		Session:     sess,
		Seed:        c.Config.Seed,
		TickMinutes: c.Config.TickMinutes,
		Recorder:    c.Recorder,
		Logger:      c.Logger,
	}
	if c.Store != nil {
		opts.Saver = c.Store
	}
	return sim.New(opts)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "wilds-console.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.New(logFile, cfg)

	bundle, err := content.Default(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content: %v\n", err)
		os.Exit(1)
	}
	if cfg.EventsDir != "" {
		if err := bundle.Extend(os.DirFS(cfg.EventsDir), "."); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load events from %s: %v\n", cfg.EventsDir, err)
			os.Exit(1)
		}
	}

	cc := &ConsoleConfig{Config: cfg, Bundle: bundle, Logger: log}

	if cfg.RedisURL != "" {
		store, err := storage.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create storage: %v\n", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.WaitForConnection(ctx, 5, time.Second)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not connect to Redis. Please ensure it is running.\nTry: docker-compose up -d redis\n")
			os.Exit(1)
		}
		defer func() {
			_ = store.Close() // Ignore error in defer
		}()
		cc.Store = store
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = j.Close() // Ignore error in defer
		}()
		cc.Recorder = j
	}

	p := tea.NewProgram(NewConsoleUI(cc),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
