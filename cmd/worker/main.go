package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/wilds-engine/internal/config"
	"github.com/jwebster45206/wilds-engine/internal/journal"
	"github.com/jwebster45206/wilds-engine/internal/logger"
	"github.com/jwebster45206/wilds-engine/internal/queue"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/internal/telemetry"
	"github.com/jwebster45206/wilds-engine/internal/worker"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Wilds Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	if cfg.RedisURL == "" {
		log.Error("REDIS_URL is required for the worker")
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Setup(context.Background(), cfg.OTLPURL, cfg.ServiceName)
	if err != nil {
		log.Error("Failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	bundle, err := content.Default(log)
	if err != nil {
		log.Error("Failed to load content", "error", err)
		os.Exit(1)
	}
	if cfg.EventsDir != "" {
		if err := bundle.Extend(os.DirFS(cfg.EventsDir), "."); err != nil {
			log.Error("Failed to load extra events", "dir", cfg.EventsDir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := store.WaitForConnection(storageCtx, 60, 2*time.Second); err != nil {
		storageCancel()
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	storageCancel()
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()

	// The queue gets its own client so blocking pops don't starve storage.
	rdbCtx, rdbCancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := queue.NewClient(rdbCtx, cfg.RedisURL)
	rdbCancel()
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()
	jobs := queue.NewJobQueue(rdb, cfg.ResultTTL, log)
	log.Info("Queue service initialized successfully")

	var recorder engine.Recorder
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Error("Failed to open journal", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Error("Error closing journal", "error", err)
			}
		}()
		recorder = j
	}

	newRun := func(seed int64, sess *engine.Session) (*sim.Runner, error) {
		s, err := survivor.New(survivor.DefaultSpec(), survivor.DefaultRewards(), log)
		if err != nil {
			return nil, err
		}
		return sim.New(sim.Options{
			Bundle:      bundle,
			Survivor:    s,
			Session:     sess,
			Seed:        seed,
			TickMinutes: cfg.TickMinutes,
			Recorder:    recorder,
			Logger:      log,
		})
	}

	w := worker.New(jobs, rdb, store, newRun, log, cfg.WorkerID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Worker started, waiting for jobs...", "worker_id", w.ID())
	if err := w.Run(ctx); err != nil {
		log.Error("Worker error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", "error", err)
	}

	log.Info("Worker exited")
}
