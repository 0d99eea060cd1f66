package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/wilds-engine/internal/config"
	"github.com/jwebster45206/wilds-engine/internal/handlers"
	"github.com/jwebster45206/wilds-engine/internal/journal"
	"github.com/jwebster45206/wilds-engine/internal/logger"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/internal/telemetry"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Wilds Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"redis", cfg.RedisURL != "",
		"journal", cfg.JournalPath)

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
	for _, p := range bundle.Lint() {
		log.Warn("Content problem", "problem", p.String())
	}

	var store storage.Store = storage.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := storage.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			log.Error("Failed to create storage", "error", err)
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := redisStore.WaitForConnection(storageCtx, 60, 2*time.Second); err != nil {
			storageCancel()
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		storageCancel()
		store = redisStore
		log.Info("Storage connection established successfully")
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in memory only")
	}

	var (
		recorder engine.Recorder
		reader   handlers.JournalReader
	)
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
		recorder, reader = j, j
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

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, bundle.Catalog.Len(), log))
	handlers.NewSessionHandler(newRun, store, reader, cfg.Seed, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.Chain(mux, handlers.RecoverPanic(log), handlers.RequestLogger(log)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", "error", err)
	}

	log.Info("Server exited")
}
