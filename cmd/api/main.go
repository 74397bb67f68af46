// Command api serves a story's scripts and headless sessions over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/handlers"
	"github.com/jwebster45206/dialogue-engine/internal/logger"
	istorage "github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
)

const sessionTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	m, err := config.LoadManifest(cfg.Manifest)
	if err != nil {
		log.Error("Failed to load manifest", "error", err, "manifest", cfg.Manifest)
		os.Exit(1)
	}

	log.Info("Starting dialogue API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"story", m.Title,
		"assets", m.Assets)

	if cfg.RedisURL == "" {
		log.Error("REDIS_URL is required")
		os.Exit(1)
	}
	storage := istorage.NewRedisStorage(cfg.RedisURL, m.Assets, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := storage.WaitForConnection(storageCtx, 30, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var transcripts *istorage.TranscriptStore
	if cfg.TranscriptDB != "" {
		if transcripts, err = istorage.OpenTranscriptStore(cfg.TranscriptDB, log); err != nil {
			log.Error("Failed to open transcript store", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(storage, log))

	scriptHandler := handlers.NewScriptHandler(storage, sheet.New(nil).Extensions(), log)
	mux.Handle("/v1/scripts", scriptHandler)
	mux.Handle("/v1/scripts/", scriptHandler)

	// Headless runs are bounded here; the event stream below is not.
	sessionHandler := http.TimeoutHandler(
		handlers.NewSessionHandler(m, storage, transcripts, storage.Client(), cfg.PlayerName, log),
		sessionTimeout, `{"error":"session run timed out"}`)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	mux.Handle("/v1/events/sessions/", handlers.NewEventsHandler(storage.Client(), log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.RequestLogger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if transcripts != nil {
		if err := transcripts.Close(); err != nil {
			log.Error("Error closing transcript store", "error", err)
		}
	}
	if err := storage.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
