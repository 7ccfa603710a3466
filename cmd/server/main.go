package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/event"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/queue"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/router"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/session"
	"github.com/stemsi/exstem-practice/internal/storage"
	"github.com/stemsi/exstem-practice/internal/validator"
	"github.com/stemsi/exstem-practice/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("queue", cfg.QueueDriver).
		Str("export", cfg.ExportDriver).
		Msg("Starting ExStem Practice")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Record Store ──────────────────────────────────────────
	backends, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer backends.Close()

	// ─── Export Queue ──────────────────────────────────────────────────
	var exportQueue queue.Queue
	if cfg.QueueDriver == "redis" {
		exportQueue = queue.NewRedis(backends.Redis, config.WorkerKey.ExportAttemptsQueue)
	} else {
		exportQueue = queue.NewMemory()
	}

	// ─── Export Storage ────────────────────────────────────────────────
	var blobs storage.BlobStore
	if cfg.ExportDriver == "minio" {
		blobs, err = storage.NewMinIOStore(ctx, cfg, logger.Component(log, "minio"))
	} else {
		blobs, err = storage.NewFSStore(cfg.ExportDir)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.ExportDriver).Msg("Failed to open export storage")
	}

	// ─── Event Publisher ───────────────────────────────────────────────
	publisher, err := event.NewAMQPPublisher(cfg.AMQPURL, config.WorkerKey.EventsExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	practiceRepo := repository.NewPracticeRepository(backends.KV)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	importService := service.NewImportService(cfg)
	practiceService := service.NewPracticeService(
		cfg, practiceRepo, exportQueue, blobs, publisher, session.Options{}, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Import:  handler.NewImportHandler(importService, cfg.MaxUploadBytes),
		Test:    handler.NewTestHandler(practiceService),
		Session: handler.NewSessionHandler(practiceService),
		WS:      handler.NewWSHandler(practiceService, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(practiceService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	exportWorker := worker.NewExportWorker(practiceRepo, exportQueue, blobs, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		exportWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r, limiter := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	limiter.Stop()

	// 2. Stop session countdowns. Open sessions are not submitted.
	practiceService.Close()

	// 3. Stop the export worker and wait for the queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Export worker did not drain in time")
	}

	if err := publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Event publisher close error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
