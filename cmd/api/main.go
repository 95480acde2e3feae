package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/api/handlers"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/app"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/jobs"
	"github.com/dvloznov/receipt-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

const queueBufferSize = 100

func main() {
	cfg := config.Load()

	log, err := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log = logger.New()
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svc.Close()

	// Check the header once at startup so a misconfigured sheet fails fast.
	if err := svc.Writer.EnsureHeader(ctx); err != nil {
		log.Fatal().Err(err).Msg("Worksheet header check failed")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(queueBufferSize, jobStore, inmemory.WithWorkers(cfg.QueueWorkers))

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", cfg.QueueWorkers).Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobs.NewScanHandler(svc.Batch, jobStore)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	checks := map[string]handlers.HealthChecker{}
	for name, check := range svc.Checks {
		checks[name] = check
	}

	h := &handlers.Handlers{
		Batches:    handlers.NewBatchesHandler(jobQueue, log),
		Jobs:       handlers.NewJobsHandler(jobStore, svc.Batch, log),
		Categories: handlers.NewCategoriesHandler(svc.Taxonomy),
		Analytics:  handlers.NewAnalyticsHandler(svc.Loader, svc.Budgets, svc.Taxonomy, log),
		Health:     handlers.Health(checks),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(h.Routes(), log),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.DataBackend).
			Str("model", cfg.GeminiModel).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight scans finish before cancelling the workers.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
