package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker, nil)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", log.FieldError, err)
		}
	}()

	processor := services.NewAutoCloseProcessor(result.Repository, result.Ledger.Closures, services.AutoCloseConfig{
		Interval:    cfg.AutoCloseInterval,
		GraceDays:   cfg.AutoCloseGraceDays,
		Concurrency: cfg.AutoCloseConcurrency,
	}, nil)

	shutdownCtx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Failed to stop auto-close processor", log.FieldError, err)
		}
	})
	go func() {
		<-shutdownCtx.Done()
		cancel()
	}()

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start auto-close processor", log.FieldError, err)
		os.Exit(1)
	}

	// Audit consumption needs a broker; without one only auto-close runs.
	if result.AMQP != nil {
		audit := worker.NewAuditWorker(result.Repository)
		go func() {
			if err := result.AMQP.ConsumeLedgerEvents(ctx, audit.HandleEvent); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Ledger event consumption failed", log.FieldError, err)
				}
			}
		}()
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Skipping audit consumption - no AMQP client available")
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("ledger-worker stopped")
}
