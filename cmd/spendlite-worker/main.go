package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlite/internal/amqp"
	"spendlite/internal/backend"
	"spendlite/internal/cli"
	"spendlite/internal/log"
	"spendlite/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting spendlite-worker")

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	result, err := backend.New(context.Background(), cfg, log.WithComponent(logger, "export-backend"))
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Export backend cleanup failed", "error", err)
			}
		}()
	}
	if result.Appender == nil {
		logger.Warn("No export backend configured - nothing to export", "backend", cfg.ExportBackend)
		return
	}

	workerCfg := worker.DefaultConfig()
	workerCfg.PollInterval = cfg.ExportInterval
	workerCfg.BatchSize = cfg.ExportBatchSize
	exportWorker := worker.NewExportWorker(repo, result.Appender, workerCfg)

	// Events are wake-up signals only; the queue in SQLite is the source
	// of truth, so a worker without AMQP still drains it on the poll tick.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP consumer initialized", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - relying on polling only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := exportWorker.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeEvents(gctx, func(event *amqp.Event) error {
				logger.Debug("Ledger event received", "kind", event.Kind)
				exportWorker.Nudge()
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return exportWorker.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
