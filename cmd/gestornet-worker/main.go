package main

import (
	"context"
	"errors"
	"os"
	_ "time/tzdata"

	_ "go.uber.org/automaxprocs"

	"gestornet/internal/adapters"
	"gestornet/internal/amqp"
	"gestornet/internal/backend"
	"gestornet/internal/cli"
	"gestornet/internal/log"
	"gestornet/internal/worker"
)

// gestornet-worker mirrors the ledger into Google Sheets. Events from the
// app are applied as they arrive; a periodic reconcile against the store
// catches anything missed while the broker or Sheets was down.
func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting gestornet-worker")

	ctx := context.Background()
	store := cli.OpenStore(ctx, cfg, logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	sheet, err := backend.NewFactory(logger).CreateMirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err,
			"mirror", cfg.MirrorBackend)
		os.Exit(1)
	}

	mirror := worker.NewLedgerMirror(sheet, adapters.NewStoreLedger(store), cfg.MirrorReconcileInterval, nil, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(ctx, amqp.Config{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		}, nil, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, mirroring by reconciliation only",
			"interval", cfg.MirrorReconcileInterval)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := mirror.Stop(ctx); err != nil {
			logger.Error("Ledger mirror shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("Store close error", log.FieldError, err)
		}
	})

	if err := mirror.Start(shutdownCtx); err != nil {
		logger.Error("Failed to start ledger mirror", log.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(shutdownCtx, mirror.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption stopped", log.FieldError, err)
			}
		}()
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("gestornet-worker stopped")
}
