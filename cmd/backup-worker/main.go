package main

import (
	"context"
	"flag"
	"os"
	"time"
	_ "time/tzdata"

	_ "go.uber.org/automaxprocs"

	"gestornet/internal/cli"
	"gestornet/internal/log"
	"gestornet/internal/services"
)

func main() {
	once := flag.Bool("once", false, "write one snapshot and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentBackup)

	ctx := context.Background()
	store := cli.OpenStore(ctx, cfg, logger)
	defer store.Close()

	processor, err := services.NewSnapshotProcessor(store, services.SnapshotConfig{
		Dir:           cfg.BackupDir,
		Frequency:     services.Frequency(cfg.BackupFrequency),
		Retain:        cfg.BackupRetain,
		CheckInterval: cfg.BackupCheckInterval,
	}, nil, logger)
	if err != nil {
		logger.Error("Failed to create snapshot processor", log.FieldError, err)
		os.Exit(1)
	}

	if *once {
		path, err := processor.Snapshot(ctx, time.Now())
		if err != nil {
			logger.Error("Snapshot failed", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Snapshot written", "path", path)
		return
	}

	logger.Info("Starting backup-worker",
		"dir", cfg.BackupDir,
		"frequency", cfg.BackupFrequency,
		"retain", cfg.BackupRetain,
		"check_interval", cfg.BackupCheckInterval)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Snapshot processor shutdown error", log.FieldError, err)
		}
	})

	if err := processor.Start(shutdownCtx); err != nil {
		logger.Error("Failed to start snapshot processor", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("backup-worker stopped")
}
