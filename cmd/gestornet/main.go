package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	_ "time/tzdata"

	_ "go.uber.org/automaxprocs"

	"gestornet/internal/adapters"
	"gestornet/internal/amqp"
	"gestornet/internal/cli"
	apphttp "gestornet/internal/http"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentApp)

	ctx := context.Background()
	m := metrics.New()
	store := cli.OpenStore(ctx, cfg, logger)

	// Ledger events feed the Sheets mirror in gestornet-worker. Without a
	// broker the app runs standalone.
	var (
		notifier   services.WriteNotifier
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, amqp.Config{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
			Queue:    cfg.AMQPQueue,
		}, m, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled",
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldError, err)
		} else {
			amqpClient = client
			notifier = adapters.NewLedgerEventNotifier(client, logger)
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, ledger mirror will rely on reconciliation")
	}

	svc, err := cli.BuildServices(ctx, cfg, store, notifier, m, logger)
	if err != nil {
		logger.Error("Failed to load application state", log.FieldError, err)
		os.Exit(1)
	}
	if err := svc.Writes.Start(ctx); err != nil {
		logger.Error("Failed to start write queue", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		SessionTTL:      cfg.SessionTTL,
		SecureCookies:   strings.HasPrefix(cfg.BaseURL, "https://"),
		ReportCacheTTL:  cfg.ReportCacheTTL,
		ReportCacheSize: cfg.ReportCacheSize,
		TrustedProxies:  cfg.TrustedProxies,
	}, apphttp.Deps{
		Store:   svc.Store,
		Auth:    svc.Auth,
		Clients: svc.Clients,
		Ledger:  svc.Ledger,
		Cashier: svc.Cashier,
		Backup:  svc.Backup,
	}, m, logger)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		// Stop drains pending writes, which may still publish events.
		if err := svc.Writes.Stop(ctx); err != nil {
			logger.Error("Write queue shutdown error", log.FieldError, err)
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

	go func() {
		logger.Info("Starting gestornet server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", cfg.Location().String(),
			"setup_complete", svc.Auth.IsSetupComplete())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
