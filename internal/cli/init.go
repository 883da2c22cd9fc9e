// Package cli provides common CLI initialization utilities shared by
// cmd/gestornet, cmd/gestornet-worker and cmd/backup-worker.
package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gestornet/internal/backend"
	"gestornet/internal/config"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/services"
	"gestornet/internal/storage"
)

// SetupLogger builds the process logger from cfg and makes it the default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logCfg := log.DefaultConfig()
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		logCfg.Format = cfg.LogFormat
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore opens the configured store or exits the process on failure.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) storage.Store {
	bcfg, err := backend.FromAppConfig(cfg)
	if err == nil {
		var store storage.Store
		store, err = backend.NewFactory(logger).CreateStore(ctx, bcfg)
		if err == nil {
			return store
		}
	}
	logger.Error("Failed to open store",
		log.FieldErrorType, log.ErrorTypeDatabase,
		log.FieldError, err,
		"backend", cfg.DataBackend)
	os.Exit(1)
	return nil
}

// SessionSecret returns the configured signing secret. Without one a random
// secret is used and sessions do not survive a restart.
func SessionSecret(cfg *config.Config, logger *log.Logger) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Error("Failed to generate session secret", log.FieldError, err)
		os.Exit(1)
	}
	logger.Warn("SESSION_SECRET not set, using a random secret; sessions end on restart")
	return hex.EncodeToString(buf)
}

// Services is the wired application core.
type Services struct {
	Store   storage.Store
	Writes  *services.WriteQueue
	Auth    *services.AuthManager
	Clients *services.ClientRegistry
	Ledger  *services.TransactionLedger
	Cashier *services.Cashier
	Backup  *services.BackupService
}

// BuildServices wires the services over store and loads their state
// concurrently. notifier may be nil. The write queue is returned stopped.
func BuildServices(ctx context.Context, cfg *config.Config, store storage.Store, notifier services.WriteNotifier, m *metrics.Metrics, logger *log.Logger) (*Services, error) {
	qcfg := services.DefaultWriteQueueConfig()
	if cfg.WriteQueueSize > 0 {
		qcfg.Buffer = cfg.WriteQueueSize
	}
	writes := services.NewWriteQueue(store, notifier, m, logger, qcfg)

	tokens := services.NewSessionTokens(SessionSecret(cfg, logger), cfg.SessionTTL)
	auth := services.NewAuthManager(writes, tokens, logger)
	clients := services.NewClientRegistry(writes, logger)
	ledger := services.NewTransactionLedger(writes, cfg.Location(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return auth.Load(gctx, store) })
	g.Go(func() error { return clients.Load(gctx, store) })
	g.Go(func() error { return ledger.Load(gctx, store) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	return &Services{
		Store:   store,
		Writes:  writes,
		Auth:    auth,
		Clients: clients,
		Ledger:  ledger,
		Cashier: services.NewCashier(clients, ledger, m, logger),
		Backup:  services.NewBackupService(store, writes, auth, clients, ledger, logger),
	}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and done closes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
