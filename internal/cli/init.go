// Package cli provides common CLI initialization utilities shared by
// cmd/bankcore, cmd/bankcore-scheduler and cmd/bankcore-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bankcore/internal/backend"
	"bankcore/internal/cache"
	"bankcore/internal/config"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
	"bankcore/internal/notify"
	"bankcore/internal/services"
	"bankcore/internal/sheets"
	"bankcore/internal/sheets/google"
	"bankcore/internal/sheets/memory"
)

// SetupLogger installs a text logger at the given LOG_LEVEL as the process
// default and returns it. A nil out writes to stdout.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = log.ComponentCLI
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
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
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend creates the store and, when configured, the broker client.
// Returns the backend or exits the process on failure.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, requireAMQP bool) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	bcfg.RequireAMQP = requireAMQP

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// OpenAnalyticsCache builds the configured analytics cache. A cache that
// cannot be reached degrades to no caching.
func OpenAnalyticsCache(ctx context.Context, logger *log.Logger, cfg *config.Config) (cache.Cache[services.BreakdownCacheEntry], backend.CleanupFunc) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Invalid cache configuration, caching disabled", log.FieldError, err)
		return cache.Noop[services.BreakdownCacheEntry]{}, func() error { return nil }
	}
	c, cleanup, err := backend.NewFactory(logger).CreateAnalyticsCache(ctx, bcfg.Cache)
	if err != nil {
		logger.Warn("Analytics cache unavailable, caching disabled", log.FieldError, err)
		return cache.Noop[services.BreakdownCacheEntry]{}, cleanup
	}
	return c, cleanup
}

// DeliveryNotifier delivers notifications directly: by mail when SMTP is
// configured, to the log otherwise.
func DeliveryNotifier(logger *log.Logger, cfg *config.Config) ledger.Notifier {
	if cfg.SMTPAddr == "" {
		logger.Info("SMTP not configured, notifications go to the log")
		return notify.NewLogNotifier(logger)
	}
	logger.Info("Delivering notifications by mail", "smtp_addr", cfg.SMTPAddr)
	return notify.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
}

// Notifier queues notifications on the broker when there is one and
// delivers them in process otherwise.
func Notifier(logger *log.Logger, cfg *config.Config, res *backend.BackendResult) ledger.Notifier {
	if n := res.Notifier(); n != nil {
		return n
	}
	return DeliveryNotifier(logger, cfg)
}

// Exporter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-process one otherwise.
func Exporter(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.RecordExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exported records are kept in memory only")
		return memory.New(), nil
	}
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        cfg.Location(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Exporting records to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
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
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
