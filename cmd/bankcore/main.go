// Command bankcore runs one-shot operations against the ledger: account
// management, transfers, recurring definitions and analytics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bankcore/internal/cli"
	"bankcore/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays pipeable.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := cli.OpenBackend(ctx, logger, cfg, false)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()

	analyticsCache, closeCache := cli.OpenAnalyticsCache(ctx, logger, cfg)
	defer closeCache()

	a := newApp(res.Store, res.Publisher(), analyticsCache, cfg, os.Stdout)
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}
