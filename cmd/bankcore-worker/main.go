// Command bankcore-worker consumes the notification and record-export
// queues: it mails notifications and appends realized records to Google
// Sheets.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bankcore/internal/cli"
	"bankcore/internal/log"
	"bankcore/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil).WithComponent(log.ComponentWorker)
	logger.Info("Starting bankcore-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker is nothing without the broker.
	res := cli.OpenBackend(context.Background(), logger, cfg, true)
	defer res.Cleanup()

	exporter, err := cli.Exporter(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	handler := worker.NewHandler(cli.DeliveryNotifier(logger, cfg), exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.AMQP.ConsumeNotifications(gctx, handler.HandleNotification)
	})
	g.Go(func() error {
		return res.AMQP.ConsumeRecordExports(gctx, handler.HandleRecordExport)
	})

	logger.Info("Consuming queues",
		"notify_queue", cfg.AMQPNotifyQueue,
		"export_queue", cfg.AMQPExportQueue)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		res.Cleanup()
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
