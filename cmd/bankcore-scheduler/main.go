// Command bankcore-scheduler realizes due recurring transfers once a day.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"bankcore/internal/cli"
	"bankcore/internal/log"
	"bankcore/internal/services"
	"bankcore/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), nil).WithComponent(log.ComponentScheduler)
	logger.Info("Starting bankcore-scheduler")

	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	trigger, err := services.ParseDailyTrigger(cfg.SchedulerRunAt, loc)
	if err != nil {
		logger.Error("Invalid SCHEDULER_RUN_AT", log.FieldError, err)
		os.Exit(1)
	}

	res := cli.OpenBackend(context.Background(), logger, cfg, false)
	defer res.Cleanup()

	// Shares the cache the CLI reads so realized transfers drop stale
	// breakdowns. Only meaningful for redis.
	analyticsCache, closeCache := cli.OpenAnalyticsCache(context.Background(), logger, cfg)
	defer closeCache()
	analytics := services.NewAnalytics(res.Store,
		services.WithAnalyticsCache(analyticsCache),
		services.WithAnalyticsLocation(loc))

	opts := []services.SchedulerOption{
		services.WithLookahead(cfg.SchedulerLookahead),
		services.WithLocation(loc),
		services.WithAnalytics(analytics),
	}
	if p := res.Publisher(); p != nil {
		opts = append(opts, services.WithRecordPublisher(p))
	} else {
		logger.Info("AMQP disabled, realized records will not be exported")
	}

	scheduler := services.NewRecurringScheduler(res.Store,
		services.NewEngine(res.Store),
		cli.Notifier(logger, cfg, res),
		opts...)
	loop := worker.NewSchedulerLoop(scheduler, trigger, cfg.SchedulerRunOnStartup)

	if *once {
		if loop.RunOnce(context.Background()) == nil {
			res.Cleanup()
			os.Exit(1)
		}
		return
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := loop.Stop(ctx); err != nil {
			logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
		}
	})

	if err := loop.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler loop", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring transfer scheduler configured",
		"run_at", trigger.String(),
		"lookahead", cfg.SchedulerLookahead,
		"timezone", loc.String(),
		"backend", cfg.DataBackend)

	cli.WaitForShutdown(ctx, done)
}
