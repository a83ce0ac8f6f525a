package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankcore/internal/log"
	"bankcore/internal/services"
)

// RecurringRunner is the part of services.RecurringScheduler the loop needs.
type RecurringRunner interface {
	Run(ctx context.Context, now time.Time) (*services.RunReport, error)
}

// SchedulerLoop runs the recurring scheduler once a day at the trigger time.
type SchedulerLoop struct {
	runner       RecurringRunner
	trigger      services.DailyTrigger
	runOnStartup bool
	logger       *log.Logger

	now  func() time.Time
	wait func(d time.Duration) <-chan time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSchedulerLoop(runner RecurringRunner, trigger services.DailyTrigger, runOnStartup bool) *SchedulerLoop {
	return &SchedulerLoop{
		runner:       runner,
		trigger:      trigger,
		runOnStartup: runOnStartup,
		logger:       log.Default().WithComponent(log.ComponentScheduler),
		now:          time.Now,
		wait:         time.After,
	}
}

// Start begins the loop. Returns an error if already running.
func (l *SchedulerLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("scheduler loop is already running")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	go l.loop(ctx)

	l.logger.InfoContext(ctx, "Scheduler loop started",
		"run_at", l.trigger.String(),
		"run_on_startup", l.runOnStartup)
	return nil
}

// Stop signals the loop and waits for an in-flight run to finish.
func (l *SchedulerLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	stopCh, doneCh := l.stopCh, l.doneCh
	l.running = false
	l.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		l.logger.InfoContext(ctx, "Scheduler loop stopped gracefully")
		return nil
	case <-ctx.Done():
		l.logger.WarnContext(ctx, "Scheduler loop stop timed out")
		return ctx.Err()
	}
}

func (l *SchedulerLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *SchedulerLoop) loop(ctx context.Context) {
	defer close(l.doneCh)

	if l.runOnStartup {
		l.RunOnce(ctx)
	}

	for {
		next := l.trigger.NextRun(l.now())
		l.logger.InfoContext(ctx, "Next recurring run scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-l.wait(next.Sub(l.now())):
			l.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single scheduler run and logs its report.
func (l *SchedulerLoop) RunOnce(ctx context.Context) *services.RunReport {
	start := l.now()
	report, err := l.runner.Run(ctx, start)
	if err != nil {
		l.logger.ErrorContext(ctx, "Recurring run failed", log.FieldError, err)
		return nil
	}
	if err := report.Err(); err != nil {
		l.logger.WarnContext(ctx, "Recurring run finished with failures",
			log.FieldRunID, report.RunID,
			"failed", report.Failed,
			log.FieldError, err)
	}
	l.logger.InfoContext(ctx, "Recurring run finished",
		log.FieldRunID, report.RunID,
		log.FieldDuration, l.now().Sub(start).Milliseconds())
	return report
}
