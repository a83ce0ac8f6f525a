package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
	"bankcore/internal/notify"
)

// OutcomeKind classifies what a run did with one definition.
type OutcomeKind string

const (
	OutcomeRealized OutcomeKind = "realized"
	OutcomeNotified OutcomeKind = "notified"
	OutcomeRemoved  OutcomeKind = "removed"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the result of processing one due definition.
type Outcome struct {
	DefinitionID int64
	OwnerID      int64
	Kind         OutcomeKind
	NextDueDate  core.Date // set when realized
	Records      []core.TransferRecord
	Err          error // set when failed
}

// RunReport summarizes one scheduler run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Cutoff    core.Date
	Realized  int
	Notified  int
	Removed   int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
}

func (r *RunReport) add(o Outcome) {
	switch o.Kind {
	case OutcomeRealized:
		r.Realized++
	case OutcomeNotified:
		r.Notified++
	case OutcomeRemoved:
		r.Removed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Err joins the errors of failed outcomes, or returns nil.
func (r *RunReport) Err() error {
	var result *multierror.Error
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeFailed {
			result = multierror.Append(result, fmt.Errorf("definition %d: %w", o.DefinitionID, o.Err))
		}
	}
	return result.ErrorOrNil()
}

// RecurringScheduler realizes due recurring definitions. Every definition
// is its own atomic unit; one failure never affects the others.
type RecurringScheduler struct {
	store     ledger.Store
	engine    *Engine
	notifier  ledger.Notifier
	publisher ledger.RecordPublisher
	analytics *Analytics
	lookahead time.Duration
	location  *time.Location
	logger    *log.Logger
}

// SchedulerOption customizes a RecurringScheduler.
type SchedulerOption func(*RecurringScheduler)

func WithLookahead(d time.Duration) SchedulerOption {
	return func(s *RecurringScheduler) { s.lookahead = d }
}

// WithLocation sets the zone calendar dates are observed in.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *RecurringScheduler) { s.location = loc }
}

func WithRecordPublisher(p ledger.RecordPublisher) SchedulerOption {
	return func(s *RecurringScheduler) { s.publisher = p }
}

// WithAnalytics drops cached breakdowns of owners whose records change.
func WithAnalytics(a *Analytics) SchedulerOption {
	return func(s *RecurringScheduler) { s.analytics = a }
}

func NewRecurringScheduler(store ledger.Store, engine *Engine, notifier ledger.Notifier, opts ...SchedulerOption) *RecurringScheduler {
	s := &RecurringScheduler{
		store:     store,
		engine:    engine,
		notifier:  notifier,
		lookahead: DefaultDueLookahead,
		location:  time.Local,
		logger:    log.Default().WithComponent(log.ComponentScheduler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every definition due on or before the cutoff derived from
// now. It fails only when the due definitions cannot be listed.
func (s *RecurringScheduler) Run(ctx context.Context, now time.Time) (*RunReport, error) {
	if s.store == nil || s.engine == nil {
		return nil, fmt.Errorf("scheduler not properly initialized")
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
		Cutoff:    DueCutoff(now, s.lookahead, s.location),
	}

	due, err := s.store.Definitions().FindDue(ctx, report.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get due recurring definitions: %w", err)
	}

	s.logger.InfoContext(ctx, "Processing recurring definitions",
		log.FieldRunID, report.RunID,
		"due", len(due),
		"cutoff", report.Cutoff.String())

	for _, def := range due {
		o := s.process(ctx, def, now, report.Cutoff)
		report.add(o)

		fields := log.NewFields().
			WithDefinition(def).
			WithError(o.Err)
		fields[log.FieldRunID] = report.RunID
		fields[log.FieldOutcome] = string(o.Kind)
		if o.Kind == OutcomeFailed {
			s.logger.ErrorContext(ctx, "Recurring definition failed", fields.ToSlice()...)
		} else {
			s.logger.InfoContext(ctx, "Recurring definition processed", fields.ToSlice()...)
		}
	}

	s.logger.InfoContext(ctx, "Recurring definition processing complete",
		log.FieldRunID, report.RunID,
		"realized", report.Realized,
		"notified", report.Notified,
		"removed", report.Removed,
		"skipped", report.Skipped,
		"failed", report.Failed)

	return report, nil
}

// process realizes def. The listed row may be out of date by the time it
// is charged: another run may have realized it or its owner may have edited
// it. The stored row is then reloaded and charged instead, or skipped when
// it is no longer due.
func (s *RecurringScheduler) process(ctx context.Context, def core.RecurringDefinition, now time.Time, cutoff core.Date) Outcome {
	o := s.realize(ctx, def, now)
	if o.Kind != OutcomeFailed || !errors.Is(o.Err, core.ErrStaleDefinition) {
		return o
	}

	fresh, err := s.store.Definitions().FindByID(ctx, def.ID)
	if err != nil {
		return s.failed(o, fmt.Errorf("reload definition: %w", err))
	}
	if fresh == nil || !fresh.NextDueDate.OnOrBefore(cutoff) {
		return Outcome{DefinitionID: def.ID, OwnerID: def.OwnerID, Kind: OutcomeSkipped}
	}
	return s.realize(ctx, *fresh, now)
}

func (s *RecurringScheduler) realize(ctx context.Context, def core.RecurringDefinition, now time.Time) Outcome {
	o := Outcome{DefinitionID: def.ID, OwnerID: def.OwnerID}

	owner, err := s.store.Accounts().FindByID(ctx, def.OwnerID)
	if err != nil {
		return s.failed(o, fmt.Errorf("find owner: %w", err))
	}
	if owner == nil {
		return s.remove(ctx, o)
	}
	if owner.Balance.LessThan(def.Amount) {
		return s.notify(ctx, o, *owner, def)
	}

	next := NextDueDate(def.NextDueDate)
	result, err := s.engine.RealizeDefinition(ctx, def, now, func(tx ledger.Tx) error {
		stored, err := tx.Definitions().FindByID(ctx, def.ID)
		if err != nil {
			return fmt.Errorf("find definition: %w", err)
		}
		if stored == nil || stored.OwnerID != def.OwnerID || !stored.SameOrder(def) {
			return fmt.Errorf("definition %d: %w", def.ID, core.ErrStaleDefinition)
		}
		return tx.Definitions().AdvanceDueDate(ctx, def.ID, def.NextDueDate, next)
	})
	switch {
	case errors.Is(err, core.ErrInsufficientBalance):
		// The balance moved between the check and the debit.
		return s.notify(ctx, o, *owner, def)
	case errors.Is(err, core.ErrSenderUnavailable):
		return s.remove(ctx, o)
	case err != nil:
		return s.failed(o, err)
	}

	o.Kind = OutcomeRealized
	o.NextDueDate = next
	o.Records = result.Records()
	s.publish(ctx, o.Records)
	return o
}

func (s *RecurringScheduler) remove(ctx context.Context, o Outcome) Outcome {
	if err := s.store.Definitions().DeleteByID(ctx, o.DefinitionID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return s.failed(o, fmt.Errorf("remove orphaned definition: %w", err))
	}
	o.Kind = OutcomeRemoved
	return o
}

func (s *RecurringScheduler) notify(ctx context.Context, o Outcome, owner core.Account, def core.RecurringDefinition) Outcome {
	o.Kind = OutcomeNotified
	if s.notifier == nil {
		return o
	}
	if err := s.notifier.Notify(ctx, notify.InsufficientBalance(owner, def)); err != nil {
		s.logger.WarnContext(ctx, "Failed to send insufficient balance notification",
			log.FieldDefinitionID, def.ID,
			log.FieldOwnerID, owner.ID,
			log.FieldError, err)
	}
	return o
}

func (s *RecurringScheduler) failed(o Outcome, err error) Outcome {
	o.Kind = OutcomeFailed
	o.Err = err
	return o
}

func (s *RecurringScheduler) publish(ctx context.Context, records []core.TransferRecord) {
	if s.analytics != nil {
		for _, r := range records {
			s.analytics.Invalidate(ctx, r.OwnerID)
		}
	}
	if s.publisher == nil {
		return
	}
	for _, r := range records {
		if err := s.publisher.PublishRecord(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transfer record",
				log.FieldRecordID, r.ID,
				log.FieldError, err)
		}
	}
}
