package services

import (
	"context"
	"fmt"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
)

// DefaultRecentLimit is how many records Recent returns by default.
const DefaultRecentLimit = 3

// TransferService fronts the Engine for request handling. Committed
// records are published and the owners' cached analytics dropped.
type TransferService struct {
	store     ledger.Store
	engine    *Engine
	publisher ledger.RecordPublisher
	analytics *Analytics
	logger    *log.Logger
}

func NewTransferService(store ledger.Store, engine *Engine, publisher ledger.RecordPublisher, analytics *Analytics) *TransferService {
	return &TransferService{
		store:     store,
		engine:    engine,
		publisher: publisher,
		analytics: analytics,
		logger:    log.Default().WithComponent(log.ComponentEngine),
	}
}

func (s *TransferService) Perform(ctx context.Context, req TransferRequest) (TransferResult, error) {
	result, err := s.engine.Execute(ctx, req)
	if err != nil {
		return TransferResult{}, err
	}
	s.committed(ctx, result.Records())
	return result, nil
}

func (s *TransferService) PayInstallment(ctx context.Context, loan core.Loan, at time.Time) (TransferResult, error) {
	result, err := s.engine.PayInstallment(ctx, loan, at)
	if err != nil {
		return TransferResult{}, err
	}
	s.committed(ctx, result.Records())
	return result, nil
}

func (s *TransferService) committed(ctx context.Context, records []core.TransferRecord) {
	for _, r := range records {
		if s.analytics != nil {
			s.analytics.Invalidate(ctx, r.OwnerID)
		}
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishRecord(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transfer record",
				log.FieldRecordID, r.ID,
				log.FieldError, err)
		}
	}
}

func (s *TransferService) Get(ctx context.Context, id int64) (core.TransferRecord, error) {
	r, err := s.store.Records().FindByID(ctx, id)
	if err != nil {
		return core.TransferRecord{}, fmt.Errorf("find transfer record %d: %w", id, err)
	}
	if r == nil {
		return core.TransferRecord{}, fmt.Errorf("transfer record %d: %w", id, core.ErrNotFound)
	}
	return *r, nil
}

// Delete removes a record administratively. Balances are not touched.
func (s *TransferService) Delete(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Records().DeleteByID(ctx, id); err != nil {
		return err
	}
	if s.analytics != nil {
		s.analytics.Invalidate(ctx, r.OwnerID)
	}
	s.logger.InfoContext(ctx, "Transfer record deleted", log.NewFields().WithRecord(r).ToSlice()...)
	return nil
}

func (s *TransferService) List(ctx context.Context, f ledger.RecordFilter) ([]core.TransferRecord, error) {
	return s.store.Records().Find(ctx, f)
}

// Recent returns the owner's n newest records.
func (s *TransferService) Recent(ctx context.Context, ownerID int64, n int) ([]core.TransferRecord, error) {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	return s.store.Records().Find(ctx, ledger.RecordFilter{OwnerID: ownerID, Newest: true, Limit: n})
}
