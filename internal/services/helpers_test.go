package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

var testNow = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func account(id int64, number, name string, cents int64) core.Account {
	return core.Account{
		ID:            id,
		AccountNumber: number,
		FullName:      name,
		Email:         number + "@example.com",
		Balance:       core.Money{Cents: cents},
	}
}

func definition(owner int64, cents int64, dest string, due core.Date) core.RecurringDefinition {
	return core.RecurringDefinition{
		OwnerID:            owner,
		Amount:             core.Money{Cents: cents},
		ReceiverName:       "Landlord",
		DestinationAccount: dest,
		Category:           core.Bills,
		Title:              "rent",
		NextDueDate:        due,
	}
}

func balanceOf(t *testing.T, s ledger.Store, id int64) int64 {
	t.Helper()
	a, err := s.Accounts().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%d) error = %v", id, err)
	}
	if a == nil {
		t.Fatalf("account %d not found", id)
	}
	return a.Balance.Cents
}

// recordingPublisher keeps published records.
type recordingPublisher struct {
	mu      sync.Mutex
	records []core.TransferRecord
	err     error
}

func (p *recordingPublisher) PublishRecord(_ context.Context, r core.TransferRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, r)
	return nil
}

func (p *recordingPublisher) published() []core.TransferRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.TransferRecord(nil), p.records...)
}
