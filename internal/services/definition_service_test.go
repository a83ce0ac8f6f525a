package services

import (
	"context"
	"errors"
	"testing"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/storage/memory"
)

func TestDefinitionService_Create(t *testing.T) {
	due := core.NewDate(2024, 4, 1)

	tests := []struct {
		name    string
		def     core.RecurringDefinition
		wantErr error
	}{
		{"valid", definition(1, 1000, "PL-0002", due), nil},
		{"duplicate", definition(1, 500, "PL-0002", due), core.ErrDuplicateDefinition},
		{"unknown owner", definition(9, 1000, "PL-0002", due), core.ErrNotFound},
		{"own account", definition(1, 1000, "PL-0001", due), core.ErrSameAccount},
		{"zero amount", definition(1, 0, "PL-0002", due), core.ErrInvalidAmount},
		{"no due date", definition(1, 1000, "PL-0002", core.Date{}), core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0))
			svc := NewDefinitionService(store)
			if _, err := svc.Create(context.Background(), definition(1, 500, "PL-0002", due)); err != nil {
				t.Fatalf("seed Create() error = %v", err)
			}

			got, err := svc.Create(context.Background(), tt.def)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.ID == 0 {
				t.Error("created definition has no ID")
			}

			all, _ := svc.ListByOwner(context.Background(), 1)
			want := 1
			if tt.wantErr == nil {
				want = 2
			}
			if len(all) != want {
				t.Errorf("stored definitions = %d, want %d", len(all), want)
			}
		})
	}
}

func TestDefinitionService_Update(t *testing.T) {
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0))
	svc := NewDefinitionService(store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, definition(1, 500, "PL-0002", core.NewDate(2024, 4, 1)))
	b, _ := svc.Create(ctx, definition(1, 700, "PL-0002", core.NewDate(2024, 4, 1)))

	unchanged := a
	if _, err := svc.Update(ctx, a.ID, unchanged); err != nil {
		t.Errorf("unchanged Update() error = %v", err)
	}

	clash := b
	clash.Amount = a.Amount
	if _, err := svc.Update(ctx, b.ID, clash); !errors.Is(err, core.ErrDuplicateDefinition) {
		t.Errorf("clashing Update() error = %v, want ErrDuplicateDefinition", err)
	}

	moved := b
	moved.Title = "parking"
	moved.OwnerID = 42
	updated, err := svc.Update(ctx, b.ID, moved)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.OwnerID != 1 {
		t.Errorf("OwnerID = %d, want ownership kept", updated.OwnerID)
	}
	stored, _ := svc.Get(ctx, b.ID)
	if stored.Title != "parking" {
		t.Errorf("stored title = %q", stored.Title)
	}

	if _, err := svc.Update(ctx, 999, moved); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}

	toSelf := a
	toSelf.DestinationAccount = "PL-0001"
	if _, err := svc.Update(ctx, a.ID, toSelf); !errors.Is(err, core.ErrSameAccount) {
		t.Errorf("Update(own account) error = %v, want ErrSameAccount", err)
	}
	if stored, _ := svc.Get(ctx, a.ID); stored.DestinationAccount != "PL-0002" {
		t.Errorf("destination after rejected Update = %q, want PL-0002", stored.DestinationAccount)
	}
}

func TestDefinitionService_DeleteAndGet(t *testing.T) {
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0))
	svc := NewDefinitionService(store)
	ctx := context.Background()

	d, _ := svc.Create(ctx, definition(1, 500, "PL-0002", core.NewDate(2024, 4, 1)))
	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, d.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, d.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestDefinitionService_Upcoming(t *testing.T) {
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0), account(2, "PL-0002", "Jan Kowalski", 0))
	svc := NewDefinitionService(store)
	ctx := context.Background()

	for day := 5; day >= 1; day-- {
		if _, err := svc.Create(ctx, definition(1, int64(day*100), "EXT", core.NewDate(2024, 4, day))); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := svc.Create(ctx, definition(2, 100, "EXT", core.NewDate(2024, 3, 1))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Upcoming(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if len(got) != DefaultUpcomingLimit {
		t.Fatalf("Upcoming() = %d, want %d", len(got), DefaultUpcomingLimit)
	}
	for i, d := range got {
		if d.OwnerID != 1 || d.NextDueDate.Day() != i+1 {
			t.Errorf("upcoming[%d] = owner %d due %s", i, d.OwnerID, d.NextDueDate)
		}
	}

	bills, _ := svc.List(ctx, ledger.DefinitionFilter{Category: core.Bills})
	if len(bills) != 6 {
		t.Errorf("List(bills) = %d, want 6", len(bills))
	}
}
