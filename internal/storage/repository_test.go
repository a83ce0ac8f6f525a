package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bank.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAccount(t *testing.T, repo *SQLiteRepository, number string, cents int64) core.Account {
	t.Helper()
	a, err := repo.Accounts().Create(context.Background(), core.Account{
		AccountNumber: number,
		FullName:      "Holder " + number,
		Email:         number + "@example.com",
		Balance:       core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("create account %s: %v", number, err)
	}
	return a
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	v, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 || dirty {
		t.Fatalf("version=%d dirty=%v, want 1 clean", v, dirty)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("re-running migrations should be a no-op: %v", err)
	}
}

func TestAccountsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "PL-0001", 50000)

	got, err := repo.Accounts().FindByAccountNumber(ctx, "PL-0001")
	if err != nil || got == nil {
		t.Fatalf("FindByAccountNumber: %v, %v", got, err)
	}
	if got.ID != a.ID || got.Balance.Cents != 50000 || got.Email != "PL-0001@example.com" {
		t.Fatalf("unexpected account: %+v", got)
	}

	missing, err := repo.Accounts().FindByID(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("missing account should be (nil, nil), got %v, %v", missing, err)
	}

	if _, err := repo.Accounts().Create(ctx, core.Account{AccountNumber: "PL-0001", FullName: "Dup"}); err == nil {
		t.Fatal("expected unique violation on account number")
	}

	if err := repo.Accounts().Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Accounts().Delete(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestAdjustBalanceGuard(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "PL-0001", 1000)

	tests := []struct {
		name    string
		id      int64
		cents   int64
		dir     core.Direction
		want    int64
		wantErr error
	}{
		{"debit within balance", a.ID, 400, core.Outgoing, 600, nil},
		{"credit", a.ID, 150, core.Incoming, 750, nil},
		{"credit past int64 range", a.ID, math.MaxInt64 - 749, core.Incoming, 0, core.ErrBalanceOverflow},
		{"credit up to int64 range", a.ID, math.MaxInt64 - 750, core.Incoming, math.MaxInt64, nil},
		{"debit back", a.ID, math.MaxInt64 - 750, core.Outgoing, 750, nil},
		{"debit exact balance", a.ID, 750, core.Outgoing, 0, nil},
		{"debit below zero", a.ID, 1, core.Outgoing, 0, core.ErrInsufficientBalance},
		{"unknown account", 999, 1, core.Incoming, 0, core.ErrNotFound},
		{"zero amount", a.ID, 0, core.Incoming, 0, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Accounts().AdjustBalance(ctx, tt.id, core.Money{Cents: tt.cents}, tt.dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got, _ := repo.Accounts().FindByID(ctx, a.ID)
			if got.Balance.Cents != tt.want {
				t.Fatalf("balance = %d, want %d", got.Balance.Cents, tt.want)
			}
		})
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "PL-0001", 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Accounts().AdjustBalance(ctx, a.ID, core.Money{Cents: 100}, core.Outgoing); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("succeeded = %d, want 10", succeeded)
	}
	got, _ := repo.Accounts().FindByID(ctx, a.ID)
	if got.Balance.Cents != 0 {
		t.Fatalf("balance = %d, want 0", got.Balance.Cents)
	}
}

func TestWithinTxRollback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := mustAccount(t, repo, "PL-0001", 1000)
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Accounts().AdjustBalance(ctx, a.ID, core.Money{Cents: 300}, core.Outgoing); err != nil {
			return err
		}
		if _, err := tx.Records().Insert(ctx, core.TransferRecord{
			OwnerID: a.ID, Amount: core.Money{Cents: 300}, RealizedAt: time.Now(),
			Category: core.Bills, Direction: core.Outgoing, Title: "rent",
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := repo.Accounts().FindByID(ctx, a.ID)
	if got.Balance.Cents != 1000 {
		t.Fatalf("balance = %d after rollback, want 1000", got.Balance.Cents)
	}
	recs, _ := repo.Records().Find(ctx, ledger.RecordFilter{OwnerID: a.ID})
	if len(recs) != 0 {
		t.Fatalf("records = %d after rollback, want 0", len(recs))
	}
}

func TestRecordsFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)

	for i, c := range []core.Category{core.Bills, core.Groceries, core.Bills, core.Health} {
		dir := core.Outgoing
		if i == 3 {
			dir = core.Incoming
		}
		if _, err := repo.Records().Insert(ctx, core.TransferRecord{
			OwnerID: 7, Amount: core.Money{Cents: int64(1000 * (i + 1))},
			RealizedAt: base.AddDate(0, 0, 10*i), Category: c, Direction: dir,
			Counterparty: "Shop", Title: "t", CounterpartyAccount: "PL-9",
		}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter ledger.RecordFilter
		want   []int64 // amounts in cents, in order
	}{
		{"owner oldest first", ledger.RecordFilter{OwnerID: 7}, []int64{1000, 2000, 3000, 4000}},
		{"newest with limit", ledger.RecordFilter{OwnerID: 7, Newest: true, Limit: 3}, []int64{4000, 3000, 2000}},
		{"bills only", ledger.RecordFilter{Category: core.Bills}, []int64{1000, 3000}},
		{"incoming only", ledger.RecordFilter{Direction: core.Incoming}, []int64{4000}},
		{"window", ledger.RecordFilter{After: base, Until: base.AddDate(0, 0, 20)}, []int64{2000, 3000}},
		{"offset without limit", ledger.RecordFilter{Offset: 3}, []int64{4000}},
		{"other owner", ledger.RecordFilter{OwnerID: 8}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Records().Find(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Amount.Cents != tt.want[i] {
					t.Errorf("record %d amount = %d, want %d", i, r.Amount.Cents, tt.want[i])
				}
			}
		})
	}

	first, _ := repo.Records().Find(ctx, ledger.RecordFilter{Limit: 1})
	if !first[0].RealizedAt.Equal(base) {
		t.Fatalf("realized_at round trip: got %s, want %s", first[0].RealizedAt, base)
	}
	if err := repo.Records().DeleteByID(ctx, first[0].ID); err != nil {
		t.Fatal(err)
	}
	if ok, _ := repo.Records().ExistsByID(ctx, first[0].ID); ok {
		t.Fatal("record should be gone")
	}
}

func TestDefinitionsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	d, err := repo.Definitions().Insert(ctx, core.RecurringDefinition{
		OwnerID: 1, Amount: core.Money{Cents: 20000}, ReceiverName: "Landlord",
		DestinationAccount: "PL-0002", Category: core.Bills, Title: "rent",
		NextDueDate: core.NewDate(2026, 10, 15),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Definitions().Insert(ctx, core.RecurringDefinition{
		OwnerID: 2, Amount: core.Money{Cents: 5000}, DestinationAccount: "PL-0003",
		Category: core.Health, Title: "gym", NextDueDate: core.NewDate(2026, 11, 1),
	}); err != nil {
		t.Fatal(err)
	}

	due, err := repo.Definitions().FindDue(ctx, core.NewDate(2026, 10, 15))
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != d.ID || !due[0].SameOrder(d) {
		t.Fatalf("unexpected due definitions: %+v", due)
	}

	d.NextDueDate = d.NextDueDate.AddMonths(1)
	if err := repo.Definitions().Update(ctx, d); err != nil {
		t.Fatal(err)
	}
	due, _ = repo.Definitions().FindDue(ctx, core.NewDate(2026, 10, 31))
	if len(due) != 0 {
		t.Fatalf("advanced definition still due: %+v", due)
	}

	mine, _ := repo.Definitions().FindByOwner(ctx, 1)
	if len(mine) != 1 || mine[0].NextDueDate.String() != "2026-11-15" {
		t.Fatalf("unexpected owner definitions: %+v", mine)
	}

	if err := repo.Definitions().DeleteByID(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Definitions().Update(ctx, d); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update of deleted definition: expected ErrNotFound, got %v", err)
	}
}

func TestAdvanceDueDate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	d, err := repo.Definitions().Insert(ctx, core.RecurringDefinition{
		OwnerID: 1, Amount: core.Money{Cents: 20000}, DestinationAccount: "PL-0002",
		Category: core.Bills, Title: "rent", NextDueDate: core.NewDate(2026, 10, 15),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Definitions().AdvanceDueDate(ctx, d.ID, d.NextDueDate, core.NewDate(2026, 11, 15)); err != nil {
		t.Fatal(err)
	}
	// A second advance from the same date finds nothing to move.
	err = repo.Definitions().AdvanceDueDate(ctx, d.ID, d.NextDueDate, core.NewDate(2026, 11, 15))
	if !errors.Is(err, core.ErrStaleDefinition) {
		t.Fatalf("repeated advance: expected ErrStaleDefinition, got %v", err)
	}
	if err := repo.Definitions().AdvanceDueDate(ctx, 999, d.NextDueDate, core.NewDate(2026, 11, 15)); !errors.Is(err, core.ErrStaleDefinition) {
		t.Fatalf("advance of unknown definition: expected ErrStaleDefinition, got %v", err)
	}

	got, _ := repo.Definitions().FindByID(ctx, d.ID)
	if got.NextDueDate.String() != "2026-11-15" || got.Title != "rent" {
		t.Fatalf("unexpected definition after advance: %+v", got)
	}
}
