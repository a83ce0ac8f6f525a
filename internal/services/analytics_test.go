package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/cache"
	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/storage/memory"
)

func insertRecord(t *testing.T, s ledger.Store, owner int64, cents int64, cat core.Category, dir core.Direction, at time.Time) {
	t.Helper()
	_, err := s.Records().Insert(context.Background(), core.TransferRecord{
		OwnerID:    owner,
		Amount:     core.Money{Cents: cents},
		RealizedAt: at,
		Category:   cat,
		Direction:  dir,
		Title:      "t",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func shareOf(t *testing.T, b core.Breakdown, c core.Category) core.Share {
	t.Helper()
	for _, s := range b.Categories {
		if s.Category == c {
			return s
		}
	}
	t.Fatalf("category %s missing from breakdown", c)
	return core.Share{}
}

func assertPercent(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s percent = %s, want %s", what, got, want)
	}
}

func TestEstimate(t *testing.T) {
	t.Run("shares of total", func(t *testing.T) {
		b := Estimate(core.LabelTotalOutgoing, []CategorizedAmount{
			{core.Bills, core.Money{Cents: 100}},
			{core.Groceries, core.Money{Cents: 100}},
			{core.Health, core.Money{Cents: 100}},
		})
		if len(b.Summary) != 1 || b.Summary[0].Amount.Cents != 300 {
			t.Fatalf("summary = %+v", b.Summary)
		}
		assertPercent(t, "total", b.Summary[0].Percent, "100")
		assertPercent(t, "bills", shareOf(t, b, core.Bills).Percent, "33.33")
		if len(b.Categories) != len(core.Categories()) {
			t.Errorf("categories = %d, want %d", len(b.Categories), len(core.Categories()))
		}
		if b.CategoryTotal() != b.Summary[0].Amount {
			t.Errorf("category total %s != summary %s", b.CategoryTotal(), b.Summary[0].Amount)
		}

		sum := decimal.Zero
		for _, s := range b.Categories {
			sum = sum.Add(s.Percent)
		}
		if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.RequireFromString("0.05")) {
			t.Errorf("percent sum = %s, want about 100", sum)
		}
	})

	t.Run("zero total", func(t *testing.T) {
		b := Estimate(core.LabelTotalOutgoing, nil)
		for _, s := range b.Entries() {
			if !s.Percent.IsZero() || !s.Amount.IsZero() {
				t.Errorf("%s = %s / %s, want zeros", s.Label, s.Amount, s.Percent)
			}
		}
	})

	t.Run("category order is fixed", func(t *testing.T) {
		b := Estimate("x", []CategorizedAmount{{core.Other, core.Money{Cents: 1}}})
		for i, c := range core.Categories() {
			if b.Categories[i].Category != c || b.Categories[i].Label != c.Label() {
				t.Errorf("row %d = %s, want %s", i, b.Categories[i].Category, c)
			}
		}
	})
}

func historyStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0), account(2, "PL-0002", "Jan Kowalski", 0))
	insertRecord(t, store, 1, 300, core.Bills, core.Outgoing, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	insertRecord(t, store, 1, 100, core.Groceries, core.Outgoing, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	insertRecord(t, store, 1, 600, core.Other, core.Incoming, time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC))
	insertRecord(t, store, 1, 50, core.Health, core.Outgoing, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))
	insertRecord(t, store, 2, 999, core.Bills, core.Outgoing, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	return store
}

func TestAnalytics_History(t *testing.T) {
	a := NewAnalytics(historyStore(t), WithAnalyticsLocation(time.UTC))

	b, err := a.History(context.Background(), 1, testNow)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	if len(b.Summary) != 2 {
		t.Fatalf("summary rows = %d, want 2", len(b.Summary))
	}
	out, in := b.Summary[0], b.Summary[1]
	if out.Label != core.LabelTotalOutgoing || out.Amount.Cents != 400 {
		t.Errorf("outgoing row = %+v", out)
	}
	if in.Label != core.LabelTotalIncoming || in.Amount.Cents != 600 {
		t.Errorf("incoming row = %+v", in)
	}
	assertPercent(t, "outgoing", out.Percent, "40")
	assertPercent(t, "incoming", in.Percent, "60")

	assertPercent(t, "bills", shareOf(t, b, core.Bills).Percent, "75")
	assertPercent(t, "groceries", shareOf(t, b, core.Groceries).Percent, "25")
	if h := shareOf(t, b, core.Health); !h.Amount.IsZero() {
		t.Errorf("health outside window counted: %s", h.Amount)
	}
	if o := shareOf(t, b, core.Other); !o.Amount.IsZero() {
		t.Errorf("incoming counted in categories: %s", o.Amount)
	}
	if b.CategoryTotal() != out.Amount {
		t.Errorf("category total %s != outgoing %s", b.CategoryTotal(), out.Amount)
	}
}

func TestAnalytics_HistoryEmpty(t *testing.T) {
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0))
	b, err := NewAnalytics(store).History(context.Background(), 1, testNow)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	for _, s := range b.Entries() {
		if !s.Percent.IsZero() {
			t.Errorf("%s percent = %s, want 0", s.Label, s.Percent)
		}
	}
}

func TestAnalytics_UnknownOwner(t *testing.T) {
	a := NewAnalytics(memory.New())
	if _, err := a.History(context.Background(), 9, testNow); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("History() error = %v, want ErrNotFound", err)
	}
	if _, err := a.Projection(context.Background(), 9, testNow); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Projection() error = %v, want ErrNotFound", err)
	}
}

func TestAnalytics_Projection(t *testing.T) {
	store := memory.NewWithAccounts(account(1, "PL-0001", "Anna Nowak", 0), account(2, "PL-0002", "Jan Kowalski", 0))
	insertDefinition(t, store, definition(1, 1000, "EXT-1", core.NewDate(2024, 3, 15)))
	transport := definition(1, 500, "EXT-2", core.NewDate(2024, 4, 10))
	transport.Category = core.Transport
	insertDefinition(t, store, transport)
	insertDefinition(t, store, definition(1, 2000, "EXT-3", core.NewDate(2024, 4, 11)))
	insertDefinition(t, store, definition(2, 7000, "EXT-4", core.NewDate(2024, 3, 15)))

	b, err := NewAnalytics(store, WithAnalyticsLocation(time.UTC)).Projection(context.Background(), 1, testNow)
	if err != nil {
		t.Fatalf("Projection() error = %v", err)
	}
	if b.Summary[0].Amount.Cents != 1500 {
		t.Errorf("projected total = %d, want 1500", b.Summary[0].Amount.Cents)
	}
	assertPercent(t, "total", b.Summary[0].Percent, "100")
	assertPercent(t, "bills", shareOf(t, b, core.Bills).Percent, "66.67")
	assertPercent(t, "transport", shareOf(t, b, core.Transport).Percent, "33.33")
}

func TestAnalytics_Cache(t *testing.T) {
	store := historyStore(t)
	a := NewAnalytics(store,
		WithAnalyticsLocation(time.UTC),
		WithAnalyticsCache(cache.NewMemory[BreakdownCacheEntry](10, time.Hour)))
	ctx := context.Background()

	first, err := a.History(ctx, 1, testNow)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	insertRecord(t, store, 1, 100, core.Bills, core.Outgoing, testNow.Add(-time.Minute))

	cached, _ := a.History(ctx, 1, testNow.Add(time.Minute))
	if cached.Summary[0].Amount != first.Summary[0].Amount {
		t.Errorf("same-day call recomputed: %s", cached.Summary[0].Amount)
	}

	nextDay, _ := a.History(ctx, 1, testNow.Add(24*time.Hour))
	if nextDay.Summary[0].Amount.Cents != 500 {
		t.Errorf("next-day outgoing = %d, want 500", nextDay.Summary[0].Amount.Cents)
	}

	insertRecord(t, store, 1, 100, core.Bills, core.Outgoing, testNow)
	a.Invalidate(ctx, 1)
	fresh, _ := a.History(ctx, 1, testNow.Add(24*time.Hour))
	if fresh.Summary[0].Amount.Cents != 600 {
		t.Errorf("outgoing after invalidate = %d, want 600", fresh.Summary[0].Amount.Cents)
	}
}
