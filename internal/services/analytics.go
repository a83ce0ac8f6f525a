package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"bankcore/internal/cache"
	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
)

var hundred = decimal.NewFromInt(100)

// CategorizedAmount is one input item of a breakdown.
type CategorizedAmount struct {
	Category core.Category
	Amount   core.Money
}

// percent returns part/total*100 rounded to two places, and zero when total
// is zero.
func percent(part, total core.Money) decimal.Decimal {
	if total.Cents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(total.Cents)).
		Round(2)
}

func sumByCategory(items []CategorizedAmount) (core.Money, map[core.Category]core.Money) {
	var total core.Money
	by := make(map[core.Category]core.Money)
	for _, it := range items {
		total = total.Add(it.Amount)
		by[it.Category] = by[it.Category].Add(it.Amount)
	}
	return total, by
}

func categoryShares(total core.Money, by map[core.Category]core.Money) []core.Share {
	shares := make([]core.Share, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		shares = append(shares, core.Share{
			Label:    c.Label(),
			Category: c,
			Amount:   by[c],
			Percent:  percent(by[c], total),
		})
	}
	return shares
}

// Estimate summarizes items under a single total row labelled label,
// followed by one row per category in core.Categories() order. The total
// row reads 100 percent unless the total is zero, in which case every
// percentage is zero.
func Estimate(label string, items []CategorizedAmount) core.Breakdown {
	total, by := sumByCategory(items)
	return core.Breakdown{
		Summary: []core.Share{{
			Label:   label,
			Amount:  total,
			Percent: percent(total, total),
		}},
		Categories: categoryShares(total, by),
	}
}

// BreakdownCacheEntry is what Analytics stores per owner and kind. Day
// pins the entry to the calendar day it was computed for.
type BreakdownCacheEntry struct {
	Day       string         `json:"day"`
	Breakdown core.Breakdown `json:"breakdown"`
}

const (
	kindHistory    = "history"
	kindProjection = "projection"
)

// Analytics computes category breakdowns over an owner's realized records
// and upcoming recurring definitions.
type Analytics struct {
	store    ledger.Store
	cache    cache.Cache[BreakdownCacheEntry]
	location *time.Location
	logger   *log.Logger
}

// AnalyticsOption customizes Analytics.
type AnalyticsOption func(*Analytics)

func WithAnalyticsCache(c cache.Cache[BreakdownCacheEntry]) AnalyticsOption {
	return func(a *Analytics) {
		if c != nil {
			a.cache = c
		}
	}
}

func WithAnalyticsLocation(loc *time.Location) AnalyticsOption {
	return func(a *Analytics) { a.location = loc }
}

func NewAnalytics(store ledger.Store, opts ...AnalyticsOption) *Analytics {
	a := &Analytics{
		store:    store,
		cache:    cache.Noop[BreakdownCacheEntry]{},
		location: time.Local,
		logger:   log.Default().WithComponent(log.ComponentAnalytics),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func cacheKey(kind string, ownerID int64) string {
	return fmt.Sprintf("%s:%d", kind, ownerID)
}

// cached serves kind for ownerID from the cache when it was computed for
// the same day, and computes and stores it otherwise.
func (a *Analytics) cached(ctx context.Context, kind string, ownerID int64, now time.Time, compute func() (core.Breakdown, error)) (core.Breakdown, error) {
	day := core.DateOf(now, a.location).String()
	key := cacheKey(kind, ownerID)
	if entry, ok := a.cache.Get(ctx, key); ok && entry.Day == day {
		a.logger.DebugContext(ctx, "Analytics cache hit", "key", key)
		return entry.Breakdown, nil
	}
	b, err := compute()
	if err != nil {
		return core.Breakdown{}, err
	}
	a.cache.Set(ctx, key, BreakdownCacheEntry{Day: day, Breakdown: b})
	return b, nil
}

// Invalidate drops cached breakdowns of the given owners.
func (a *Analytics) Invalidate(ctx context.Context, ownerIDs ...int64) {
	for _, id := range ownerIDs {
		a.cache.Delete(ctx, cacheKey(kindHistory, id))
		a.cache.Delete(ctx, cacheKey(kindProjection, id))
	}
}

func (a *Analytics) requireOwner(ctx context.Context, ownerID int64) error {
	owner, err := a.store.Accounts().FindByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("find account %d: %w", ownerID, err)
	}
	if owner == nil {
		return fmt.Errorf("account %d: %w", ownerID, core.ErrNotFound)
	}
	return nil
}

// History breaks down the month of records ending at now.
func (a *Analytics) History(ctx context.Context, ownerID int64, now time.Time) (core.Breakdown, error) {
	return a.cached(ctx, kindHistory, ownerID, now, func() (core.Breakdown, error) {
		return a.HistoryWindow(ctx, ownerID, now.AddDate(0, -1, 0), now)
	})
}

// HistoryWindow breaks down records realized in (start, end]. The leading
// rows give total outgoing and total incoming as shares of their sum; the
// category rows cover outgoing records only.
func (a *Analytics) HistoryWindow(ctx context.Context, ownerID int64, start, end time.Time) (core.Breakdown, error) {
	if err := a.requireOwner(ctx, ownerID); err != nil {
		return core.Breakdown{}, err
	}
	records, err := a.store.Records().Find(ctx, ledger.RecordFilter{OwnerID: ownerID, After: start, Until: end})
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("find transfer records: %w", err)
	}

	var incoming core.Money
	var outgoing []CategorizedAmount
	for _, r := range records {
		if r.Direction == core.Incoming {
			incoming = incoming.Add(r.Amount)
			continue
		}
		outgoing = append(outgoing, CategorizedAmount{Category: r.Category, Amount: r.Amount})
	}

	out, by := sumByCategory(outgoing)
	turnover := out.Add(incoming)
	return core.Breakdown{
		Summary: []core.Share{
			{Label: core.LabelTotalOutgoing, Amount: out, Percent: percent(out, turnover)},
			{Label: core.LabelTotalIncoming, Amount: incoming, Percent: percent(incoming, turnover)},
		},
		Categories: categoryShares(out, by),
	}, nil
}

// Projection breaks down the recurring definitions falling due within a
// month of now.
func (a *Analytics) Projection(ctx context.Context, ownerID int64, now time.Time) (core.Breakdown, error) {
	return a.cached(ctx, kindProjection, ownerID, now, func() (core.Breakdown, error) {
		return a.ProjectionUntil(ctx, ownerID, core.DateOf(now.AddDate(0, 1, 0), a.location))
	})
}

// ProjectionUntil breaks down definitions due on or before until.
func (a *Analytics) ProjectionUntil(ctx context.Context, ownerID int64, until core.Date) (core.Breakdown, error) {
	if err := a.requireOwner(ctx, ownerID); err != nil {
		return core.Breakdown{}, err
	}
	defs, err := a.store.Definitions().Find(ctx, ledger.DefinitionFilter{OwnerID: ownerID, DueBy: until})
	if err != nil {
		return core.Breakdown{}, fmt.Errorf("find recurring definitions: %w", err)
	}
	items := make([]CategorizedAmount, 0, len(defs))
	for _, d := range defs {
		items = append(items, CategorizedAmount{Category: d.Category, Amount: d.Amount})
	}
	return Estimate(core.LabelTotalOutgoing, items), nil
}
