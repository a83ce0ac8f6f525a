// Package ledger declares the storage and delivery ports the transfer core
// depends on. Implementations live in internal/storage, internal/notify and
// internal/amqp.
package ledger

import (
	"context"
	"time"

	"bankcore/internal/core"
)

type (
	// AccountStore holds client accounts and their authoritative balance.
	// Lookups return (nil, nil) when the account does not exist.
	AccountStore interface {
		Create(ctx context.Context, a core.Account) (core.Account, error)
		FindByID(ctx context.Context, id int64) (*core.Account, error)
		FindByAccountNumber(ctx context.Context, number string) (*core.Account, error)
		// AdjustBalance atomically applies amount to the balance: subtracted for
		// Outgoing, added for Incoming. It fails with core.ErrInsufficientBalance
		// if the balance would become negative, core.ErrBalanceOverflow if it
		// would exceed the int64 cent range and core.ErrNotFound if the
		// account is unknown; the balance is unchanged in all three cases.
		AdjustBalance(ctx context.Context, id int64, amount core.Money, dir core.Direction) (core.Account, error)
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context) ([]core.Account, error)
	}

	RecordStore interface {
		Insert(ctx context.Context, r core.TransferRecord) (core.TransferRecord, error)
		FindByID(ctx context.Context, id int64) (*core.TransferRecord, error)
		ExistsByID(ctx context.Context, id int64) (bool, error)
		DeleteByID(ctx context.Context, id int64) error
		Find(ctx context.Context, f RecordFilter) ([]core.TransferRecord, error)
	}

	DefinitionStore interface {
		Insert(ctx context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error)
		Update(ctx context.Context, d core.RecurringDefinition) error
		FindByID(ctx context.Context, id int64) (*core.RecurringDefinition, error)
		ExistsByID(ctx context.Context, id int64) (bool, error)
		DeleteByID(ctx context.Context, id int64) error
		FindByOwner(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error)
		// FindDue returns definitions whose next due date is on or before
		// cutoff, soonest first.
		FindDue(ctx context.Context, cutoff core.Date) ([]core.RecurringDefinition, error)
		Find(ctx context.Context, f DefinitionFilter) ([]core.RecurringDefinition, error)
		// AdvanceDueDate moves the next due date from one date to another.
		// It fails with core.ErrStaleDefinition, changing nothing, if the
		// definition is gone or no longer due on from.
		AdvanceDueDate(ctx context.Context, id int64, from, to core.Date) error
	}

	// Tx exposes the stores bound to a single atomic unit of work.
	Tx interface {
		Accounts() AccountStore
		Records() RecordStore
		Definitions() DefinitionStore
	}

	// Store is the non-transactional view plus a way to open atomic units.
	// WithinTx commits when fn returns nil and rolls back otherwise.
	Store interface {
		Tx
		WithinTx(ctx context.Context, fn func(tx Tx) error) error
		Close() error
	}

	// Notifier delivers a message to an account holder. Delivery is
	// fire-and-forget; callers log errors and move on.
	Notifier interface {
		Notify(ctx context.Context, n Notification) error
	}

	// RecordPublisher announces committed transfer records to downstream
	// consumers.
	RecordPublisher interface {
		PublishRecord(ctx context.Context, r core.TransferRecord) error
	}
)

// Notification is addressed to an account's contact email.
type Notification struct {
	Recipient    string
	Subject      string
	Body         string
	DefinitionID int64
	Amount       core.Money
}

// RecordFilter selects transfer records. Zero values mean "any".
// After is exclusive and Until inclusive.
type RecordFilter struct {
	OwnerID   int64
	Direction core.Direction
	Category  core.Category
	After     time.Time
	Until     time.Time
	Limit     int
	Offset    int
	Newest    bool // newest first; oldest first otherwise
}

// DefinitionFilter selects recurring definitions. Zero values mean "any".
type DefinitionFilter struct {
	OwnerID  int64
	Category core.Category
	DueBy    core.Date // next due date on or before
	Limit    int
}

// Matches reports whether r satisfies the filter, ignoring paging.
func (f RecordFilter) Matches(r core.TransferRecord) bool {
	if f.OwnerID != 0 && r.OwnerID != f.OwnerID {
		return false
	}
	if f.Direction != "" && r.Direction != f.Direction {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if !f.After.IsZero() && !r.RealizedAt.After(f.After) {
		return false
	}
	if !f.Until.IsZero() && r.RealizedAt.After(f.Until) {
		return false
	}
	return true
}

// Matches reports whether d satisfies the filter, ignoring the limit.
func (f DefinitionFilter) Matches(d core.RecurringDefinition) bool {
	if f.OwnerID != 0 && d.OwnerID != f.OwnerID {
		return false
	}
	if f.Category != "" && d.Category != f.Category {
		return false
	}
	if !f.DueBy.IsZero() && !d.NextDueDate.OnOrBefore(f.DueBy) {
		return false
	}
	return true
}
