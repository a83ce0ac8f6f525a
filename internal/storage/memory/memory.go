// Package memory is an in-process ledger.Store used by the memory backend and
// by tests. All operations are serialized by one mutex; WithinTx holds it
// for the whole unit and restores a snapshot when fn fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

type state struct {
	accounts    map[int64]core.Account
	records     map[int64]core.TransferRecord
	definitions map[int64]core.RecurringDefinition
	nextID      int64
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// Ensure interface conformance
var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			accounts:    make(map[int64]core.Account),
			records:     make(map[int64]core.TransferRecord),
			definitions: make(map[int64]core.RecurringDefinition),
		},
		now: time.Now,
	}
}

// NewWithAccounts seeds the store, assigning IDs to accounts that have none.
func NewWithAccounts(accounts ...core.Account) *Store {
	s := New()
	for _, a := range accounts {
		if _, err := s.st.createAccount(a, s.now()); err != nil {
			panic(fmt.Sprintf("seed account %q: %v", a.AccountNumber, err))
		}
	}
	return s
}

func (s *Store) Accounts() ledger.AccountStore       { return lockedAccounts{s} }
func (s *Store) Records() ledger.RecordStore         { return lockedRecords{s} }
func (s *Store) Definitions() ledger.DefinitionStore { return lockedDefinitions{s} }

func (s *Store) Close() error { return nil }

// WithinTx runs fn with exclusive access. Calling the Store's own
// non-transactional methods from fn deadlocks; use tx instead.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(txView{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) locked(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func (st *state) clone() *state {
	c := &state{
		accounts:    make(map[int64]core.Account, len(st.accounts)),
		records:     make(map[int64]core.TransferRecord, len(st.records)),
		definitions: make(map[int64]core.RecurringDefinition, len(st.definitions)),
		nextID:      st.nextID,
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.records {
		c.records[k] = v
	}
	for k, v := range st.definitions {
		c.definitions[k] = v
	}
	return c
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// accounts

func (st *state) createAccount(a core.Account, now time.Time) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	for _, existing := range st.accounts {
		if existing.AccountNumber == a.AccountNumber {
			return core.Account{}, fmt.Errorf("account number %s already exists", a.AccountNumber)
		}
	}
	if a.ID == 0 {
		a.ID = st.id()
	} else if a.ID > st.nextID {
		st.nextID = a.ID
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	st.accounts[a.ID] = a
	return a, nil
}

func (st *state) findAccount(id int64) *core.Account {
	a, ok := st.accounts[id]
	if !ok {
		return nil
	}
	return &a
}

func (st *state) findAccountByNumber(number string) *core.Account {
	number = strings.TrimSpace(number)
	for _, a := range st.accounts {
		if a.AccountNumber == number {
			return &a
		}
	}
	return nil
}

func (st *state) adjustBalance(id int64, amount core.Money, dir core.Direction) (core.Account, error) {
	if err := amount.Validate(); err != nil {
		return core.Account{}, err
	}
	a, ok := st.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	switch dir {
	case core.Outgoing:
		if a.Balance.LessThan(amount) {
			return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrInsufficientBalance)
		}
		a.Balance = a.Balance.Sub(amount)
	case core.Incoming:
		if !a.Balance.CanAdd(amount) {
			return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrBalanceOverflow)
		}
		a.Balance = a.Balance.Add(amount)
	default:
		return core.Account{}, core.ErrInvalidDirection
	}
	st.accounts[id] = a
	return a, nil
}

func (st *state) deleteAccount(id int64) error {
	if _, ok := st.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	delete(st.accounts, id)
	return nil
}

func (st *state) listAccounts() []core.Account {
	out := make([]core.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// records

func (st *state) insertRecord(r core.TransferRecord) (core.TransferRecord, error) {
	if err := r.Validate(); err != nil {
		return core.TransferRecord{}, err
	}
	r.ID = st.id()
	st.records[r.ID] = r
	return r, nil
}

func (st *state) findRecord(id int64) *core.TransferRecord {
	r, ok := st.records[id]
	if !ok {
		return nil
	}
	return &r
}

func (st *state) deleteRecord(id int64) error {
	if _, ok := st.records[id]; !ok {
		return fmt.Errorf("transfer record %d: %w", id, core.ErrNotFound)
	}
	delete(st.records, id)
	return nil
}

func (st *state) findRecords(f ledger.RecordFilter) []core.TransferRecord {
	var out []core.TransferRecord
	for _, r := range st.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.RealizedAt.Equal(b.RealizedAt) {
			if f.Newest {
				return a.RealizedAt.After(b.RealizedAt)
			}
			return a.RealizedAt.Before(b.RealizedAt)
		}
		if f.Newest {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	return page(out, f.Offset, f.Limit)
}

// definitions

func (st *state) insertDefinition(d core.RecurringDefinition, now time.Time) (core.RecurringDefinition, error) {
	if err := d.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	d.ID = st.id()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	st.definitions[d.ID] = d
	return d, nil
}

func (st *state) updateDefinition(d core.RecurringDefinition) error {
	existing, ok := st.definitions[d.ID]
	if !ok {
		return fmt.Errorf("recurring definition %d: %w", d.ID, core.ErrNotFound)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	d.CreatedAt = existing.CreatedAt
	st.definitions[d.ID] = d
	return nil
}

func (st *state) advanceDefinition(id int64, from, to core.Date) error {
	d, ok := st.definitions[id]
	if !ok || !d.NextDueDate.Equal(from.Time) {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrStaleDefinition)
	}
	d.NextDueDate = to
	st.definitions[id] = d
	return nil
}

func (st *state) findDefinition(id int64) *core.RecurringDefinition {
	d, ok := st.definitions[id]
	if !ok {
		return nil
	}
	return &d
}

func (st *state) deleteDefinition(id int64) error {
	if _, ok := st.definitions[id]; !ok {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	delete(st.definitions, id)
	return nil
}

func (st *state) findDefinitions(f ledger.DefinitionFilter) []core.RecurringDefinition {
	var out []core.RecurringDefinition
	for _, d := range st.definitions {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.NextDueDate.Equal(b.NextDueDate.Time) {
			return a.NextDueDate.Before(b.NextDueDate.Time)
		}
		return a.ID < b.ID
	})
	return page(out, 0, f.Limit)
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
