package memory

import (
	"context"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

// txView operates on state directly; the caller holds the store mutex.
type txView struct {
	st  *state
	now func() time.Time
}

func (v txView) Accounts() ledger.AccountStore       { return txAccounts(v) }
func (v txView) Records() ledger.RecordStore         { return txRecords(v) }
func (v txView) Definitions() ledger.DefinitionStore { return txDefinitions(v) }

type txAccounts txView

func (v txAccounts) Create(_ context.Context, a core.Account) (core.Account, error) {
	return v.st.createAccount(a, v.now())
}

func (v txAccounts) FindByID(_ context.Context, id int64) (*core.Account, error) {
	return v.st.findAccount(id), nil
}

func (v txAccounts) FindByAccountNumber(_ context.Context, number string) (*core.Account, error) {
	return v.st.findAccountByNumber(number), nil
}

func (v txAccounts) AdjustBalance(_ context.Context, id int64, amount core.Money, dir core.Direction) (core.Account, error) {
	return v.st.adjustBalance(id, amount, dir)
}

func (v txAccounts) Delete(_ context.Context, id int64) error {
	return v.st.deleteAccount(id)
}

func (v txAccounts) List(_ context.Context) ([]core.Account, error) {
	return v.st.listAccounts(), nil
}

type txRecords txView

func (v txRecords) Insert(_ context.Context, r core.TransferRecord) (core.TransferRecord, error) {
	return v.st.insertRecord(r)
}

func (v txRecords) FindByID(_ context.Context, id int64) (*core.TransferRecord, error) {
	return v.st.findRecord(id), nil
}

func (v txRecords) ExistsByID(_ context.Context, id int64) (bool, error) {
	return v.st.findRecord(id) != nil, nil
}

func (v txRecords) DeleteByID(_ context.Context, id int64) error {
	return v.st.deleteRecord(id)
}

func (v txRecords) Find(_ context.Context, f ledger.RecordFilter) ([]core.TransferRecord, error) {
	return v.st.findRecords(f), nil
}

type txDefinitions txView

func (v txDefinitions) Insert(_ context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	return v.st.insertDefinition(d, v.now())
}

func (v txDefinitions) Update(_ context.Context, d core.RecurringDefinition) error {
	return v.st.updateDefinition(d)
}

func (v txDefinitions) AdvanceDueDate(_ context.Context, id int64, from, to core.Date) error {
	return v.st.advanceDefinition(id, from, to)
}

func (v txDefinitions) FindByID(_ context.Context, id int64) (*core.RecurringDefinition, error) {
	return v.st.findDefinition(id), nil
}

func (v txDefinitions) ExistsByID(_ context.Context, id int64) (bool, error) {
	return v.st.findDefinition(id) != nil, nil
}

func (v txDefinitions) DeleteByID(_ context.Context, id int64) error {
	return v.st.deleteDefinition(id)
}

func (v txDefinitions) FindByOwner(_ context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	return v.st.findDefinitions(ledger.DefinitionFilter{OwnerID: ownerID}), nil
}

func (v txDefinitions) FindDue(_ context.Context, cutoff core.Date) ([]core.RecurringDefinition, error) {
	return v.st.findDefinitions(ledger.DefinitionFilter{DueBy: cutoff}), nil
}

func (v txDefinitions) Find(_ context.Context, f ledger.DefinitionFilter) ([]core.RecurringDefinition, error) {
	return v.st.findDefinitions(f), nil
}

// Locked views take the store mutex for every call.

type lockedAccounts struct{ s *Store }

func (l lockedAccounts) view(st *state) txAccounts { return txAccounts{st: st, now: l.s.now} }

func (l lockedAccounts) Create(ctx context.Context, a core.Account) (out core.Account, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).Create(ctx, a) })
	return out, err
}

func (l lockedAccounts) FindByID(ctx context.Context, id int64) (out *core.Account, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindByID(ctx, id) })
	return out, err
}

func (l lockedAccounts) FindByAccountNumber(ctx context.Context, number string) (out *core.Account, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindByAccountNumber(ctx, number) })
	return out, err
}

func (l lockedAccounts) AdjustBalance(ctx context.Context, id int64, amount core.Money, dir core.Direction) (out core.Account, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).AdjustBalance(ctx, id, amount, dir) })
	return out, err
}

func (l lockedAccounts) Delete(ctx context.Context, id int64) (err error) {
	l.s.locked(func(st *state) { err = l.view(st).Delete(ctx, id) })
	return err
}

func (l lockedAccounts) List(ctx context.Context) (out []core.Account, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).List(ctx) })
	return out, err
}

type lockedRecords struct{ s *Store }

func (l lockedRecords) view(st *state) txRecords { return txRecords{st: st, now: l.s.now} }

func (l lockedRecords) Insert(ctx context.Context, r core.TransferRecord) (out core.TransferRecord, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).Insert(ctx, r) })
	return out, err
}

func (l lockedRecords) FindByID(ctx context.Context, id int64) (out *core.TransferRecord, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindByID(ctx, id) })
	return out, err
}

func (l lockedRecords) ExistsByID(ctx context.Context, id int64) (ok bool, err error) {
	l.s.locked(func(st *state) { ok, err = l.view(st).ExistsByID(ctx, id) })
	return ok, err
}

func (l lockedRecords) DeleteByID(ctx context.Context, id int64) (err error) {
	l.s.locked(func(st *state) { err = l.view(st).DeleteByID(ctx, id) })
	return err
}

func (l lockedRecords) Find(ctx context.Context, f ledger.RecordFilter) (out []core.TransferRecord, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).Find(ctx, f) })
	return out, err
}

type lockedDefinitions struct{ s *Store }

func (l lockedDefinitions) view(st *state) txDefinitions {
	return txDefinitions{st: st, now: l.s.now}
}

func (l lockedDefinitions) Insert(ctx context.Context, d core.RecurringDefinition) (out core.RecurringDefinition, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).Insert(ctx, d) })
	return out, err
}

func (l lockedDefinitions) Update(ctx context.Context, d core.RecurringDefinition) (err error) {
	l.s.locked(func(st *state) { err = l.view(st).Update(ctx, d) })
	return err
}

func (l lockedDefinitions) AdvanceDueDate(ctx context.Context, id int64, from, to core.Date) (err error) {
	l.s.locked(func(st *state) { err = l.view(st).AdvanceDueDate(ctx, id, from, to) })
	return err
}

func (l lockedDefinitions) FindByID(ctx context.Context, id int64) (out *core.RecurringDefinition, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindByID(ctx, id) })
	return out, err
}

func (l lockedDefinitions) ExistsByID(ctx context.Context, id int64) (ok bool, err error) {
	l.s.locked(func(st *state) { ok, err = l.view(st).ExistsByID(ctx, id) })
	return ok, err
}

func (l lockedDefinitions) DeleteByID(ctx context.Context, id int64) (err error) {
	l.s.locked(func(st *state) { err = l.view(st).DeleteByID(ctx, id) })
	return err
}

func (l lockedDefinitions) FindByOwner(ctx context.Context, ownerID int64) (out []core.RecurringDefinition, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindByOwner(ctx, ownerID) })
	return out, err
}

func (l lockedDefinitions) FindDue(ctx context.Context, cutoff core.Date) (out []core.RecurringDefinition, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).FindDue(ctx, cutoff) })
	return out, err
}

func (l lockedDefinitions) Find(ctx context.Context, f ledger.DefinitionFilter) (out []core.RecurringDefinition, err error) {
	l.s.locked(func(st *state) { out, err = l.view(st).Find(ctx, f) })
	return out, err
}
