package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// Ensure interface conformance
var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers; WithinTx holds it for the whole unit.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) view(q *Queries) queryView { return queryView{q: q, now: r.now} }

func (r *SQLiteRepository) Accounts() ledger.AccountStore       { return r.view(r.queries).Accounts() }
func (r *SQLiteRepository) Records() ledger.RecordStore         { return r.view(r.queries).Records() }
func (r *SQLiteRepository) Definitions() ledger.DefinitionStore { return r.view(r.queries).Definitions() }

// WithinTx runs fn inside a database transaction. The pool has a single
// connection, so fn must use tx rather than the repository's own methods.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.view(r.queries.WithTx(tx))); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type queryView struct {
	q   *Queries
	now func() time.Time
}

func (v queryView) Accounts() ledger.AccountStore       { return accountRepo(v) }
func (v queryView) Records() ledger.RecordStore         { return recordRepo(v) }
func (v queryView) Definitions() ledger.DefinitionStore { return definitionRepo(v) }

// accounts

type accountRepo queryView

func (a accountRepo) Create(ctx context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = a.now()
	}
	row, err := a.q.CreateAccount(ctx, CreateAccountParams{
		ID:            acc.ID,
		AccountNumber: acc.AccountNumber,
		FullName:      acc.FullName,
		Email:         acc.Email,
		BalanceCents:  acc.Balance.Cents,
		CreatedAt:     formatTime(acc.CreatedAt),
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account %s: %w", acc.AccountNumber, err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "id", row.ID, "account_number", row.AccountNumber)
	return toAccount(row)
}

func (a accountRepo) FindByID(ctx context.Context, id int64) (*core.Account, error) {
	row, err := a.q.GetAccount(ctx, id)
	return optional(row, err, toAccount)
}

func (a accountRepo) FindByAccountNumber(ctx context.Context, number string) (*core.Account, error) {
	row, err := a.q.GetAccountByNumber(ctx, number)
	return optional(row, err, toAccount)
}

func (a accountRepo) AdjustBalance(ctx context.Context, id int64, amount core.Money, dir core.Direction) (core.Account, error) {
	if err := amount.Validate(); err != nil {
		return core.Account{}, err
	}
	delta := amount.Cents
	switch dir {
	case core.Outgoing:
		delta = -delta
	case core.Incoming:
	default:
		return core.Account{}, core.ErrInvalidDirection
	}

	row, err := a.q.AdjustAccountBalance(ctx, id, delta)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the account is gone or the guard rejected the update.
		if _, lookupErr := a.q.GetAccount(ctx, id); errors.Is(lookupErr, sql.ErrNoRows) {
			return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
		} else if lookupErr != nil {
			return core.Account{}, fmt.Errorf("get account %d: %w", id, lookupErr)
		}
		if delta > 0 {
			return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrBalanceOverflow)
		}
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrInsufficientBalance)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("adjust balance of account %d: %w", id, err)
	}
	return toAccount(row)
}

func (a accountRepo) Delete(ctx context.Context, id int64) error {
	n, err := a.q.DeleteAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (a accountRepo) List(ctx context.Context) ([]core.Account, error) {
	rows, err := a.q.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return convertAll(rows, toAccount)
}

// transfer records

type recordRepo queryView

func (rr recordRepo) Insert(ctx context.Context, rec core.TransferRecord) (core.TransferRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.TransferRecord{}, err
	}
	row, err := rr.q.CreateTransferRecord(ctx, CreateTransferRecordParams{
		OwnerID:             rec.OwnerID,
		AmountCents:         rec.Amount.Cents,
		RealizedAt:          formatTime(rec.RealizedAt),
		Category:            string(rec.Category),
		Direction:           string(rec.Direction),
		Counterparty:        rec.Counterparty,
		Title:               rec.Title,
		CounterpartyAccount: rec.CounterpartyAccount,
	})
	if err != nil {
		return core.TransferRecord{}, fmt.Errorf("create transfer record: %w", err)
	}
	return toRecord(row)
}

func (rr recordRepo) FindByID(ctx context.Context, id int64) (*core.TransferRecord, error) {
	row, err := rr.q.GetTransferRecord(ctx, id)
	return optional(row, err, toRecord)
}

func (rr recordRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	rec, err := rr.FindByID(ctx, id)
	return rec != nil, err
}

func (rr recordRepo) DeleteByID(ctx context.Context, id int64) error {
	n, err := rr.q.DeleteTransferRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transfer record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transfer record %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (rr recordRepo) Find(ctx context.Context, f ledger.RecordFilter) ([]core.TransferRecord, error) {
	arg := FindTransferRecordsParams{
		OwnerID:   f.OwnerID,
		Direction: string(f.Direction),
		Category:  string(f.Category),
		Limit:     sqlLimit(f.Limit),
		Offset:    int64(f.Offset),
		Newest:    f.Newest,
	}
	if !f.After.IsZero() {
		arg.After = formatTime(f.After)
	}
	if !f.Until.IsZero() {
		arg.Until = formatTime(f.Until)
	}
	rows, err := rr.q.FindTransferRecords(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("find transfer records: %w", err)
	}
	return convertAll(rows, toRecord)
}

// recurring definitions

type definitionRepo queryView

func (dr definitionRepo) Insert(ctx context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := d.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = dr.now()
	}
	row, err := dr.q.CreateRecurringDefinition(ctx, CreateRecurringDefinitionParams{
		OwnerID:            d.OwnerID,
		AmountCents:        d.Amount.Cents,
		ReceiverName:       d.ReceiverName,
		DestinationAccount: d.DestinationAccount,
		Category:           string(d.Category),
		Title:              d.Title,
		NextDueDate:        d.NextDueDate.String(),
		CreatedAt:          formatTime(d.CreatedAt),
	})
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create recurring definition: %w", err)
	}
	slog.InfoContext(ctx, "Recurring definition saved to SQLite",
		"id", row.ID,
		"owner_id", row.OwnerID,
		"amount_cents", row.AmountCents,
		"next_due_date", row.NextDueDate)
	return toDefinition(row)
}

func (dr definitionRepo) Update(ctx context.Context, d core.RecurringDefinition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	n, err := dr.q.UpdateRecurringDefinition(ctx, UpdateRecurringDefinitionParams{
		ID:                 d.ID,
		OwnerID:            d.OwnerID,
		AmountCents:        d.Amount.Cents,
		ReceiverName:       d.ReceiverName,
		DestinationAccount: d.DestinationAccount,
		Category:           string(d.Category),
		Title:              d.Title,
		NextDueDate:        d.NextDueDate.String(),
	})
	if err != nil {
		return fmt.Errorf("update recurring definition %d: %w", d.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("recurring definition %d: %w", d.ID, core.ErrNotFound)
	}
	return nil
}

func (dr definitionRepo) AdvanceDueDate(ctx context.Context, id int64, from, to core.Date) error {
	n, err := dr.q.AdvanceRecurringDefinition(ctx, id, from.String(), to.String())
	if err != nil {
		return fmt.Errorf("advance recurring definition %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrStaleDefinition)
	}
	return nil
}

func (dr definitionRepo) FindByID(ctx context.Context, id int64) (*core.RecurringDefinition, error) {
	row, err := dr.q.GetRecurringDefinition(ctx, id)
	return optional(row, err, toDefinition)
}

func (dr definitionRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	d, err := dr.FindByID(ctx, id)
	return d != nil, err
}

func (dr definitionRepo) DeleteByID(ctx context.Context, id int64) error {
	n, err := dr.q.DeleteRecurringDefinition(ctx, id)
	if err != nil {
		return fmt.Errorf("delete recurring definition %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("recurring definition %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (dr definitionRepo) FindByOwner(ctx context.Context, ownerID int64) ([]core.RecurringDefinition, error) {
	return dr.Find(ctx, ledger.DefinitionFilter{OwnerID: ownerID})
}

func (dr definitionRepo) FindDue(ctx context.Context, cutoff core.Date) ([]core.RecurringDefinition, error) {
	if err := cutoff.Validate(); err != nil {
		return nil, err
	}
	return dr.Find(ctx, ledger.DefinitionFilter{DueBy: cutoff})
}

func (dr definitionRepo) Find(ctx context.Context, f ledger.DefinitionFilter) ([]core.RecurringDefinition, error) {
	rows, err := dr.q.FindRecurringDefinitions(ctx, FindRecurringDefinitionsParams{
		OwnerID:  f.OwnerID,
		Category: string(f.Category),
		DueBy:    f.DueBy.String(),
		Limit:    sqlLimit(f.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("find recurring definitions: %w", err)
	}
	return convertAll(rows, toDefinition)
}

// conversions

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

func sqlLimit(limit int) int64 {
	if limit <= 0 {
		return -1
	}
	return int64(limit)
}

// optional maps sql.ErrNoRows to (nil, nil) and converts a found row.
func optional[R, T any](row R, err error, conv func(R) (T, error)) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := conv(row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func convertAll[R, T any](rows []R, conv func(R) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := conv(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toAccount(row Account) (core.Account, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %d created_at: %w", row.ID, err)
	}
	return core.Account{
		ID:            row.ID,
		AccountNumber: row.AccountNumber,
		FullName:      row.FullName,
		Email:         row.Email,
		Balance:       core.Money{Cents: row.BalanceCents},
		CreatedAt:     created,
	}, nil
}

func toRecord(row TransferRecord) (core.TransferRecord, error) {
	realized, err := parseTime(row.RealizedAt)
	if err != nil {
		return core.TransferRecord{}, fmt.Errorf("transfer record %d realized_at: %w", row.ID, err)
	}
	return core.TransferRecord{
		ID:                  row.ID,
		OwnerID:             row.OwnerID,
		Amount:              core.Money{Cents: row.AmountCents},
		RealizedAt:          realized,
		Category:            core.Category(row.Category),
		Direction:           core.Direction(row.Direction),
		Counterparty:        row.Counterparty,
		Title:               row.Title,
		CounterpartyAccount: row.CounterpartyAccount,
	}, nil
}

func toDefinition(row RecurringDefinition) (core.RecurringDefinition, error) {
	due, err := time.Parse(dateLayout, row.NextDueDate)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %d next_due_date: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %d created_at: %w", row.ID, err)
	}
	return core.RecurringDefinition{
		ID:                 row.ID,
		OwnerID:            row.OwnerID,
		Amount:             core.Money{Cents: row.AmountCents},
		ReceiverName:       row.ReceiverName,
		DestinationAccount: row.DestinationAccount,
		Category:           core.Category(row.Category),
		Title:              row.Title,
		NextDueDate:        core.Date{Time: due},
		CreatedAt:          created,
	}, nil
}
