package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// accounts

const accountColumns = `id, account_number, full_name, email, balance_cents, created_at`

func scanAccount(row scanner) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.AccountNumber, &a.FullName, &a.Email, &a.BalanceCents, &a.CreatedAt)
	return a, err
}

const createAccount = `
INSERT INTO accounts (id, account_number, full_name, email, balance_cents, created_at)
VALUES (NULLIF(?1, 0), ?2, ?3, ?4, ?5, ?6)
RETURNING ` + accountColumns

type CreateAccountParams struct {
	ID            int64
	AccountNumber string
	FullName      string
	Email         string
	BalanceCents  int64
	CreatedAt     string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount,
		arg.ID, arg.AccountNumber, arg.FullName, arg.Email, arg.BalanceCents, arg.CreatedAt)
	return scanAccount(row)
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?1`

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const getAccountByNumber = `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = ?1`

func (q *Queries) GetAccountByNumber(ctx context.Context, number string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByNumber, number))
}

// The guard in the WHERE clause makes check-and-apply a single statement.
// It is written so that neither side of the comparison can overflow.
const adjustAccountBalance = `
UPDATE accounts SET balance_cents = balance_cents + ?2
WHERE id = ?1 AND CASE
    WHEN ?2 >= 0 THEN balance_cents <= 9223372036854775807 - ?2
    ELSE balance_cents >= -?2
END
RETURNING ` + accountColumns

func (q *Queries) AdjustAccountBalance(ctx context.Context, id, deltaCents int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, adjustAccountBalance, id, deltaCents))
}

const deleteAccount = `DELETE FROM accounts WHERE id = ?1`

func (q *Queries) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// transfer records

const recordColumns = `id, owner_id, amount_cents, realized_at, category, direction, counterparty, title, counterparty_account`

func scanRecord(row scanner) (TransferRecord, error) {
	var r TransferRecord
	err := row.Scan(&r.ID, &r.OwnerID, &r.AmountCents, &r.RealizedAt, &r.Category,
		&r.Direction, &r.Counterparty, &r.Title, &r.CounterpartyAccount)
	return r, err
}

const createTransferRecord = `
INSERT INTO transfer_records (owner_id, amount_cents, realized_at, category, direction, counterparty, title, counterparty_account)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
RETURNING ` + recordColumns

type CreateTransferRecordParams struct {
	OwnerID             int64
	AmountCents         int64
	RealizedAt          string
	Category            string
	Direction           string
	Counterparty        string
	Title               string
	CounterpartyAccount string
}

func (q *Queries) CreateTransferRecord(ctx context.Context, arg CreateTransferRecordParams) (TransferRecord, error) {
	row := q.db.QueryRowContext(ctx, createTransferRecord,
		arg.OwnerID, arg.AmountCents, arg.RealizedAt, arg.Category, arg.Direction,
		arg.Counterparty, arg.Title, arg.CounterpartyAccount)
	return scanRecord(row)
}

const getTransferRecord = `SELECT ` + recordColumns + ` FROM transfer_records WHERE id = ?1`

func (q *Queries) GetTransferRecord(ctx context.Context, id int64) (TransferRecord, error) {
	return scanRecord(q.db.QueryRowContext(ctx, getTransferRecord, id))
}

const deleteTransferRecord = `DELETE FROM transfer_records WHERE id = ?1`

func (q *Queries) DeleteTransferRecord(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransferRecord, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Zero-valued parameters disable their predicate. A negative limit means
// no limit in SQLite.
const findTransferRecords = `
SELECT ` + recordColumns + ` FROM transfer_records
WHERE (?1 = 0 OR owner_id = ?1)
  AND (?2 = '' OR direction = ?2)
  AND (?3 = '' OR category = ?3)
  AND (?4 = '' OR realized_at > ?4)
  AND (?5 = '' OR realized_at <= ?5)
ORDER BY
  CASE WHEN ?8 THEN realized_at END DESC,
  CASE WHEN ?8 THEN id END DESC,
  realized_at ASC, id ASC
LIMIT ?6 OFFSET ?7`

type FindTransferRecordsParams struct {
	OwnerID   int64
	Direction string
	Category  string
	After     string
	Until     string
	Limit     int64
	Offset    int64
	Newest    bool
}

func (q *Queries) FindTransferRecords(ctx context.Context, arg FindTransferRecordsParams) ([]TransferRecord, error) {
	rows, err := q.db.QueryContext(ctx, findTransferRecords,
		arg.OwnerID, arg.Direction, arg.Category, arg.After, arg.Until,
		arg.Limit, arg.Offset, arg.Newest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// recurring definitions

const definitionColumns = `id, owner_id, amount_cents, receiver_name, destination_account, category, title, next_due_date, created_at`

func scanDefinition(row scanner) (RecurringDefinition, error) {
	var d RecurringDefinition
	err := row.Scan(&d.ID, &d.OwnerID, &d.AmountCents, &d.ReceiverName, &d.DestinationAccount,
		&d.Category, &d.Title, &d.NextDueDate, &d.CreatedAt)
	return d, err
}

const createRecurringDefinition = `
INSERT INTO recurring_definitions (owner_id, amount_cents, receiver_name, destination_account, category, title, next_due_date, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
RETURNING ` + definitionColumns

type CreateRecurringDefinitionParams struct {
	OwnerID            int64
	AmountCents        int64
	ReceiverName       string
	DestinationAccount string
	Category           string
	Title              string
	NextDueDate        string
	CreatedAt          string
}

func (q *Queries) CreateRecurringDefinition(ctx context.Context, arg CreateRecurringDefinitionParams) (RecurringDefinition, error) {
	row := q.db.QueryRowContext(ctx, createRecurringDefinition,
		arg.OwnerID, arg.AmountCents, arg.ReceiverName, arg.DestinationAccount,
		arg.Category, arg.Title, arg.NextDueDate, arg.CreatedAt)
	return scanDefinition(row)
}

const updateRecurringDefinition = `
UPDATE recurring_definitions
SET owner_id = ?2, amount_cents = ?3, receiver_name = ?4, destination_account = ?5,
    category = ?6, title = ?7, next_due_date = ?8
WHERE id = ?1`

type UpdateRecurringDefinitionParams struct {
	ID                 int64
	OwnerID            int64
	AmountCents        int64
	ReceiverName       string
	DestinationAccount string
	Category           string
	Title              string
	NextDueDate        string
}

func (q *Queries) UpdateRecurringDefinition(ctx context.Context, arg UpdateRecurringDefinitionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateRecurringDefinition,
		arg.ID, arg.OwnerID, arg.AmountCents, arg.ReceiverName, arg.DestinationAccount,
		arg.Category, arg.Title, arg.NextDueDate)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const advanceRecurringDefinition = `
UPDATE recurring_definitions SET next_due_date = ?3
WHERE id = ?1 AND next_due_date = ?2`

func (q *Queries) AdvanceRecurringDefinition(ctx context.Context, id int64, from, to string) (int64, error) {
	res, err := q.db.ExecContext(ctx, advanceRecurringDefinition, id, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getRecurringDefinition = `SELECT ` + definitionColumns + ` FROM recurring_definitions WHERE id = ?1`

func (q *Queries) GetRecurringDefinition(ctx context.Context, id int64) (RecurringDefinition, error) {
	return scanDefinition(q.db.QueryRowContext(ctx, getRecurringDefinition, id))
}

const deleteRecurringDefinition = `DELETE FROM recurring_definitions WHERE id = ?1`

func (q *Queries) DeleteRecurringDefinition(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRecurringDefinition, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const findRecurringDefinitions = `
SELECT ` + definitionColumns + ` FROM recurring_definitions
WHERE (?1 = 0 OR owner_id = ?1)
  AND (?2 = '' OR category = ?2)
  AND (?3 = '' OR next_due_date <= ?3)
ORDER BY next_due_date ASC, id ASC
LIMIT ?4`

type FindRecurringDefinitionsParams struct {
	OwnerID  int64
	Category string
	DueBy    string
	Limit    int64
}

func (q *Queries) FindRecurringDefinitions(ctx context.Context, arg FindRecurringDefinitionsParams) ([]RecurringDefinition, error) {
	rows, err := q.db.QueryContext(ctx, findRecurringDefinitions,
		arg.OwnerID, arg.Category, arg.DueBy, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecurringDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
