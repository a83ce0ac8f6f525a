package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
)

// Fixed payee of loan installments.
const (
	InstallmentPayee   = "Future Bank Sp. z o.o."
	InstallmentAccount = "Restricted Account Number"
)

// TransferRequest describes one movement of funds out of SenderID.
type TransferRequest struct {
	SenderID           int64
	Amount             core.Money
	Category           core.Category
	Title              string
	ReceiverName       string
	DestinationAccount string
	RealizedAt         time.Time // zero means now
}

// TransferResult holds the records written by a transfer. Incoming is nil
// when the destination is not an account of this bank.
type TransferResult struct {
	Outgoing core.TransferRecord
	Incoming *core.TransferRecord
}

// Records returns the written records, outgoing first.
func (r TransferResult) Records() []core.TransferRecord {
	if r.Incoming == nil {
		return []core.TransferRecord{r.Outgoing}
	}
	return []core.TransferRecord{r.Outgoing, *r.Incoming}
}

// Engine moves money between accounts. Each transfer is one atomic unit:
// the debit, the optional credit and their records commit together or not
// at all.
type Engine struct {
	store  ledger.Store
	logger *log.Logger
	now    func() time.Time

	mapMu sync.Mutex
	muMap map[int64]*sync.Mutex
}

func NewEngine(store ledger.Store) *Engine {
	return &Engine{
		store:  store,
		logger: log.Default().WithComponent(log.ComponentEngine),
		now:    time.Now,
		muMap:  make(map[int64]*sync.Mutex),
	}
}

func (e *Engine) getAccountLock(id int64) *sync.Mutex {
	e.mapMu.Lock()
	defer e.mapMu.Unlock()

	if _, exists := e.muMap[id]; !exists {
		e.muMap[id] = &sync.Mutex{}
	}
	return e.muMap[id]
}

// lockAccounts takes the per-account locks in ascending id order and
// returns the matching unlock.
func (e *Engine) lockAccounts(ids ...int64) func() {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var held []*sync.Mutex
	for i, id := range ids {
		if id == 0 || (i > 0 && ids[i-1] == id) {
			continue
		}
		mu := e.getAccountLock(id)
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// plan is a validated transfer ready to run.
type plan struct {
	req TransferRequest
	// external skips destination lookup; the payee is never an account here.
	external bool
	after    func(tx ledger.Tx) error
}

// Execute realizes req. When the destination number belongs to an account
// the amount is credited to it and an INCOMING record is written for its
// owner; otherwise only the OUTGOING side is recorded.
func (e *Engine) Execute(ctx context.Context, req TransferRequest) (TransferResult, error) {
	return e.run(ctx, plan{req: req})
}

// PayInstallment pays the next rate of loan to the bank's loan account.
func (e *Engine) PayInstallment(ctx context.Context, loan core.Loan, at time.Time) (TransferResult, error) {
	if loan.RatesLeftToPay <= 0 || loan.RatesLeftToPay > loan.NumOfRates {
		return TransferResult{}, fmt.Errorf("loan %d has no rate left to pay: %w", loan.ID, core.ErrInvalidAmount)
	}
	return e.run(ctx, plan{
		req: TransferRequest{
			SenderID:           loan.OwnerID,
			Amount:             loan.RateAmount,
			Category:           core.Bills,
			Title:              fmt.Sprintf("Loan: %d | Rate number:%d", loan.ID, loan.RateNumber()),
			ReceiverName:       InstallmentPayee,
			DestinationAccount: InstallmentAccount,
			RealizedAt:         at,
		},
		external: true,
	})
}

// RealizeDefinition executes def on behalf of its owner. after runs inside
// the same atomic unit, so a definition update it performs commits only
// together with the transfer.
func (e *Engine) RealizeDefinition(ctx context.Context, def core.RecurringDefinition, at time.Time, after func(tx ledger.Tx) error) (TransferResult, error) {
	return e.run(ctx, plan{
		req: TransferRequest{
			SenderID:           def.OwnerID,
			Amount:             def.Amount,
			Category:           def.Category,
			Title:              def.Title,
			ReceiverName:       def.ReceiverName,
			DestinationAccount: def.DestinationAccount,
			RealizedAt:         at,
		},
		after: after,
	})
}

func validateRequest(req TransferRequest) error {
	if err := req.Amount.Validate(); err != nil {
		return err
	}
	if err := req.Category.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(req.DestinationAccount) == "" {
		return core.ErrEmptyDestination
	}
	return nil
}

func (e *Engine) run(ctx context.Context, p plan) (TransferResult, error) {
	req := p.req
	if err := validateRequest(req); err != nil {
		return TransferResult{}, err
	}
	if req.RealizedAt.IsZero() {
		req.RealizedAt = e.now()
	}

	// Resolve ids up front so both locks are held before any balance moves.
	sender, err := e.store.Accounts().FindByID(ctx, req.SenderID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("find sender %d: %w", req.SenderID, err)
	}
	if sender == nil {
		return TransferResult{}, fmt.Errorf("account %d: %w", req.SenderID, core.ErrSenderUnavailable)
	}
	var destID int64
	if !p.external {
		dest, err := e.store.Accounts().FindByAccountNumber(ctx, req.DestinationAccount)
		if err != nil {
			return TransferResult{}, fmt.Errorf("find destination %s: %w", req.DestinationAccount, err)
		}
		if dest != nil {
			destID = dest.ID
		}
	}
	if destID == sender.ID {
		return TransferResult{}, core.ErrSameAccount
	}

	unlock := e.lockAccounts(sender.ID, destID)
	defer unlock()

	var result TransferResult
	err = e.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		result, err = e.apply(ctx, tx, p.external, req)
		if err != nil {
			return err
		}
		if p.after != nil {
			return p.after(tx)
		}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	e.logger.InfoContext(ctx, "Transfer executed",
		log.FieldAccountID, req.SenderID,
		log.FieldAmountCents, req.Amount.Cents,
		log.FieldCategory, string(req.Category),
		log.FieldDestination, req.DestinationAccount,
		"internal", result.Incoming != nil)
	return result, nil
}

// apply performs the balance moves and record inserts inside tx.
func (e *Engine) apply(ctx context.Context, tx ledger.Tx, external bool, req TransferRequest) (TransferResult, error) {
	sender, err := tx.Accounts().FindByID(ctx, req.SenderID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("find sender %d: %w", req.SenderID, err)
	}
	if sender == nil {
		return TransferResult{}, fmt.Errorf("account %d: %w", req.SenderID, core.ErrSenderUnavailable)
	}

	var dest *core.Account
	if !external {
		if dest, err = tx.Accounts().FindByAccountNumber(ctx, req.DestinationAccount); err != nil {
			return TransferResult{}, fmt.Errorf("find destination %s: %w", req.DestinationAccount, err)
		}
		if dest != nil && dest.ID == sender.ID {
			return TransferResult{}, core.ErrSameAccount
		}
	}

	if _, err := tx.Accounts().AdjustBalance(ctx, sender.ID, req.Amount, core.Outgoing); err != nil {
		return TransferResult{}, fmt.Errorf("debit: %w", err)
	}

	counterparty := strings.TrimSpace(req.ReceiverName)
	if dest != nil {
		counterparty = dest.FullName
	}
	if counterparty == "" {
		counterparty = req.DestinationAccount
	}

	out, err := tx.Records().Insert(ctx, core.TransferRecord{
		OwnerID:             sender.ID,
		Amount:              req.Amount,
		RealizedAt:          req.RealizedAt,
		Category:            req.Category,
		Direction:           core.Outgoing,
		Counterparty:        counterparty,
		Title:               req.Title,
		CounterpartyAccount: req.DestinationAccount,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("record outgoing transfer: %w", err)
	}
	result := TransferResult{Outgoing: out}
	if dest == nil {
		return result, nil
	}

	if _, err := tx.Accounts().AdjustBalance(ctx, dest.ID, req.Amount, core.Incoming); err != nil {
		return TransferResult{}, fmt.Errorf("credit: %w", err)
	}
	in, err := tx.Records().Insert(ctx, core.TransferRecord{
		OwnerID:             dest.ID,
		Amount:              req.Amount,
		RealizedAt:          req.RealizedAt,
		Category:            req.Category,
		Direction:           core.Incoming,
		Counterparty:        sender.FullName,
		Title:               req.Title,
		CounterpartyAccount: sender.AccountNumber,
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("record incoming transfer: %w", err)
	}
	result.Incoming = &in
	return result, nil
}
