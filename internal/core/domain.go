package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Outgoing Direction = "OUTGOING"
	Incoming Direction = "INCOMING"
)

const maxTitleLength = 200

type (
	Direction string

	// Date is a calendar day. The time-of-day component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Account struct {
		ID            int64
		AccountNumber string
		FullName      string
		Email         string
		Balance       Money
		CreatedAt     time.Time
	}

	// TransferRecord is one side of a realized transfer, owned by the account
	// whose history it belongs to.
	TransferRecord struct {
		ID                  int64
		OwnerID             int64
		Amount              Money
		RealizedAt          time.Time
		Category            Category
		Direction           Direction
		Counterparty        string // display name of the other party
		Title               string
		CounterpartyAccount string
	}

	// RecurringDefinition is a standing transfer order realized once per
	// calendar month starting at NextDueDate.
	RecurringDefinition struct {
		ID                 int64
		OwnerID            int64
		Amount             Money
		ReceiverName       string
		DestinationAccount string
		Category           Category
		Title              string
		NextDueDate        Date
		CreatedAt          time.Time
	}

	// Loan carries the installment data needed to pay one rate.
	Loan struct {
		ID             int64
		OwnerID        int64
		RateAmount     Money
		NumOfRates     int
		RatesLeftToPay int
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrSenderUnavailable   = errors.New("sender not available")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateDefinition = errors.New("this exact recurring transfer is already declared")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrSameAccount         = errors.New("source and destination account are the same")
	ErrEmptyTitle          = errors.New("empty title")
	ErrEmptyDestination    = errors.New("empty destination account")
	ErrInvalidDate         = errors.New("invalid date")
	ErrBalanceOverflow     = errors.New("balance would exceed the maximum amount")
	ErrStaleDefinition     = errors.New("recurring definition changed since it was read")
)

func (d Direction) Validate() error {
	switch d {
	case Outgoing, Incoming:
		return nil
	default:
		return ErrInvalidDirection
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// AddMonths moves d by n calendar months. When the target month is shorter
// than d's day, the result is clamped to the target month's last day, so
// Jan 31 + 1 month is Feb 28 (or 29).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// OnOrBefore reports whether d is the same day as other or earlier.
func (d Date) OnOrBefore(other Date) bool {
	return !d.After(other.Time)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.AccountNumber) == "" {
		return errors.New("empty account number")
	}
	if strings.TrimSpace(a.FullName) == "" {
		return errors.New("empty full name")
	}
	if a.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (r TransferRecord) Validate() error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Category.Validate(); err != nil {
		return err
	}
	if err := r.Direction.Validate(); err != nil {
		return err
	}
	if r.RealizedAt.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (rd RecurringDefinition) Validate() error {
	if err := rd.Amount.Validate(); err != nil {
		return err
	}
	if err := rd.Category.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rd.Title) == "" {
		return ErrEmptyTitle
	}
	if len(rd.Title) > maxTitleLength {
		return errors.New("title too long (max 200 characters)")
	}
	if strings.TrimSpace(rd.DestinationAccount) == "" {
		return ErrEmptyDestination
	}
	if err := rd.NextDueDate.Validate(); err != nil {
		return err
	}
	return nil
}

// SameOrder reports whether two definitions describe the same standing order:
// equal amount, receiver, destination, due date, category and title.
func (rd RecurringDefinition) SameOrder(other RecurringDefinition) bool {
	return rd.Amount == other.Amount &&
		rd.ReceiverName == other.ReceiverName &&
		rd.DestinationAccount == other.DestinationAccount &&
		rd.NextDueDate.Equal(other.NextDueDate.Time) &&
		rd.Category == other.Category &&
		rd.Title == other.Title
}

// RateNumber is the 1-based number of the next installment to pay.
func (l Loan) RateNumber() int {
	return l.NumOfRates - l.RatesLeftToPay + 1
}
