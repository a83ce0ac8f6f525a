package storage

// Row types mirror the tables in migrations/000001_init.up.sql.

type Account struct {
	ID            int64
	AccountNumber string
	FullName      string
	Email         string
	BalanceCents  int64
	CreatedAt     string
}

type TransferRecord struct {
	ID                  int64
	OwnerID             int64
	AmountCents         int64
	RealizedAt          string
	Category            string
	Direction           string
	Counterparty        string
	Title               string
	CounterpartyAccount string
}

type RecurringDefinition struct {
	ID                 int64
	OwnerID            int64
	AmountCents        int64
	ReceiverName       string
	DestinationAccount string
	Category           string
	Title              string
	NextDueDate        string
	CreatedAt          string
}
