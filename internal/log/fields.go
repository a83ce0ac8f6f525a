package log

import "bankcore/internal/core"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldRunID        = "run_id"
	FieldAccountID    = "account_id"
	FieldOwnerID      = "owner_id"
	FieldRecordID     = "record_id"
	FieldDefinitionID = "definition_id"
	FieldAmountCents  = "amount_cents"
	FieldCategory     = "category"
	FieldDirection    = "direction"
	FieldDestination  = "destination_account"
	FieldDueDate      = "next_due_date"
	FieldOutcome      = "outcome"
	FieldMessageID    = "message_id"
	FieldQueue        = "queue"
	FieldDuration     = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentEngine    = "engine"
	ComponentScheduler = "scheduler"
	ComponentRecurring = "recurring"
	ComponentAnalytics = "analytics"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentNotify    = "notify"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpTransfer = "transfer"
	OpRealize  = "realize"
	OpNotify   = "notify"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDefinition adds the fields identifying a recurring definition.
func (f LogFields) WithDefinition(d core.RecurringDefinition) LogFields {
	f[FieldDefinitionID] = d.ID
	f[FieldOwnerID] = d.OwnerID
	f[FieldAmountCents] = d.Amount.Cents
	f[FieldDueDate] = d.NextDueDate.String()
	return f
}

// WithRecord adds the fields identifying a transfer record.
func (f LogFields) WithRecord(r core.TransferRecord) LogFields {
	f[FieldRecordID] = r.ID
	f[FieldOwnerID] = r.OwnerID
	f[FieldAmountCents] = r.Amount.Cents
	f[FieldCategory] = string(r.Category)
	f[FieldDirection] = string(r.Direction)
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
