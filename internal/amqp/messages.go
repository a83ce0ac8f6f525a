package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bankcore/internal/core"
	"bankcore/internal/ledger"
)

// NotificationMessage asks the worker to deliver a notification.
type NotificationMessage struct {
	ID           string    `json:"id"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	DefinitionID int64     `json:"definition_id,omitempty"`
	AmountCents  int64     `json:"amount_cents,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewNotificationMessage(n ledger.Notification) *NotificationMessage {
	return &NotificationMessage{
		ID:           uuid.NewString(),
		Recipient:    n.Recipient,
		Subject:      n.Subject,
		Body:         n.Body,
		DefinitionID: n.DefinitionID,
		AmountCents:  n.Amount.Cents,
		Timestamp:    time.Now(),
	}
}

// Notification converts the message back to the port type.
func (m *NotificationMessage) Notification() ledger.Notification {
	return ledger.Notification{
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Body:         m.Body,
		DefinitionID: m.DefinitionID,
		Amount:       core.Money{Cents: m.AmountCents},
	}
}

// RecordExportMessage carries a committed transfer record to the exporter.
// The record travels whole so the worker needs no database access.
type RecordExportMessage struct {
	ID                  string    `json:"id"`
	RecordID            int64     `json:"record_id"`
	OwnerID             int64     `json:"owner_id"`
	AmountCents         int64     `json:"amount_cents"`
	RealizedAt          time.Time `json:"realized_at"`
	Category            string    `json:"category"`
	Direction           string    `json:"direction"`
	Counterparty        string    `json:"counterparty"`
	Title               string    `json:"title"`
	CounterpartyAccount string    `json:"counterparty_account"`
	Timestamp           time.Time `json:"timestamp"`
}

func NewRecordExportMessage(r core.TransferRecord) *RecordExportMessage {
	return &RecordExportMessage{
		ID:                  uuid.NewString(),
		RecordID:            r.ID,
		OwnerID:             r.OwnerID,
		AmountCents:         r.Amount.Cents,
		RealizedAt:          r.RealizedAt,
		Category:            string(r.Category),
		Direction:           string(r.Direction),
		Counterparty:        r.Counterparty,
		Title:               r.Title,
		CounterpartyAccount: r.CounterpartyAccount,
		Timestamp:           time.Now(),
	}
}

// Record converts the message back to a domain record and validates it.
func (m *RecordExportMessage) Record() (core.TransferRecord, error) {
	r := core.TransferRecord{
		ID:                  m.RecordID,
		OwnerID:             m.OwnerID,
		Amount:              core.Money{Cents: m.AmountCents},
		RealizedAt:          m.RealizedAt,
		Category:            core.Category(m.Category),
		Direction:           core.Direction(m.Direction),
		Counterparty:        m.Counterparty,
		Title:               m.Title,
		CounterpartyAccount: m.CounterpartyAccount,
	}
	if err := r.Validate(); err != nil {
		return core.TransferRecord{}, fmt.Errorf("record %d: %w", m.RecordID, err)
	}
	return r, nil
}

func decode[T any](data []byte) (*T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	return decode[NotificationMessage](data)
}

func RecordExportMessageFromJSON(data []byte) (*RecordExportMessage, error) {
	return decode[RecordExportMessage](data)
}

// Ensure interface conformance
var (
	_ ledger.Notifier        = (*Client)(nil)
	_ ledger.RecordPublisher = (*Client)(nil)
)

// Notify queues n for delivery by the worker.
func (c *Client) Notify(ctx context.Context, n ledger.Notification) error {
	msg := NewNotificationMessage(n)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.Publish(ctx, c.topology.NotifyQueue, msg.ID, body)
}

// PublishRecord queues r for export.
func (c *Client) PublishRecord(ctx context.Context, r core.TransferRecord) error {
	msg := NewRecordExportMessage(r)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.Publish(ctx, c.topology.ExportQueue, msg.ID, body)
}

// ConsumeNotifications runs handler for each notification message.
// Undecodable messages are dropped.
func (c *Client) ConsumeNotifications(ctx context.Context, handler func(context.Context, *NotificationMessage) error) error {
	return c.Consume(ctx, c.topology.NotifyQueue, func(ctx context.Context, body []byte) error {
		msg, err := NotificationMessageFromJSON(body)
		if err != nil {
			return Permanent(fmt.Errorf("unmarshal notification: %w", err))
		}
		return handler(ctx, msg)
	})
}

// ConsumeRecordExports runs handler for each export message.
// Undecodable messages are dropped.
func (c *Client) ConsumeRecordExports(ctx context.Context, handler func(context.Context, *RecordExportMessage) error) error {
	return c.Consume(ctx, c.topology.ExportQueue, func(ctx context.Context, body []byte) error {
		msg, err := RecordExportMessageFromJSON(body)
		if err != nil {
			return Permanent(fmt.Errorf("unmarshal record export: %w", err))
		}
		return handler(ctx, msg)
	})
}
