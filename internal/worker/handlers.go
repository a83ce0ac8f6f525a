// Package worker holds the message handlers and run loops behind
// cmd/bankcore-worker and cmd/bankcore-scheduler.
package worker

import (
	"context"
	"errors"
	"fmt"

	"bankcore/internal/amqp"
	"bankcore/internal/ledger"
	"bankcore/internal/log"
	"bankcore/internal/notify"
	"bankcore/internal/sheets"
)

// Handler delivers queued notifications and exports queued records.
type Handler struct {
	notifier ledger.Notifier
	exporter sheets.RecordExporter
	logger   *log.Logger
}

func NewHandler(notifier ledger.Notifier, exporter sheets.RecordExporter) *Handler {
	return &Handler{
		notifier: notifier,
		exporter: exporter,
		logger:   log.Default().WithComponent(log.ComponentWorker),
	}
}

// HandleNotification delivers one notification. Messages that can never be
// delivered are reported as permanent so the broker drops them.
func (h *Handler) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	h.logger.InfoContext(ctx, "Processing notification message",
		log.FieldMessageID, msg.ID,
		log.FieldDefinitionID, msg.DefinitionID)

	if h.notifier == nil {
		h.logger.WarnContext(ctx, "No notifier configured, dropping notification", log.FieldMessageID, msg.ID)
		return nil
	}

	err := h.notifier.Notify(ctx, msg.Notification())
	switch {
	case errors.Is(err, notify.ErrNoRecipient):
		return amqp.Permanent(fmt.Errorf("notification %s: %w", msg.ID, err))
	case err != nil:
		return fmt.Errorf("deliver notification %s: %w", msg.ID, err)
	}

	h.logger.InfoContext(ctx, "Notification delivered",
		log.FieldMessageID, msg.ID,
		"recipient", msg.Recipient)
	return nil
}

// HandleRecordExport writes one record to the spreadsheet.
func (h *Handler) HandleRecordExport(ctx context.Context, msg *amqp.RecordExportMessage) error {
	if h.exporter == nil {
		h.logger.WarnContext(ctx, "No record exporter configured, skipping export", log.FieldRecordID, msg.RecordID)
		return nil
	}

	r, err := msg.Record()
	if err != nil {
		return amqp.Permanent(err)
	}

	ref, err := h.exporter.Export(ctx, r)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to export transfer record",
			log.FieldRecordID, r.ID,
			log.FieldError, err)
		return fmt.Errorf("export record %d: %w", r.ID, err)
	}

	h.logger.InfoContext(ctx, "Successfully exported transfer record",
		log.NewFields().WithRecord(r).ToSlice()...)
	h.logger.DebugContext(ctx, "Export row", log.FieldRecordID, r.ID, "sheets_ref", ref)
	return nil
}
