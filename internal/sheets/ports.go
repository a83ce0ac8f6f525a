package sheets

import (
	"context"

	"bankcore/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordExporter writes a realized transfer record to an external
	// spreadsheet. Exporting the same record twice yields one row.
	RecordExporter interface {
		Export(ctx context.Context, r core.TransferRecord) (rowRef string, err error)
	}
)
