package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"bankcore/internal/core"
	ports "bankcore/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultIndexTTL = 10 * time.Minute

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base name; records go to "<year> <SheetName>" by
	// the year they were realized in.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Location        *time.Location
}

// sheetIndex caches the record IDs already present in one sheet.
type sheetIndex struct {
	rows     map[int64]int
	loadedAt time.Time
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	loc           *time.Location

	mu       sync.Mutex
	indexes  map[string]*sheetIndex
	indexTTL time.Duration
	now      func() time.Time
}

// Ensure interface conformance
var _ ports.RecordExporter = (*Client)(nil)

// New creates a Sheets client authenticated with Service Account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Transfers"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		loc:           loc,
		indexes:       make(map[string]*sheetIndex),
		indexTTL:      defaultIndexTTL,
		now:           time.Now,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials,
// inline JSON first, then the file, then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline JSON credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetFor(r core.TransferRecord) string {
	return yearPrefixedName(c.sheetBase, r.RealizedAt.In(c.loc).Year())
}

// Export appends r to the sheet of its year unless a row with its ID is
// already there, in which case the existing row is returned.
func (c *Client) Export(ctx context.Context, r core.TransferRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if r.ID <= 0 {
		return "", errors.New("record has no id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := c.sheetFor(r)

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.indexLocked(ctx, sheet)
	if err != nil {
		return "", err
	}
	if row, ok := idx.rows[r.ID]; ok {
		slog.DebugContext(ctx, "Record already exported", "record_id", r.ID, "row", row)
		return fmt.Sprintf("%s!A%d:I%d", sheet, row, row), nil
	}

	if len(idx.rows) == 0 {
		if err := c.ensureHeader(ctx, sheet); err != nil {
			return "", err
		}
	}

	vr := &gsheet.ValueRange{Values: [][]any{recordRow(r, c.loc)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:I", sheet), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		delete(c.indexes, sheet)
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	if row, ok := rowNumber(ref); ok {
		idx.rows[r.ID] = row
	} else {
		// Unknown position; force a reload before the next lookup.
		delete(c.indexes, sheet)
	}
	slog.InfoContext(ctx, "Exported transfer record", "record_id", r.ID, "sheets_ref", ref)
	return ref, nil
}

// indexLocked returns the cached ID index of sheet, reloading it from
// column A once it is older than indexTTL.
func (c *Client) indexLocked(ctx context.Context, sheet string) (*sheetIndex, error) {
	if idx, ok := c.indexes[sheet]; ok && c.now().Sub(idx.loadedAt) < c.indexTTL {
		return idx, nil
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	idx := &sheetIndex{rows: recordRows(resp.Values), loadedAt: c.now()}
	c.indexes[sheet] = idx
	return idx, nil
}

func (c *Client) ensureHeader(ctx context.Context, sheet string) error {
	rng := fmt.Sprintf("%s!A1:I1", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}
	return nil
}

// InvalidateIndex drops cached ID indexes so the next export re-reads them.
func (c *Client) InvalidateIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes = make(map[string]*sheetIndex)
}
