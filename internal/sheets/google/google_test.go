package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bankcore/internal/core"
)

// fakeSheets serves the subset of the Sheets values API the exporter uses.
type fakeSheets struct {
	mu      sync.Mutex
	sheets  map[string][][]any
	gets    int
	appends int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := strings.Index(r.URL.Path, "/values/")
	if i < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[i+len("/values/"):]
	sheet, _, _ := strings.Cut(strings.TrimSuffix(rng, ":append"), "!")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appends++
		f.sheets[sheet] = append(f.sheets[sheet], vr.Values...)
		n := len(f.sheets[sheet])
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: fmt.Sprintf("%s!A%d:I%d", sheet, n, n)},
		})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(f.sheets[sheet]) == 0 {
			f.sheets[sheet] = append(f.sheets[sheet], vr.Values...)
		} else {
			f.sheets[sheet][0] = vr.Values[0]
		}
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: rng})
	case r.Method == http.MethodGet:
		f.gets++
		var col [][]any
		for _, row := range f.sheets[sheet] {
			if len(row) > 0 {
				col = append(col, []any{row[0]})
			} else {
				col = append(col, []any{})
			}
		}
		json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: col})
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) rows(sheet string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.sheets[sheet]...)
}

func (f *fakeSheets) counts() (gets, appends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, f.appends
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheets: make(map[string][][]any)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-id", SheetName: "Transfers"}), fake
}

func record(id int64, at time.Time) core.TransferRecord {
	return core.TransferRecord{
		ID:           id,
		OwnerID:      1,
		Amount:       core.Money{Cents: 200},
		RealizedAt:   at,
		Category:     core.Bills,
		Direction:    core.Outgoing,
		Counterparty: "Jan Kowalski",
		Title:        "rent",
	}
}

func TestClient_ExportWritesHeaderAndRow(t *testing.T) {
	c, fake := newTestClient(t)

	ref, err := c.Export(context.Background(), record(1, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "2024 Transfers!A2:I2" {
		t.Errorf("ref = %q", ref)
	}

	rows := fake.rows("2024 Transfers")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "Record" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][6] != "-2.00" || rows[1][5] != "Bills" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestClient_ExportIsIdempotent(t *testing.T) {
	c, fake := newTestClient(t)
	r := record(5, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	first, err := c.Export(context.Background(), r)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := c.Export(context.Background(), r)
	if err != nil {
		t.Fatalf("second Export() error = %v", err)
	}
	if first != second {
		t.Errorf("refs differ: %q vs %q", first, second)
	}
	if _, appends := fake.counts(); appends != 1 {
		t.Errorf("appends = %d, want 1", appends)
	}

	// A restarted exporter finds the row through the sheet itself.
	c.InvalidateIndex()
	if _, err := c.Export(context.Background(), r); err != nil {
		t.Fatalf("Export() after invalidate error = %v", err)
	}
	gets, appends := fake.counts()
	if appends != 1 {
		t.Errorf("appends after reload = %d, want 1", appends)
	}
	if gets != 2 {
		t.Errorf("index reads = %d, want 2", gets)
	}
}

func TestClient_ExportIndexExpires(t *testing.T) {
	c, fake := newTestClient(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for id := int64(1); id <= 3; id++ {
		if _, err := c.Export(context.Background(), record(id, now)); err != nil {
			t.Fatalf("Export(%d) error = %v", id, err)
		}
	}
	if gets, _ := fake.counts(); gets != 1 {
		t.Errorf("index reads within ttl = %d, want 1", gets)
	}

	now = now.Add(defaultIndexTTL + time.Second)
	if _, err := c.Export(context.Background(), record(4, now)); err != nil {
		t.Fatalf("Export(4) error = %v", err)
	}
	if gets, _ := fake.counts(); gets != 2 {
		t.Errorf("index reads after ttl = %d, want 2", gets)
	}
}

func TestClient_ExportSheetPerYear(t *testing.T) {
	c, fake := newTestClient(t)

	if _, err := c.Export(context.Background(), record(1, time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if _, err := c.Export(context.Background(), record(2, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(fake.rows("2023 Transfers")) != 2 || len(fake.rows("2024 Transfers")) != 2 {
		t.Errorf("2023 rows = %v, 2024 rows = %v", fake.rows("2023 Transfers"), fake.rows("2024 Transfers"))
	}
}

func TestClient_ExportRejects(t *testing.T) {
	c, _ := newTestClient(t)

	invalid := record(1, time.Now())
	invalid.Amount = core.Money{}
	if _, err := c.Export(context.Background(), invalid); err == nil {
		t.Error("expected validation error")
	}
	if _, err := c.Export(context.Background(), record(0, time.Now())); err == nil {
		t.Error("expected error for record without id")
	}

	bare := &Client{}
	if _, err := bare.Export(context.Background(), record(1, time.Now())); err == nil {
		t.Error("expected error for uninitialized service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("New() error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("New() error = %v", err)
	}
}
