package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bankcore/internal/core"
)

// Column layout of the records sheet, A to I.
var header = []any{"Record", "Owner", "Date", "Time", "Direction", "Category", "Amount", "Counterparty", "Title"}

// recordRow encodes r as one sheet row. Outgoing amounts are negative so a
// column sum gives the net movement.
func recordRow(r core.TransferRecord, loc *time.Location) []any {
	at := r.RealizedAt.In(loc)
	amount := r.Amount
	if r.Direction == core.Outgoing {
		amount = amount.Neg()
	}
	counterparty := r.Counterparty
	if r.CounterpartyAccount != "" && r.CounterpartyAccount != r.Counterparty {
		counterparty = fmt.Sprintf("%s (%s)", r.Counterparty, r.CounterpartyAccount)
	}
	return []any{
		r.ID,
		r.OwnerID,
		at.Format("2006-01-02"),
		at.Format("15:04"),
		string(r.Direction),
		r.Category.Label(),
		amount.String(),
		counterparty,
		r.Title,
	}
}

// recordRows maps the record IDs found in column A to their 1-based row
// numbers. Header and malformed cells are skipped.
func recordRows(values [][]any) map[int64]int {
	rows := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, seen := rows[id]; !seen {
			rows[id] = i + 1
		}
	}
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// rowNumber extracts the first row of an A1 range such as "2024 Transfers!A5:I5".
func rowNumber(ref string) (int, bool) {
	_, cells, ok := strings.Cut(ref, "!")
	if !ok {
		return 0, false
	}
	first, _, _ := strings.Cut(cells, ":")
	digits := strings.TrimLeft(first, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
