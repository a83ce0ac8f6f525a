package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"bankcore/internal/core"
)

// formatMoney renders cents with thousands separators, e.g. "1,234.50".
func formatMoney(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

func signedAmount(r core.TransferRecord) string {
	if r.Direction == core.Outgoing {
		return formatMoney(r.Amount.Neg())
	}
	return "+" + formatMoney(r.Amount)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printAccounts(w io.Writer, accounts []core.Account) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tEMAIL\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.AccountNumber, a.FullName, a.Email, formatMoney(a.Balance))
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []core.TransferRecord, now time.Time) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tWHEN\tCATEGORY\tAMOUNT\tCOUNTERPARTY\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s (%s)\t%s\n",
			r.ID,
			humanize.RelTime(r.RealizedAt, now, "ago", "from now"),
			r.Category.Label(),
			signedAmount(r),
			r.Counterparty, r.CounterpartyAccount,
			r.Title)
	}
	return tw.Flush()
}

func printDefinitions(w io.Writer, defs []core.RecurringDefinition) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDUE\tCATEGORY\tAMOUNT\tRECEIVER\tTITLE")
	for _, d := range defs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s (%s)\t%s\n",
			d.ID, d.NextDueDate, d.Category.Label(), formatMoney(d.Amount),
			d.ReceiverName, d.DestinationAccount, d.Title)
	}
	return tw.Flush()
}

func printBreakdown(w io.Writer, b core.Breakdown) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ENTRY\tAMOUNT\tPERCENT")
	for _, s := range b.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", s.Label, formatMoney(s.Amount), s.Percent.StringFixed(2))
	}
	return tw.Flush()
}

func printTransfer(w io.Writer, records []core.TransferRecord) {
	for _, r := range records {
		fmt.Fprintf(w, "record %d: %s %s %s, %s\n",
			r.ID, r.Direction, signedAmount(r), r.Category.Label(), r.Title)
	}
}
