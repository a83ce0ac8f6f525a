package core

import "github.com/shopspring/decimal"

// Labels of the summary rows that precede the category breakdown.
const (
	LabelTotalOutgoing = "total outgoing"
	LabelTotalIncoming = "total incoming"
)

// Share is one row of an analytics breakdown.
type Share struct {
	Label    string
	Category Category // empty for total rows
	Amount   Money
	Percent  decimal.Decimal // rounded to two places, never NaN
}

// Breakdown is an ordered analytics result: summary rows first, then one row
// per category in Categories() order.
type Breakdown struct {
	Summary    []Share
	Categories []Share
}

// Entries flattens the breakdown into its reporting order.
func (b Breakdown) Entries() []Share {
	out := make([]Share, 0, len(b.Summary)+len(b.Categories))
	out = append(out, b.Summary...)
	return append(out, b.Categories...)
}

// CategoryTotal sums the category rows.
func (b Breakdown) CategoryTotal() Money {
	var sum Money
	for _, s := range b.Categories {
		sum = sum.Add(s.Amount)
	}
	return sum
}
