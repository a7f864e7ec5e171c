// Package report computes the summaries shown next to a transaction list:
// income and expense totals, a per-month breakdown, and a sortable,
// paginated table. Everything runs on the rows the server returned.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Totals sums a set of transactions by type.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

func (t *Totals) add(tx core.Transaction) {
	switch tx.Type {
	case core.Income:
		t.Income = t.Income.Add(tx.Amount)
	case core.Expense:
		t.Expense = t.Expense.Add(tx.Amount)
	}
}

// ComputeTotals returns the income and expense sums of rows.
func ComputeTotals(rows []core.TransactionView) Totals {
	var t Totals
	for _, r := range rows {
		t.add(r.Transaction)
	}
	return t
}

// Month is one calendar month of activity.
type Month struct {
	Key   string
	Label string
	Totals
}

// MonthlyBreakdown lists months in the order they were first seen.
type MonthlyBreakdown []Month

// Monthly groups rows by calendar month and year of their date.
func Monthly(rows []core.TransactionView) MonthlyBreakdown {
	index := make(map[string]int)
	var out MonthlyBreakdown
	for _, r := range rows {
		key := r.Date.MonthKey()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Month{Key: key, Label: r.Date.MonthLabel()})
		}
		out[i].add(r.Transaction)
	}
	return out
}

// Sorted returns a copy ordered oldest month first.
func (b MonthlyBreakdown) Sorted() MonthlyBreakdown {
	out := make(MonthlyBreakdown, len(b))
	copy(out, b)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Find returns the month with the given label, e.g. "January 2024".
func (b MonthlyBreakdown) Find(label string) (Month, bool) {
	for _, m := range b {
		if m.Label == label {
			return m, true
		}
	}
	return Month{}, false
}
