// Package services holds the summary engine: the four pure derivations over
// a period snapshot and the service that runs them side by side.
package services

import (
	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
)

// DeltaPrecision is the number of decimal places kept for computed
// period-over-period deltas.
const DeltaPrecision = 1

// Aggregate reduces a ledger to its summary metrics. NetProfit is always
// computed here from the two totals. CashFlow and the deltas come from the
// treasury figure as they cannot be derived from the ledger.
func Aggregate(txs []core.Transaction, treasury core.Treasury) (core.MetricsSnapshot, error) {
	var income, expenses core.Money
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return core.MetricsSnapshot{}, err
		}
		switch tx.Kind {
		case core.Income:
			income = income.Add(tx.Amount)
		case core.Expense:
			expenses = expenses.Add(tx.Amount.Abs())
		}
	}
	return core.MetricsSnapshot{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetProfit:     income.Sub(expenses),
		CashFlow:      treasury.CashFlow,
		Deltas:        treasury.Deltas,
	}, nil
}

// CompareMetrics fills the deltas of current that the record store left
// empty, using an explicitly supplied prior snapshot. Supplied deltas are
// never overwritten. A zero prior figure leaves its delta nil.
func CompareMetrics(current, prior core.MetricsSnapshot) core.MetricsSnapshot {
	out := current
	out.Deltas.Income = fillDelta(current.Deltas.Income, current.TotalIncome, prior.TotalIncome)
	out.Deltas.Expenses = fillDelta(current.Deltas.Expenses, current.TotalExpenses, prior.TotalExpenses)
	out.Deltas.NetProfit = fillDelta(current.Deltas.NetProfit, current.NetProfit, prior.NetProfit)
	out.Deltas.CashFlow = fillDelta(current.Deltas.CashFlow, current.CashFlow, prior.CashFlow)
	return out
}

func fillDelta(existing *decimal.Decimal, cur, prior core.Money) *decimal.Decimal {
	if existing != nil {
		return existing
	}
	d, ok := core.PercentChange(cur, prior, DeltaPrecision)
	if !ok {
		return nil
	}
	return &d
}
