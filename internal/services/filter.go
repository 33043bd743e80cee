package services

import (
	"strings"

	"buestanflow/internal/core"
)

// Selector picks which movements the transaction feed shows.
type Selector string

const (
	SelectAll     Selector = "all"
	SelectIncome  Selector = Selector(core.Income)
	SelectExpense Selector = Selector(core.Expense)
)

// ParseSelector accepts all, income or expense. Anything else, including
// the empty string, is an *core.InvalidSelectorError.
func ParseSelector(s string) (Selector, error) {
	switch sel := Selector(strings.TrimSpace(s)); sel {
	case SelectAll, SelectIncome, SelectExpense:
		return sel, nil
	default:
		return "", &core.InvalidSelectorError{Value: s}
	}
}

// Filter returns the transactions matching selector in their original
// relative order. The result is always a new slice.
func Filter(txs []core.Transaction, selector Selector) ([]core.Transaction, error) {
	switch selector {
	case SelectAll, SelectIncome, SelectExpense:
	default:
		return nil, &core.InvalidSelectorError{Value: string(selector)}
	}

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		if selector == SelectAll || core.Kind(selector) == tx.Kind {
			out = append(out, tx)
		}
	}
	return out, nil
}
