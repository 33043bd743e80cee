package services

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
)

func tx(id string, kind core.Kind, cents int64) core.Transaction {
	return core.Transaction{ID: id, Kind: kind, Amount: core.Money{Cents: cents}, Date: core.NewDate(2024, 1, 15)}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAggregateExampleLedger(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.Income, 5500),
		tx("2", core.Expense, -3200),
		tx("3", core.Income, 7800),
		tx("4", core.Expense, -1200),
		tx("5", core.Expense, -25000),
	}
	got, err := Aggregate(txs, core.Treasury{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalIncome.Cents != 13300 || got.TotalExpenses.Cents != 29400 || got.NetProfit.Cents != -16100 {
		t.Fatalf("got income=%d expenses=%d net=%d", got.TotalIncome.Cents, got.TotalExpenses.Cents, got.NetProfit.Cents)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got, err := Aggregate(nil, core.Treasury{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (core.MetricsSnapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", got)
	}
}

func TestAggregatePassesTreasuryThrough(t *testing.T) {
	treasury := core.Treasury{
		CashFlow: core.Money{Cents: 1500000},
		Deltas:   core.Deltas{Income: dec("12.5"), Expenses: dec("8.2"), NetProfit: dec("18.7")},
	}
	got, err := Aggregate([]core.Transaction{tx("1", core.Income, 100)}, treasury)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CashFlow != treasury.CashFlow {
		t.Fatalf("cash flow: got %d", got.CashFlow.Cents)
	}
	if got.Deltas.Income != treasury.Deltas.Income || got.Deltas.CashFlow != nil {
		t.Fatalf("deltas not carried through: %+v", got.Deltas)
	}
	if got.NetProfit.Cents != 100 {
		t.Fatalf("net profit must come from the ledger, got %d", got.NetProfit.Cents)
	}
}

func TestAggregateRejectsUnknownKind(t *testing.T) {
	txs := []core.Transaction{tx("1", core.Income, 100), tx("2", core.Kind("transfer"), 50)}
	_, err := Aggregate(txs, core.Treasury{})
	if !errors.Is(err, core.ErrValidation) || !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAggregateNetProfitIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(40)
		txs := make([]core.Transaction, n)
		for j := range txs {
			kind := core.Income
			cents := rng.Int63n(1_000_000)
			if rng.Intn(2) == 0 {
				kind = core.Expense
				cents = -cents
			}
			txs[j] = tx("", kind, cents)
		}
		got, err := Aggregate(txs, core.Treasury{})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if got.NetProfit != got.TotalIncome.Sub(got.TotalExpenses) {
			t.Fatalf("run %d: net %d != %d - %d", i, got.NetProfit.Cents, got.TotalIncome.Cents, got.TotalExpenses.Cents)
		}
		if got.TotalExpenses.Cents < 0 {
			t.Fatalf("run %d: negative expenses total", i)
		}
	}
}

func TestCompareMetrics(t *testing.T) {
	current := core.MetricsSnapshot{
		TotalIncome:   core.Money{Cents: 11250},
		TotalExpenses: core.Money{Cents: 5000},
		NetProfit:     core.Money{Cents: 6250},
		CashFlow:      core.Money{Cents: 300},
		Deltas:        core.Deltas{Expenses: dec("99")},
	}
	prior := core.MetricsSnapshot{
		TotalIncome:   core.Money{Cents: 10000},
		TotalExpenses: core.Money{Cents: 4000},
		NetProfit:     core.Money{Cents: 6000},
	}
	got := CompareMetrics(current, prior)

	check := func(name string, d *decimal.Decimal, want string) {
		t.Helper()
		if want == "" {
			if d != nil {
				t.Fatalf("%s: expected nil delta, got %s", name, d)
			}
			return
		}
		if d == nil || !d.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%s: got %v, want %s", name, d, want)
		}
	}
	check("income", got.Deltas.Income, "12.5")
	check("expenses", got.Deltas.Expenses, "99")
	check("net profit", got.Deltas.NetProfit, "4.2")
	check("cash flow", got.Deltas.CashFlow, "")
	if got.NetProfit != current.NetProfit {
		t.Fatalf("CompareMetrics must not touch totals")
	}
}
