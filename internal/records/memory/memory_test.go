package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
	"buestanflow/internal/records"
)

var jan2024 = core.Period{Year: 2024, Month: 1}

func TestDemoStoreServesJanuary2024(t *testing.T) {
	s := NewDemo()
	snap, err := records.LoadSnapshot(context.Background(), s, jan2024)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Transactions) != 5 || len(snap.Obligations) != 3 || len(snap.Products) != 5 {
		t.Fatalf("unexpected sizes: %d/%d/%d", len(snap.Transactions), len(snap.Obligations), len(snap.Products))
	}
	if got := snap.Transactions[4]; got.Amount.Cents != -2500000 || got.Kind != core.Expense || !got.Date.Equal(core.NewDate(2024, 1, 12).Time) {
		t.Fatalf("unexpected payroll transaction: %+v", got)
	}
	if snap.Treasury.CashFlow.Cents != 1500000 {
		t.Fatalf("cash flow: %d", snap.Treasury.CashFlow.Cents)
	}
	if d := snap.Treasury.Deltas.Income; d == nil || !d.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("income delta: %v", d)
	}
	if snap.Treasury.Deltas.CashFlow != nil {
		t.Fatalf("cash flow delta should be absent")
	}
	if e := snap.Obligations[2]; e.Type != core.ObligationExpense || e.Amount == nil || e.Amount.Cents != 320000 || !e.DueDate.IsZero() {
		t.Fatalf("unexpected obligation: %+v", e)
	}
	if p := snap.Products[4]; p.Profit.Cents != -200000 || !p.Margin.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestStoreUnknownPeriod(t *testing.T) {
	s := NewDemo()
	_, err := s.ListTransactions(context.Background(), core.Period{Year: 2023, Month: 12})
	if !errors.Is(err, records.ErrPeriodNotFound) {
		t.Fatalf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewDemo()
	ctx := context.Background()

	txs, _ := s.ListTransactions(ctx, jan2024)
	txs[0].Amount = core.Money{Cents: 1}
	events, _ := s.ListObligations(ctx, jan2024)
	events[0].Amount.Cents = -1

	again, _ := s.ListTransactions(ctx, jan2024)
	if again[0].Amount.Cents != 550000 {
		t.Fatalf("transaction mutated through returned slice")
	}
	eventsAgain, _ := s.ListObligations(ctx, jan2024)
	if eventsAgain[0].Amount.Cents != 1500000 {
		t.Fatalf("obligation mutated through returned pointer")
	}
}

func TestPutAndPeriods(t *testing.T) {
	s := New()
	s.Put(core.Snapshot{Period: core.Period{Year: 2024, Month: 3}})
	s.Put(core.Snapshot{Period: core.Period{Year: 2023, Month: 11}})
	s.Put(core.Snapshot{Period: core.Period{Year: 2024, Month: 1}})

	got := s.Periods()
	want := []string{"2023-11", "2024-01", "2024-03"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `periods:
  - period: 2024-02
    cash_flow: "100.50"
    transactions:
      - id: t1
        kind: income
        amount: "10,25"
        date: 2024-02-01
    obligations:
      - id: o1
        type: debt
        title: missing amount
    products:
      - name: P
        profit: "50"
        margin: "0"
        revenue: "200"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	feb := core.Period{Year: 2024, Month: 2}
	snap, err := records.LoadSnapshot(context.Background(), s, feb)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Treasury.CashFlow.Cents != 10050 || snap.Transactions[0].Amount.Cents != 1025 {
		t.Fatalf("amounts not converted: %+v", snap)
	}
	if snap.Obligations[0].Amount != nil {
		t.Fatalf("missing amount must stay nil so derivation can reject it")
	}
	if r := snap.Products[0].Revenue; r == nil || r.Cents != 20000 {
		t.Fatalf("revenue: %v", r)
	}
}

func TestNewFromFileEmptyPathUsesDemo(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if periods := s.Periods(); len(periods) != 1 || periods[0] != jan2024 {
		t.Fatalf("expected demo period, got %v", periods)
	}
}

func TestDecodeSnapshotsErrors(t *testing.T) {
	cases := map[string]string{
		"bad period":     "periods:\n  - period: 2024-13\n",
		"bad amount":     "periods:\n  - period: 2024-01\n    transactions:\n      - kind: income\n        amount: abc\n",
		"unknown field":  "periods:\n  - period: 2024-01\n    colour: red\n",
		"duplicate":      "periods:\n  - period: 2024-01\n  - period: 2024-01\n",
		"bad date":       "periods:\n  - period: 2024-01\n    transactions:\n      - kind: income\n        amount: \"1\"\n        date: yesterday\n",
		"bad margin":     "periods:\n  - period: 2024-01\n    products:\n      - name: A\n        profit: \"1\"\n        margin: lots\n",
		"malformed yaml": "periods: [oops",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeSnapshots(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDecodeSnapshotsEmpty(t *testing.T) {
	snaps, err := DecodeSnapshots(strings.NewReader(""))
	if err != nil || len(snaps) != 0 {
		t.Fatalf("expected no snapshots, got %v, %v", snaps, err)
	}
}
