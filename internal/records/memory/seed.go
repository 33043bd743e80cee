package memory

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"buestanflow/internal/core"
)

//go:embed demo.yaml
var demoSeed []byte

// Seed documents hold one or more periods. Amounts are decimal strings in
// major units ("5500", "-32.50") and are converted to cents on load.
type (
	seedDocument struct {
		Periods []seedPeriod `yaml:"periods"`
	}

	seedPeriod struct {
		Period       string            `yaml:"period"`
		CashFlow     string            `yaml:"cash_flow"`
		Deltas       seedDeltas        `yaml:"deltas"`
		Transactions []seedTransaction `yaml:"transactions"`
		Obligations  []seedObligation  `yaml:"obligations"`
		Products     []seedProduct     `yaml:"products"`
	}

	seedDeltas struct {
		Income    *decimal.Decimal `yaml:"income"`
		Expenses  *decimal.Decimal `yaml:"expenses"`
		NetProfit *decimal.Decimal `yaml:"net_profit"`
		CashFlow  *decimal.Decimal `yaml:"cash_flow"`
	}

	seedTransaction struct {
		ID          string    `yaml:"id"`
		Kind        string    `yaml:"kind"`
		Description string    `yaml:"description"`
		Amount      string    `yaml:"amount"`
		Date        core.Date `yaml:"date"`
		Category    string    `yaml:"category"`
	}

	seedObligation struct {
		ID          string    `yaml:"id"`
		Type        string    `yaml:"type"`
		Title       string    `yaml:"title"`
		Description string    `yaml:"description"`
		Amount      *string   `yaml:"amount"`
		Context     string    `yaml:"context"`
		DueDate     core.Date `yaml:"due_date"`
	}

	seedProduct struct {
		Name    string          `yaml:"name"`
		Profit  string          `yaml:"profit"`
		Margin  decimal.Decimal `yaml:"margin"`
		Revenue *string         `yaml:"revenue"`
	}
)

// DecodeSnapshots reads a YAML seed document. Records are converted but not
// validated: validation belongs to the derivations that consume them.
func DecodeSnapshots(r io.Reader) ([]core.Snapshot, error) {
	var doc seedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	snaps := make([]core.Snapshot, 0, len(doc.Periods))
	seen := make(map[core.Period]struct{}, len(doc.Periods))
	for _, p := range doc.Periods {
		snap, err := p.snapshot()
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", p.Period, err)
		}
		if _, dup := seen[snap.Period]; dup {
			return nil, fmt.Errorf("period %s listed twice", snap.Period)
		}
		seen[snap.Period] = struct{}{}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// LoadFile decodes the seed document at path.
func LoadFile(path string) ([]core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return DecodeSnapshots(f)
}

// DemoSnapshots returns the built-in January 2024 ledger.
func DemoSnapshots() []core.Snapshot {
	snaps, err := DecodeSnapshots(bytes.NewReader(demoSeed))
	if err != nil {
		panic(fmt.Sprintf("memory: embedded demo seed is invalid: %v", err))
	}
	return snaps
}

func (p seedPeriod) snapshot() (core.Snapshot, error) {
	period, err := core.ParsePeriod(p.Period)
	if err != nil {
		return core.Snapshot{}, err
	}
	snap := core.Snapshot{Period: period}

	if p.CashFlow != "" {
		cents, err := core.ParseSignedDecimalToCents(p.CashFlow)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("cash_flow: %w", err)
		}
		snap.Treasury.CashFlow = core.Money{Cents: cents}
	}
	snap.Treasury.Deltas = core.Deltas{
		Income:    p.Deltas.Income,
		Expenses:  p.Deltas.Expenses,
		NetProfit: p.Deltas.NetProfit,
		CashFlow:  p.Deltas.CashFlow,
	}

	for i, t := range p.Transactions {
		cents, err := core.ParseSignedDecimalToCents(t.Amount)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("transaction %d: amount: %w", i, err)
		}
		snap.Transactions = append(snap.Transactions, core.Transaction{
			ID:          t.ID,
			Kind:        core.Kind(t.Kind),
			Description: t.Description,
			Amount:      core.Money{Cents: cents},
			Date:        t.Date,
			Category:    t.Category,
		})
	}

	for i, o := range p.Obligations {
		event := core.ObligationEvent{
			ID:          o.ID,
			Type:        core.ObligationType(o.Type),
			Title:       o.Title,
			Description: o.Description,
			Context:     o.Context,
			DueDate:     o.DueDate,
		}
		if o.Amount != nil {
			cents, err := core.ParseSignedDecimalToCents(*o.Amount)
			if err != nil {
				return core.Snapshot{}, fmt.Errorf("obligation %d: amount: %w", i, err)
			}
			event.Amount = core.MoneyPtr(cents)
		}
		snap.Obligations = append(snap.Obligations, event)
	}

	for i, pr := range p.Products {
		cents, err := core.ParseSignedDecimalToCents(pr.Profit)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("product %d: profit: %w", i, err)
		}
		line := core.ProductLine{Name: pr.Name, Profit: core.Money{Cents: cents}, Margin: pr.Margin}
		if pr.Revenue != nil {
			rev, err := core.ParseSignedDecimalToCents(*pr.Revenue)
			if err != nil {
				return core.Snapshot{}, fmt.Errorf("product %d: revenue: %w", i, err)
			}
			line.Revenue = core.MoneyPtr(rev)
		}
		snap.Products = append(snap.Products, line)
	}
	return snap, nil
}
