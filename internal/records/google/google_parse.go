package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
	"buestanflow/internal/records"
)

// Every tab starts with a header row; columns are located by name so they
// can be reordered in the spreadsheet. Optional columns may be absent.
var (
	transactionHeaders = tabLayout{required: []string{"ID", "Date", "Kind", "Description", "Amount"}, optional: []string{"Category"}}
	obligationHeaders  = tabLayout{required: []string{"Month", "ID", "Type", "Title", "Amount"}, optional: []string{"Description", "Context", "Due Date"}}
	productHeaders     = tabLayout{required: []string{"Month", "Name", "Profit"}, optional: []string{"Margin", "Revenue"}}
	treasuryHeaders    = tabLayout{required: []string{"Month", "Cash Flow"}, optional: []string{"Income Delta", "Expenses Delta", "Net Profit Delta", "Cash Flow Delta"}}
)

type tabLayout struct {
	required []string
	optional []string
}

// columns maps header names to their index in a row.
type columns map[string]int

func headerColumns(values [][]any, layout tabLayout) (columns, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(columns, len(layout.required)+len(layout.optional))
	var missing []string
	for _, h := range layout.required {
		idx := indexOf(headers, h)
		if idx == -1 {
			missing = append(missing, h)
			continue
		}
		cols[h] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	for _, h := range layout.optional {
		if idx := indexOf(headers, h); idx != -1 {
			cols[h] = idx
		}
	}
	return cols, nil
}

func (c columns) get(row []string, name string) string {
	idx, ok := c[name]
	if !ok {
		return ""
	}
	return safeGet(row, idx)
}

// parseTransactions keeps rows dated inside period, in sheet order.
func parseTransactions(values [][]any, period core.Period) ([]core.Transaction, error) {
	cols, err := headerColumns(values, transactionHeaders)
	if err != nil || cols == nil {
		return nil, err
	}
	var out []core.Transaction
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		date, err := core.ParseDate(cols.get(row, "Date"))
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: date: %w", i+1, err)
		}
		if !period.Contains(date) {
			continue
		}
		cents, err := parseAmount(cols.get(row, "Amount"))
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: amount: %w", i+1, err)
		}
		out = append(out, core.Transaction{
			ID:          cols.get(row, "ID"),
			Kind:        core.Kind(strings.ToLower(cols.get(row, "Kind"))),
			Description: cols.get(row, "Description"),
			Amount:      core.Money{Cents: cents},
			Date:        date,
			Category:    cols.get(row, "Category"),
		})
	}
	return out, nil
}

// parseObligations keeps rows whose Month column matches period. An empty
// amount cell is kept as a missing amount.
func parseObligations(values [][]any, period core.Period) ([]core.ObligationEvent, error) {
	cols, err := headerColumns(values, obligationHeaders)
	if err != nil || cols == nil {
		return nil, err
	}
	var out []core.ObligationEvent
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) || !inMonth(cols.get(row, "Month"), period) {
			continue
		}
		e := core.ObligationEvent{
			ID:          cols.get(row, "ID"),
			Type:        core.ObligationType(strings.ToLower(cols.get(row, "Type"))),
			Title:       cols.get(row, "Title"),
			Description: cols.get(row, "Description"),
			Context:     cols.get(row, "Context"),
		}
		if s := cols.get(row, "Amount"); s != "" {
			cents, err := parseAmount(s)
			if err != nil {
				return nil, fmt.Errorf("obligations row %d: amount: %w", i+1, err)
			}
			e.Amount = core.MoneyPtr(cents)
		}
		if s := cols.get(row, "Due Date"); s != "" {
			due, err := core.ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("obligations row %d: due date: %w", i+1, err)
			}
			e.DueDate = due
		}
		out = append(out, e)
	}
	return out, nil
}

func parseProducts(values [][]any, period core.Period) ([]core.ProductLine, error) {
	cols, err := headerColumns(values, productHeaders)
	if err != nil || cols == nil {
		return nil, err
	}
	var out []core.ProductLine
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) || !inMonth(cols.get(row, "Month"), period) {
			continue
		}
		profit, err := parseAmount(cols.get(row, "Profit"))
		if err != nil {
			return nil, fmt.Errorf("products row %d: profit: %w", i+1, err)
		}
		p := core.ProductLine{Name: cols.get(row, "Name"), Profit: core.Money{Cents: profit}}
		if s := cols.get(row, "Margin"); s != "" {
			if p.Margin, err = parsePercent(s); err != nil {
				return nil, fmt.Errorf("products row %d: margin: %w", i+1, err)
			}
		}
		if s := cols.get(row, "Revenue"); s != "" {
			rev, err := parseAmount(s)
			if err != nil {
				return nil, fmt.Errorf("products row %d: revenue: %w", i+1, err)
			}
			p.Revenue = core.MoneyPtr(rev)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseTreasury(values [][]any, period core.Period) (core.Treasury, error) {
	cols, err := headerColumns(values, treasuryHeaders)
	if err != nil {
		return core.Treasury{}, err
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) || !inMonth(cols.get(row, "Month"), period) {
			continue
		}
		cash, err := parseAmount(cols.get(row, "Cash Flow"))
		if err != nil {
			return core.Treasury{}, fmt.Errorf("treasury row %d: cash flow: %w", i+1, err)
		}
		t := core.Treasury{CashFlow: core.Money{Cents: cash}}
		deltas := []struct {
			header string
			dst    **decimal.Decimal
		}{
			{"Income Delta", &t.Deltas.Income},
			{"Expenses Delta", &t.Deltas.Expenses},
			{"Net Profit Delta", &t.Deltas.NetProfit},
			{"Cash Flow Delta", &t.Deltas.CashFlow},
		}
		for _, d := range deltas {
			s := cols.get(row, d.header)
			if s == "" {
				continue
			}
			v, err := parsePercent(s)
			if err != nil {
				return core.Treasury{}, fmt.Errorf("treasury row %d: %s: %w", i+1, strings.ToLower(d.header), err)
			}
			*d.dst = &v
		}
		return t, nil
	}
	return core.Treasury{}, fmt.Errorf("%w: %s in treasury sheet", records.ErrPeriodNotFound, period)
}

// parseAmount accepts plain numbers and euro formatted strings such as
// "€ 1.234,56" or "-3200".
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	return core.ParseSignedDecimalToCents(s)
}

// parsePercent accepts "12.5", "12,5" or "12.5%".
func parsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func inMonth(s string, period core.Period) bool {
	m, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && m == period.Month
}

// toStrings renders cell values. Numbers are formatted without exponents so
// large amounts survive UNFORMATTED_VALUE rendering.
func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
