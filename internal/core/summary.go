package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies a reporting month.
type Period struct {
	Year  int
	Month int // 1-12
}

// Widget names one independently derived view of a summary.
type Widget string

const (
	WidgetMetrics      Widget = "metrics"
	WidgetAlerts       Widget = "alerts"
	WidgetProducts     Widget = "products"
	WidgetTransactions Widget = "transactions"
)

// Widgets lists every view in display order.
var Widgets = []Widget{WidgetMetrics, WidgetAlerts, WidgetProducts, WidgetTransactions}

// Summary bundles the derived views of one snapshot. A failure in one
// widget is recorded in Errors and leaves the others populated.
type Summary struct {
	Period       Period
	Metrics      MetricsSnapshot
	Alerts       []Alert
	Products     []RankedProduct
	Transactions []Transaction
	Errors       map[Widget]error
}

// Err returns the derivation error for w, if any.
func (s Summary) Err(w Widget) error {
	if s.Errors == nil {
		return nil
	}
	return s.Errors[w]
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// ParsePeriod parses YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil || len(y) != 4 {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	return nil
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}
