package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	ObligationDebt    ObligationType = "debt"
	ObligationOverdue ObligationType = "overdue"
	ObligationExpense ObligationType = "expense"
)

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type (
	// Kind is the movement direction of a ledger transaction.
	Kind string

	// ObligationType tags the source event an alert is derived from.
	// Values outside the known set are carried through unchanged.
	ObligationType string

	// Severity is the priority tier attached to a derived alert.
	Severity string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one immutable ledger movement. Amount is signed:
	// income positive, expense negative by convention.
	Transaction struct {
		ID          string
		Kind        Kind
		Description string
		Amount      Money
		Date        Date
		Category    string
	}

	// ObligationEvent is a receivable/payable or exceptional expense.
	// A nil Amount means the record store did not supply one.
	ObligationEvent struct {
		ID          string
		Type        ObligationType
		Title       string
		Description string
		Amount      *Money
		Context     string // due or occurred context, e.g. "due in 3 days"
		DueDate     Date   // optional
	}

	// Alert is derived from exactly one ObligationEvent and has no identity
	// of its own beyond SourceID.
	Alert struct {
		SourceID    string
		Type        ObligationType
		Title       string
		Description string
		Amount      Money
		Severity    Severity
	}

	// ProductLine carries per-product profitability for one period.
	// Margin is a percentage; Revenue is optional.
	ProductLine struct {
		Name    string
		Profit  Money
		Margin  decimal.Decimal
		Revenue *Money
	}

	RankedProduct struct {
		ProductLine
		Rank       int // 1-based
		Profitable bool
	}

	// Deltas are period-over-period percentages supplied by the record store.
	// A nil entry means no comparison is available.
	Deltas struct {
		Income    *decimal.Decimal
		Expenses  *decimal.Decimal
		NetProfit *decimal.Decimal
		CashFlow  *decimal.Decimal
	}

	// Treasury holds the figures that cannot be derived from the transaction
	// list: the available cash flow and the externally computed deltas.
	Treasury struct {
		CashFlow Money
		Deltas   Deltas
	}

	MetricsSnapshot struct {
		TotalIncome   Money
		TotalExpenses Money
		NetProfit     Money
		CashFlow      Money
		Deltas        Deltas
	}

	// Snapshot is a fully materialized, read-only view of one reporting period.
	Snapshot struct {
		Period       Period
		Transactions []Transaction
		Obligations  []ObligationEvent
		Products     []ProductLine
		Treasury     Treasury
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrMissingAmount  = errors.New("amount is missing")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrUnknownKind    = errors.New("unknown transaction kind")
	ErrEmptyName      = errors.New("empty product name")
	ErrDuplicateName  = errors.New("duplicate product name")
	ErrInvalidRevenue = errors.New("revenue must be positive")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input leaves the
// zero date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsValid reports whether k is one of the known movement kinds.
func (k Kind) IsValid() bool {
	switch k {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// Rank orders severities: critical > high > medium > low. Unknown values
// rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity parses a severity tag, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() == 0 {
		return "", errors.New("invalid severity: " + s)
	}
	return sev, nil
}

// Validate checks a transaction before aggregation or filtering.
func (t Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return &ValidationError{Entity: "transaction", ID: t.ID, Field: "kind", Err: ErrUnknownKind}
	}
	return nil
}

// Validate rejects events whose amount is missing or negative.
func (e ObligationEvent) Validate() error {
	if e.Amount == nil {
		return &ValidationError{Entity: "obligation", ID: e.ID, Field: "amount", Err: ErrMissingAmount}
	}
	if e.Amount.Cents < 0 {
		return &ValidationError{Entity: "obligation", ID: e.ID, Field: "amount", Err: ErrNegativeAmount}
	}
	return nil
}

func (p ProductLine) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Entity: "product", Field: "name", Err: ErrEmptyName}
	}
	if p.Revenue != nil && p.Revenue.Cents <= 0 {
		return &ValidationError{Entity: "product", ID: p.Name, Field: "revenue", Err: ErrInvalidRevenue}
	}
	return nil
}

// IsProfitable reports whether the product line made a strictly positive profit.
func (p ProductLine) IsProfitable() bool {
	return p.Profit.Cents > 0
}
