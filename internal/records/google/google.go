package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"
)

// Default tab base names. Each is prefixed with the period's year, e.g.
// "2024 Transactions".
const (
	DefaultTransactionsSheet = "Transactions"
	DefaultObligationsSheet  = "Obligations"
	DefaultProductsSheet     = "Products"
	DefaultTreasurySheet     = "Treasury"
)

var errNotInitialized = errors.New("sheets service not initialized")

// Ensure interface conformance
var _ records.Store = (*Client)(nil)

// Options configures a read-only Sheets record store.
type Options struct {
	SpreadsheetID      string
	ServiceAccountFile string
	ServiceAccountJSON string

	TransactionsSheet string
	ObligationsSheet  string
	ProductsSheet     string
	TreasurySheet     string

	Logger *applog.Logger
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	obligationsSheet  string
	productsSheet     string
	treasurySheet     string
	logger            *applog.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	credentialsJSON, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)

	c := newClient(svc, opts)
	c.logger = logger
	return c, nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	return &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(opts.SpreadsheetID),
		transactionsSheet: orDefault(opts.TransactionsSheet, DefaultTransactionsSheet),
		obligationsSheet:  orDefault(opts.ObligationsSheet, DefaultObligationsSheet),
		productsSheet:     orDefault(opts.ProductsSheet, DefaultProductsSheet),
		treasurySheet:     orDefault(opts.TreasurySheet, DefaultTreasurySheet),
	}
}

// loadCredentials prefers inline JSON, then the file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(opts Options) ([]byte, error) {
	if j := strings.TrimSpace(opts.ServiceAccountJSON); j != "" {
		return []byte(j), nil
	}
	path := strings.TrimSpace(opts.ServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	values, err := c.read(ctx, c.transactionsSheet, period, "A:F")
	if err != nil {
		return nil, err
	}
	return parseTransactions(values, period)
}

func (c *Client) ListObligations(ctx context.Context, period core.Period) ([]core.ObligationEvent, error) {
	values, err := c.read(ctx, c.obligationsSheet, period, "A:H")
	if err != nil {
		return nil, err
	}
	return parseObligations(values, period)
}

func (c *Client) ListProducts(ctx context.Context, period core.Period) ([]core.ProductLine, error) {
	values, err := c.read(ctx, c.productsSheet, period, "A:E")
	if err != nil {
		return nil, err
	}
	return parseProducts(values, period)
}

// ReadTreasury returns records.ErrPeriodNotFound when the treasury tab has
// no row for the month.
func (c *Client) ReadTreasury(ctx context.Context, period core.Period) (core.Treasury, error) {
	values, err := c.read(ctx, c.treasurySheet, period, "A:F")
	if err != nil {
		return core.Treasury{}, err
	}
	return parseTreasury(values, period)
}

func (c *Client) read(ctx context.Context, base string, period core.Period, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errNotInitialized
	}
	rng := fmt.Sprintf("%s!%s", yearPrefixedName(base, period.Year), cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	if c.logger != nil {
		c.logger.DebugContext(ctx, "Sheet range read",
			"range", rng,
			"rows", len(resp.Values),
			applog.FieldPeriod, period.String())
	}
	return resp.Values, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
