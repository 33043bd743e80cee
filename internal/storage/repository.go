package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"

	_ "modernc.org/sqlite"
)

var _ records.Store = (*SQLiteRepository)(nil)

// SQLiteRepository is the SQL record store. Snapshots are written whole by
// ImportSnapshot and read back per feed.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentStorage),
	}, nil
}

// WithLogger replaces the repository logger.
func (r *SQLiteRepository) WithLogger(logger *applog.Logger) *SQLiteRepository {
	if logger != nil {
		r.logger = logger.WithComponent(applog.ComponentStorage)
	}
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, period.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions %s: %w", period, err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		date, err := parseStoredDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", row.ID, err)
		}
		out = append(out, core.Transaction{
			ID:          row.ID,
			Kind:        core.Kind(row.Kind),
			Description: row.Description,
			Amount:      core.Money{Cents: row.AmountCents},
			Date:        date,
			Category:    row.Category,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) ListObligations(ctx context.Context, period core.Period) ([]core.ObligationEvent, error) {
	rows, err := r.queries.ListObligations(ctx, period.String())
	if err != nil {
		return nil, fmt.Errorf("list obligations %s: %w", period, err)
	}
	out := make([]core.ObligationEvent, 0, len(rows))
	for _, row := range rows {
		due, err := parseStoredDate(row.DueDate)
		if err != nil {
			return nil, fmt.Errorf("obligation %q: %w", row.ID, err)
		}
		e := core.ObligationEvent{
			ID:          row.ID,
			Type:        core.ObligationType(row.Type),
			Title:       row.Title,
			Description: row.Description,
			Context:     row.Context,
			DueDate:     due,
		}
		if row.AmountCents.Valid {
			e.Amount = core.MoneyPtr(row.AmountCents.Int64)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) ListProducts(ctx context.Context, period core.Period) ([]core.ProductLine, error) {
	rows, err := r.queries.ListProducts(ctx, period.String())
	if err != nil {
		return nil, fmt.Errorf("list products %s: %w", period, err)
	}
	out := make([]core.ProductLine, 0, len(rows))
	for _, row := range rows {
		margin, err := decimal.NewFromString(row.Margin)
		if err != nil {
			return nil, fmt.Errorf("product %q: margin: %w", row.Name, err)
		}
		p := core.ProductLine{Name: row.Name, Profit: core.Money{Cents: row.ProfitCents}, Margin: margin}
		if row.RevenueCents.Valid {
			p.Revenue = core.MoneyPtr(row.RevenueCents.Int64)
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadTreasury returns records.ErrPeriodNotFound for periods never imported.
func (r *SQLiteRepository) ReadTreasury(ctx context.Context, period core.Period) (core.Treasury, error) {
	row, err := r.queries.GetTreasury(ctx, period.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Treasury{}, fmt.Errorf("%w: %s", records.ErrPeriodNotFound, period)
	}
	if err != nil {
		return core.Treasury{}, fmt.Errorf("read treasury %s: %w", period, err)
	}

	t := core.Treasury{CashFlow: core.Money{Cents: row.CashFlowCents}}
	for _, d := range []struct {
		src sql.NullString
		dst **decimal.Decimal
	}{
		{row.IncomeDelta, &t.Deltas.Income},
		{row.ExpensesDelta, &t.Deltas.Expenses},
		{row.NetProfitDelta, &t.Deltas.NetProfit},
		{row.CashFlowDelta, &t.Deltas.CashFlow},
	} {
		if !d.src.Valid {
			continue
		}
		v, err := decimal.NewFromString(d.src.String)
		if err != nil {
			return core.Treasury{}, fmt.Errorf("treasury %s: delta: %w", period, err)
		}
		*d.dst = &v
	}
	return t, nil
}

// Periods lists every imported period, oldest first.
func (r *SQLiteRepository) Periods(ctx context.Context) ([]core.Period, error) {
	names, err := r.queries.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	out := make([]core.Period, 0, len(names))
	for _, n := range names {
		p, err := core.ParsePeriod(n)
		if err != nil {
			return nil, fmt.Errorf("stored period %q: %w", n, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ImportSnapshot replaces everything stored for the snapshot's period in a
// single transaction. Records are stored as given; validation happens when
// they are derived.
func (r *SQLiteRepository) ImportSnapshot(ctx context.Context, snap core.Snapshot) error {
	if err := snap.Period.Validate(); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	period := snap.Period.String()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.DeletePeriod(ctx, period); err != nil {
		return fmt.Errorf("clear period %s: %w", period, err)
	}
	if err := q.UpsertTreasury(ctx, TreasuryRow{
		Period:         period,
		CashFlowCents:  snap.Treasury.CashFlow.Cents,
		IncomeDelta:    nullDecimal(snap.Treasury.Deltas.Income),
		ExpensesDelta:  nullDecimal(snap.Treasury.Deltas.Expenses),
		NetProfitDelta: nullDecimal(snap.Treasury.Deltas.NetProfit),
		CashFlowDelta:  nullDecimal(snap.Treasury.Deltas.CashFlow),
	}); err != nil {
		return fmt.Errorf("save treasury: %w", err)
	}
	for i, t := range snap.Transactions {
		if err := q.InsertTransaction(ctx, TransactionRow{
			Period:      period,
			Position:    int64(i),
			ID:          t.ID,
			Kind:        string(t.Kind),
			Description: t.Description,
			AmountCents: t.Amount.Cents,
			Date:        t.Date.String(),
			Category:    t.Category,
		}); err != nil {
			return fmt.Errorf("save transaction %d: %w", i, err)
		}
	}
	for i, e := range snap.Obligations {
		if err := q.InsertObligation(ctx, ObligationRow{
			Period:      period,
			Position:    int64(i),
			ID:          e.ID,
			Type:        string(e.Type),
			Title:       e.Title,
			Description: e.Description,
			AmountCents: nullMoney(e.Amount),
			Context:     e.Context,
			DueDate:     e.DueDate.String(),
		}); err != nil {
			return fmt.Errorf("save obligation %d: %w", i, err)
		}
	}
	for i, p := range snap.Products {
		if err := q.InsertProduct(ctx, ProductRow{
			Period:       period,
			Position:     int64(i),
			Name:         p.Name,
			ProfitCents:  p.Profit.Cents,
			Margin:       p.Margin.String(),
			RevenueCents: nullMoney(p.Revenue),
		}); err != nil {
			return fmt.Errorf("save product %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Snapshot imported",
		applog.NewFields().
			WithPeriod(period).
			WithOperation(applog.OpImport).
			WithSnapshotSize(len(snap.Transactions), len(snap.Obligations), len(snap.Products)).
			ToSlice()...)
	return nil
}

func parseStoredDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullMoney(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}
