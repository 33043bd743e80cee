package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the tables one to one.
type (
	TreasuryRow struct {
		Period         string
		CashFlowCents  int64
		IncomeDelta    sql.NullString
		ExpensesDelta  sql.NullString
		NetProfitDelta sql.NullString
		CashFlowDelta  sql.NullString
	}

	TransactionRow struct {
		Period      string
		Position    int64
		ID          string
		Kind        string
		Description string
		AmountCents int64
		Date        string
		Category    string
	}

	ObligationRow struct {
		Period      string
		Position    int64
		ID          string
		Type        string
		Title       string
		Description string
		AmountCents sql.NullInt64
		Context     string
		DueDate     string
	}

	ProductRow struct {
		Period       string
		Position     int64
		Name         string
		ProfitCents  int64
		Margin       string
		RevenueCents sql.NullInt64
	}
)

const getTreasury = `SELECT period, cash_flow_cents, income_delta, expenses_delta, net_profit_delta, cash_flow_delta
FROM treasury WHERE period = ?`

func (q *Queries) GetTreasury(ctx context.Context, period string) (TreasuryRow, error) {
	var r TreasuryRow
	err := q.db.QueryRowContext(ctx, getTreasury, period).Scan(
		&r.Period, &r.CashFlowCents, &r.IncomeDelta, &r.ExpensesDelta, &r.NetProfitDelta, &r.CashFlowDelta)
	return r, err
}

const listPeriods = `SELECT period FROM treasury ORDER BY period`

func (q *Queries) ListPeriods(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPeriods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const listTransactions = `SELECT period, position, id, kind, description, amount_cents, date, category
FROM transactions WHERE period = ? ORDER BY position`

func (q *Queries) ListTransactions(ctx context.Context, period string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.Period, &r.Position, &r.ID, &r.Kind, &r.Description, &r.AmountCents, &r.Date, &r.Category); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listObligations = `SELECT period, position, id, type, title, description, amount_cents, context, due_date
FROM obligations WHERE period = ? ORDER BY position`

func (q *Queries) ListObligations(ctx context.Context, period string) ([]ObligationRow, error) {
	rows, err := q.db.QueryContext(ctx, listObligations, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ObligationRow
	for rows.Next() {
		var r ObligationRow
		if err := rows.Scan(&r.Period, &r.Position, &r.ID, &r.Type, &r.Title, &r.Description, &r.AmountCents, &r.Context, &r.DueDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listProducts = `SELECT period, position, name, profit_cents, margin, revenue_cents
FROM products WHERE period = ? ORDER BY position`

func (q *Queries) ListProducts(ctx context.Context, period string) ([]ProductRow, error) {
	rows, err := q.db.QueryContext(ctx, listProducts, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductRow
	for rows.Next() {
		var r ProductRow
		if err := rows.Scan(&r.Period, &r.Position, &r.Name, &r.ProfitCents, &r.Margin, &r.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const upsertTreasury = `INSERT INTO treasury (period, cash_flow_cents, income_delta, expenses_delta, net_profit_delta, cash_flow_delta, imported_at)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(period) DO UPDATE SET
    cash_flow_cents = excluded.cash_flow_cents,
    income_delta = excluded.income_delta,
    expenses_delta = excluded.expenses_delta,
    net_profit_delta = excluded.net_profit_delta,
    cash_flow_delta = excluded.cash_flow_delta,
    imported_at = excluded.imported_at`

func (q *Queries) UpsertTreasury(ctx context.Context, r TreasuryRow) error {
	_, err := q.db.ExecContext(ctx, upsertTreasury,
		r.Period, r.CashFlowCents, r.IncomeDelta, r.ExpensesDelta, r.NetProfitDelta, r.CashFlowDelta)
	return err
}

const insertTransaction = `INSERT INTO transactions (period, position, id, kind, description, amount_cents, date, category)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		r.Period, r.Position, r.ID, r.Kind, r.Description, r.AmountCents, r.Date, r.Category)
	return err
}

const insertObligation = `INSERT INTO obligations (period, position, id, type, title, description, amount_cents, context, due_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertObligation(ctx context.Context, r ObligationRow) error {
	_, err := q.db.ExecContext(ctx, insertObligation,
		r.Period, r.Position, r.ID, r.Type, r.Title, r.Description, r.AmountCents, r.Context, r.DueDate)
	return err
}

const insertProduct = `INSERT INTO products (period, position, name, profit_cents, margin, revenue_cents)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertProduct(ctx context.Context, r ProductRow) error {
	_, err := q.db.ExecContext(ctx, insertProduct,
		r.Period, r.Position, r.Name, r.ProfitCents, r.Margin, r.RevenueCents)
	return err
}

// DeletePeriod removes every row of period from the four tables.
func (q *Queries) DeletePeriod(ctx context.Context, period string) error {
	for _, stmt := range []string{
		`DELETE FROM transactions WHERE period = ?`,
		`DELETE FROM obligations WHERE period = ?`,
		`DELETE FROM products WHERE period = ?`,
		`DELETE FROM treasury WHERE period = ?`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt, period); err != nil {
			return err
		}
	}
	return nil
}
