// Package records defines the record store ports the summary engine reads
// snapshots from, plus the helper that materializes a full snapshot.
package records

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"buestanflow/internal/core"
)

// ErrPeriodNotFound is returned by stores that hold no data for a period.
var ErrPeriodNotFound = errors.New("period not found")

// Ports for record store adapters. Every method returns data the caller
// owns; adapters must not hand out slices they keep mutating.
type (
	TransactionLister interface {
		// ListTransactions returns the period's ledger in recording order.
		ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error)
	}

	ObligationLister interface {
		// ListObligations returns debts, overdue invoices and exceptional
		// expenses in source order.
		ListObligations(ctx context.Context, period core.Period) ([]core.ObligationEvent, error)
	}

	ProductLister interface {
		ListProducts(ctx context.Context, period core.Period) ([]core.ProductLine, error)
	}

	// TreasuryReader supplies the figures that are not derivable from the
	// ledger: available cash flow and period-over-period deltas.
	TreasuryReader interface {
		ReadTreasury(ctx context.Context, period core.Period) (core.Treasury, error)
	}

	Store interface {
		TransactionLister
		ObligationLister
		ProductLister
		TreasuryReader
	}
)

// LoadSnapshot reads the four feeds of a period concurrently and returns
// them as one materialized snapshot. Derivations never see a partial one:
// any feed error fails the whole load.
func LoadSnapshot(ctx context.Context, store Store, period core.Period) (core.Snapshot, error) {
	if err := period.Validate(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot %s: %w", period, err)
	}

	snap := core.Snapshot{Period: period}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := store.ListTransactions(ctx, period)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		events, err := store.ListObligations(ctx, period)
		if err != nil {
			return fmt.Errorf("list obligations: %w", err)
		}
		snap.Obligations = events
		return nil
	})
	g.Go(func() error {
		products, err := store.ListProducts(ctx, period)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		snap.Products = products
		return nil
	})
	g.Go(func() error {
		treasury, err := store.ReadTreasury(ctx, period)
		if err != nil {
			return fmt.Errorf("read treasury: %w", err)
		}
		snap.Treasury = treasury
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot %s: %w", period, err)
	}
	return snap, nil
}
