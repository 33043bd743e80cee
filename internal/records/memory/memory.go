// Package memory is an in-process record store holding whole period
// snapshots, seeded from YAML or the built-in demo ledger.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"buestanflow/internal/core"
	"buestanflow/internal/records"
)

var _ records.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	periods map[core.Period]core.Snapshot
}

func New(snaps ...core.Snapshot) *Store {
	s := &Store{periods: make(map[core.Period]core.Snapshot, len(snaps))}
	for _, snap := range snaps {
		s.Put(snap)
	}
	return s
}

// NewFromFile seeds a store from a YAML document. An empty path yields the
// demo ledger.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return NewDemo(), nil
	}
	snaps, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed memory store: %w", err)
	}
	return New(snaps...), nil
}

func NewDemo() *Store {
	return New(DemoSnapshots()...)
}

// Put replaces the snapshot of its period. The store keeps its own copy.
func (s *Store) Put(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[snap.Period] = clone(snap)
}

// Periods lists the stored periods, oldest first.
func (s *Store) Periods() []core.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Period, 0, len(s.periods))
	for p := range s.periods {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b core.Period) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return out
}

func (s *Store) ListTransactions(_ context.Context, period core.Period) ([]core.Transaction, error) {
	snap, err := s.get(period)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}

func (s *Store) ListObligations(_ context.Context, period core.Period) ([]core.ObligationEvent, error) {
	snap, err := s.get(period)
	if err != nil {
		return nil, err
	}
	return snap.Obligations, nil
}

func (s *Store) ListProducts(_ context.Context, period core.Period) ([]core.ProductLine, error) {
	snap, err := s.get(period)
	if err != nil {
		return nil, err
	}
	return snap.Products, nil
}

func (s *Store) ReadTreasury(_ context.Context, period core.Period) (core.Treasury, error) {
	snap, err := s.get(period)
	if err != nil {
		return core.Treasury{}, err
	}
	return snap.Treasury, nil
}

func (s *Store) get(period core.Period) (core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.periods[period]
	if !ok {
		return core.Snapshot{}, fmt.Errorf("%w: %s", records.ErrPeriodNotFound, period)
	}
	return clone(snap), nil
}

// clone copies every slice and pointer so callers never share state with
// the store.
func clone(snap core.Snapshot) core.Snapshot {
	out := snap
	out.Transactions = slices.Clone(snap.Transactions)
	out.Obligations = slices.Clone(snap.Obligations)
	for i, e := range out.Obligations {
		if e.Amount != nil {
			out.Obligations[i].Amount = core.MoneyPtr(e.Amount.Cents)
		}
	}
	out.Products = slices.Clone(snap.Products)
	for i, p := range out.Products {
		if p.Revenue != nil {
			out.Products[i].Revenue = core.MoneyPtr(p.Revenue.Cents)
		}
	}
	return out
}
