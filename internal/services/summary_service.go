package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"
)

// SummaryOptions carries the presentation choices that affect derivation.
type SummaryOptions struct {
	Selector   Selector   // transaction feed filter, defaults to all
	AlertOrder AlertOrder // defaults to source order
}

func (o SummaryOptions) withDefaults() SummaryOptions {
	if o.Selector == "" {
		o.Selector = SelectAll
	}
	if o.AlertOrder == "" {
		o.AlertOrder = OrderSource
	}
	return o
}

// SummaryService loads period snapshots from a record store and derives
// every widget from them.
type SummaryService struct {
	store  records.Store
	logger *applog.Logger
}

func NewSummaryService(store records.Store, logger *applog.Logger) *SummaryService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SummaryService{
		store:  store,
		logger: logger.WithComponent(applog.ComponentSummary),
	}
}

// Build loads the snapshot for period and derives its summary. A load
// failure is returned as an error; derivation failures are reported per
// widget in Summary.Errors. Deltas the store does not supply are computed
// against the previous month when it exists.
func (s *SummaryService) Build(ctx context.Context, period core.Period, opts SummaryOptions) (core.Summary, error) {
	snap, err := records.LoadSnapshot(ctx, s.store, period)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load snapshot",
			applog.NewFields().
				WithPeriod(period.String()).
				WithOperation(applog.OpLoad).
				WithErrorType(loadErrorType(err)).
				WithError(err).
				ToSlice()...)
		return core.Summary{}, err
	}
	s.logger.DebugContext(ctx, "Snapshot loaded",
		applog.NewFields().
			WithPeriod(period.String()).
			WithSnapshotSize(len(snap.Transactions), len(snap.Obligations), len(snap.Products)).
			ToSlice()...)

	opts = opts.withDefaults()
	sum := Derive(snap, opts)
	if sum.Err(core.WidgetMetrics) == nil && missingDelta(sum.Metrics.Deltas) {
		sum.Metrics = s.compareWithPrior(ctx, period, sum.Metrics)
	}

	var failed []string
	for _, w := range core.Widgets {
		if err := sum.Err(w); err != nil {
			failed = append(failed, string(w))
			s.logger.WarnContext(ctx, "Widget derivation failed",
				applog.NewFields().
					WithPeriod(period.String()).
					WithWidget(string(w)).
					WithOperation(widgetOps[w]).
					WithSummaryOptions(string(opts.Selector), string(opts.AlertOrder)).
					WithErrorType(derivationErrorType(err)).
					WithError(err).
					ToSlice()...)
		}
	}
	applog.NewStructuredLogger(s.logger).
		LogSummaryDerived(ctx, period.String(), len(sum.Alerts), sum.Metrics.NetProfit.Cents, failed)
	return sum, nil
}

// compareWithPrior fills the deltas the store left empty from the previous
// month's ledger. A prior month that is missing or unreadable leaves them
// nil; it never fails the summary.
func (s *SummaryService) compareWithPrior(ctx context.Context, period core.Period, current core.MetricsSnapshot) core.MetricsSnapshot {
	prev := period.Prev()
	if prev.Validate() != nil {
		return current
	}
	prior, err := s.priorMetrics(ctx, prev)
	if err != nil {
		if !errors.Is(err, records.ErrPeriodNotFound) {
			s.logger.WarnContext(ctx, "Prior period unavailable, deltas left empty",
				applog.NewFields().
					WithPeriod(period.String()).
					WithOperation(applog.OpAggregate).
					WithErrorType(loadErrorType(err)).
					WithError(err).
					ToSlice()...)
		}
		return current
	}
	return CompareMetrics(current, prior)
}

func (s *SummaryService) priorMetrics(ctx context.Context, prev core.Period) (core.MetricsSnapshot, error) {
	treasury, err := s.store.ReadTreasury(ctx, prev)
	if err != nil {
		return core.MetricsSnapshot{}, fmt.Errorf("read treasury %s: %w", prev, err)
	}
	txs, err := s.store.ListTransactions(ctx, prev)
	if err != nil {
		return core.MetricsSnapshot{}, fmt.Errorf("list transactions %s: %w", prev, err)
	}
	return Aggregate(txs, treasury)
}

func missingDelta(d core.Deltas) bool {
	return d.Income == nil || d.Expenses == nil || d.NetProfit == nil || d.CashFlow == nil
}

var widgetOps = map[core.Widget]string{
	core.WidgetMetrics:      applog.OpAggregate,
	core.WidgetAlerts:       applog.OpAlerts,
	core.WidgetProducts:     applog.OpRank,
	core.WidgetTransactions: applog.OpFilter,
}

// Derive runs the four derivations over snap concurrently. They share no
// state and a failure in one never stops the others.
func Derive(snap core.Snapshot, opts SummaryOptions) core.Summary {
	opts = opts.withDefaults()
	sum := core.Summary{Period: snap.Period}
	var errMetrics, errAlerts, errProducts, errTransactions error

	var g errgroup.Group
	g.Go(func() error {
		sum.Metrics, errMetrics = Aggregate(snap.Transactions, snap.Treasury)
		return nil
	})
	g.Go(func() error {
		sum.Alerts, errAlerts = AlertDeriver{Order: opts.AlertOrder}.Derive(snap.Obligations)
		return nil
	})
	g.Go(func() error {
		sum.Products, errProducts = Rank(snap.Products)
		return nil
	})
	g.Go(func() error {
		sum.Transactions, errTransactions = Filter(snap.Transactions, opts.Selector)
		return nil
	})
	_ = g.Wait()

	for w, err := range map[core.Widget]error{
		core.WidgetMetrics:      errMetrics,
		core.WidgetAlerts:       errAlerts,
		core.WidgetProducts:     errProducts,
		core.WidgetTransactions: errTransactions,
	} {
		if err == nil {
			continue
		}
		if sum.Errors == nil {
			sum.Errors = make(map[core.Widget]error)
		}
		sum.Errors[w] = fmt.Errorf("%s: %w", w, err)
	}
	return sum
}

func derivationErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return applog.ErrorTypeValidation
	case errors.Is(err, core.ErrInvalidSelector):
		return applog.ErrorTypeSelector
	default:
		return applog.ErrorTypeInternal
	}
}

func loadErrorType(err error) string {
	switch {
	case errors.Is(err, records.ErrPeriodNotFound):
		return applog.ErrorTypeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	default:
		return applog.ErrorTypeDatabase
	}
}
