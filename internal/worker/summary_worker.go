// Package worker derives summaries off the request path: on demand from
// queued summary requests and periodically for the current month, and
// publishes the alerts that reach the notification threshold.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"buestanflow/internal/amqp"
	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"
	"buestanflow/internal/services"
)

// SummaryBuilder is satisfied by services.SummaryService.
type SummaryBuilder interface {
	Build(ctx context.Context, period core.Period, opts services.SummaryOptions) (core.Summary, error)
}

// AlertPublisher is satisfied by amqp.Client.
type AlertPublisher interface {
	PublishAlertNotification(ctx context.Context, period core.Period, alerts []core.Alert) error
}

// Invalidator drops cached summaries of a period before a refresh.
type Invalidator interface {
	Invalidate(period core.Period) int
}

type Options struct {
	MinSeverity core.Severity  // alerts below it are not published; default high
	Invalidator Invalidator    // optional
	Now         func() time.Time
	Logger      *applog.Logger
}

type SummaryWorker struct {
	builder     SummaryBuilder
	publisher   AlertPublisher
	minSeverity core.Severity
	invalidator Invalidator
	now         func() time.Time
	logger      *applog.Logger

	mu        sync.Mutex
	published map[core.Period]string // fingerprint of the last notification
}

func NewSummaryWorker(builder SummaryBuilder, publisher AlertPublisher, opts Options) *SummaryWorker {
	if opts.MinSeverity == "" {
		opts.MinSeverity = core.SeverityHigh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	return &SummaryWorker{
		builder:     builder,
		publisher:   publisher,
		minSeverity: opts.MinSeverity,
		invalidator: opts.Invalidator,
		now:         opts.Now,
		logger:      opts.Logger.WithComponent(applog.ComponentWorker),
		published:   make(map[core.Period]string),
	}
}

// HandleSummaryRequest processes one queued request. Requests that can never
// succeed are wrapped with amqp.ErrDiscard so they are not redelivered.
func (w *SummaryWorker) HandleSummaryRequest(ctx context.Context, msg *amqp.SummaryRequestMessage) error {
	period, err := msg.ParsedPeriod()
	if err != nil {
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
	}
	w.logger.InfoContext(ctx, "Processing summary request",
		applog.NewFields().
			WithPeriod(period.String()).
			WithOperation(applog.OpConsume).
			ToSlice()...)

	// An explicit request always notifies, even if nothing changed
	w.forget(period)
	return w.process(ctx, period)
}

// Refresh re-derives the current month.
func (w *SummaryWorker) Refresh(ctx context.Context) error {
	period := core.PeriodOf(w.now())
	if w.invalidator != nil {
		w.invalidator.Invalidate(period)
	}
	w.logger.DebugContext(ctx, "Refreshing current period",
		applog.NewFields().
			WithPeriod(period.String()).
			WithOperation(applog.OpRefresh).
			ToSlice()...)

	err := w.process(ctx, period)
	if errors.Is(err, amqp.ErrDiscard) {
		// Nothing recorded yet for this month is not a refresh failure
		w.logger.InfoContext(ctx, "Refresh skipped", applog.FieldPeriod, period.String(), applog.FieldError, err)
		return nil
	}
	return err
}

// Run refreshes immediately and then every interval until ctx ends.
func (w *SummaryWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
			applog.NewStructuredLogger(w.logger).LogError(ctx, "Periodic refresh failed", err, applog.OpRefresh,
				applog.NewFields().WithPeriod(core.PeriodOf(w.now()).String()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SummaryWorker) process(ctx context.Context, period core.Period) error {
	sum, err := w.builder.Build(ctx, period, services.SummaryOptions{AlertOrder: services.OrderSeverity})
	if err != nil {
		if errors.Is(err, records.ErrPeriodNotFound) || errors.Is(err, core.ErrInvalidMonth) {
			return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
		}
		return fmt.Errorf("build summary %s: %w", period, err)
	}
	if err := sum.Err(core.WidgetAlerts); err != nil {
		// Bad source records will not fix themselves on redelivery
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
	}

	alerts := services.AlertsAtLeast(sum.Alerts, w.minSeverity)
	if len(alerts) == 0 {
		// A later reappearance of the same alerts is a change again
		w.forget(period)
		w.logger.DebugContext(ctx, "No alerts to notify", applog.FieldPeriod, period.String())
		return nil
	}

	fp := fingerprint(alerts)
	if w.alreadyPublished(period, fp) {
		w.logger.DebugContext(ctx, "Alerts unchanged since last notification", applog.FieldPeriod, period.String())
		return nil
	}
	if w.publisher == nil {
		return nil
	}
	if err := w.publisher.PublishAlertNotification(ctx, period, alerts); err != nil {
		return fmt.Errorf("publish alerts %s: %w", period, err)
	}
	w.remember(period, fp)

	fields := applog.NewFields().
		WithPeriod(period.String()).
		WithOperation(applog.OpPublish).
		WithSeverity(string(w.minSeverity))
	fields[applog.FieldAlerts] = len(alerts)
	w.logger.InfoContext(ctx, "Alert notification sent", fields.ToSlice()...)
	return nil
}

func (w *SummaryWorker) alreadyPublished(period core.Period, fp string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.published[period] == fp
}

func (w *SummaryWorker) remember(period core.Period, fp string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.published[period] = fp
}

func (w *SummaryWorker) forget(period core.Period) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.published, period)
}

func fingerprint(alerts []core.Alert) string {
	var b strings.Builder
	for _, a := range alerts {
		b.WriteString(a.SourceID)
		b.WriteByte('|')
		b.WriteString(string(a.Severity))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(a.Amount.Cents, 10))
		b.WriteByte(';')
	}
	return b.String()
}
