package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"buestanflow/internal/amqp"
	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"
	"buestanflow/internal/records/memory"
	"buestanflow/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var jan2024 = core.Period{Year: 2024, Month: 1}

func quietLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

type publishCall struct {
	period core.Period
	alerts []core.Alert
}

func (p *recordingPublisher) PublishAlertNotification(_ context.Context, period core.Period, alerts []core.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, publishCall{period, alerts})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type countingInvalidator struct {
	mu      sync.Mutex
	periods []core.Period
}

func (c *countingInvalidator) Invalidate(p core.Period) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periods = append(c.periods, p)
	return 0
}

type failingBuilder struct{ err error }

func (b failingBuilder) Build(context.Context, core.Period, services.SummaryOptions) (core.Summary, error) {
	return core.Summary{}, b.err
}

func newDemoWorker(pub AlertPublisher, opts Options) *SummaryWorker {
	opts.Logger = quietLogger()
	svc := services.NewSummaryService(memory.NewDemo(), quietLogger())
	return NewSummaryWorker(svc, pub, opts)
}

func TestHandleSummaryRequestPublishesHighAlerts(t *testing.T) {
	pub := &recordingPublisher{}
	w := newDemoWorker(pub, Options{})

	err := w.HandleSummaryRequest(context.Background(), &amqp.SummaryRequestMessage{Period: "2024-01"})
	require.NoError(t, err)

	require.Equal(t, 1, pub.count())
	call := pub.calls[0]
	assert.Equal(t, jan2024, call.period)
	// overdue (critical) first, then debt (high); the medium expense is below the floor
	require.Len(t, call.alerts, 2)
	assert.Equal(t, core.SeverityCritical, call.alerts[0].Severity)
	assert.Equal(t, core.SeverityHigh, call.alerts[1].Severity)
}

func TestHandleSummaryRequestAlwaysNotifies(t *testing.T) {
	pub := &recordingPublisher{}
	w := newDemoWorker(pub, Options{MinSeverity: core.SeverityLow})
	msg := &amqp.SummaryRequestMessage{Period: "2024-01"}

	require.NoError(t, w.HandleSummaryRequest(context.Background(), msg))
	require.NoError(t, w.HandleSummaryRequest(context.Background(), msg))
	assert.Equal(t, 2, pub.count())
	assert.Len(t, pub.calls[0].alerts, 3)
}

func TestHandleSummaryRequestDiscards(t *testing.T) {
	tests := []struct {
		name    string
		period  string
		builder SummaryBuilder
	}{
		{"malformed period", "2024-13", nil},
		{"unknown period", "2030-01", nil},
		{"not found from store", "2024-01", failingBuilder{fmt.Errorf("load: %w", records.ErrPeriodNotFound)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			w := newDemoWorker(pub, Options{})
			if tt.builder != nil {
				w.builder = tt.builder
			}
			err := w.HandleSummaryRequest(context.Background(), &amqp.SummaryRequestMessage{Period: tt.period})
			assert.ErrorIs(t, err, amqp.ErrDiscard)
			assert.Zero(t, pub.count())
		})
	}
}

func TestHandleSummaryRequestDiscardsInvalidObligations(t *testing.T) {
	snap := memory.DemoSnapshots()[0]
	snap.Obligations = append(snap.Obligations, core.ObligationEvent{ID: "9", Type: core.ObligationDebt})
	svc := services.NewSummaryService(memory.New(snap), quietLogger())
	pub := &recordingPublisher{}
	w := NewSummaryWorker(svc, pub, Options{Logger: quietLogger()})

	err := w.HandleSummaryRequest(context.Background(), &amqp.SummaryRequestMessage{Period: "2024-01"})
	assert.ErrorIs(t, err, amqp.ErrDiscard)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Zero(t, pub.count())
}

func TestHandleSummaryRequestTransientErrorsRequeue(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	w := newDemoWorker(pub, Options{})
	err := w.HandleSummaryRequest(context.Background(), &amqp.SummaryRequestMessage{Period: "2024-01"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, amqp.ErrDiscard)

	w.builder = failingBuilder{errors.New("sheets quota")}
	err = w.HandleSummaryRequest(context.Background(), &amqp.SummaryRequestMessage{Period: "2024-01"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, amqp.ErrDiscard)
}

func TestRefreshDeduplicatesNotifications(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	w := newDemoWorker(pub, Options{
		Invalidator: inv,
		Now:         func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) },
	})

	require.NoError(t, w.Refresh(context.Background()))
	require.NoError(t, w.Refresh(context.Background()))

	assert.Equal(t, 1, pub.count(), "unchanged alerts are published once")
	assert.Equal(t, []core.Period{jan2024, jan2024}, inv.periods)
}

// scriptedBuilder returns its summaries in order, repeating the last one.
type scriptedBuilder struct {
	mu    sync.Mutex
	steps [][]core.Alert
}

func (b *scriptedBuilder) Build(_ context.Context, period core.Period, _ services.SummaryOptions) (core.Summary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	alerts := b.steps[0]
	if len(b.steps) > 1 {
		b.steps = b.steps[1:]
	}
	return core.Summary{Period: period, Alerts: alerts}, nil
}

func TestRefreshRenotifiesAlertsThatReturn(t *testing.T) {
	overdue := []core.Alert{{SourceID: "1", Type: core.ObligationOverdue, Severity: core.SeverityCritical}}
	pub := &recordingPublisher{}
	w := NewSummaryWorker(&scriptedBuilder{steps: [][]core.Alert{overdue, nil, overdue}}, pub, Options{
		Logger: quietLogger(),
		Now:    func() time.Time { return time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC) },
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Refresh(context.Background()))
	}
	assert.Equal(t, 2, pub.count(), "alerts that clear and come back are notified again")
}

func TestRefreshSkipsMissingMonth(t *testing.T) {
	pub := &recordingPublisher{}
	w := newDemoWorker(pub, Options{
		Now: func() time.Time { return time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC) },
	})
	assert.NoError(t, w.Refresh(context.Background()))
	assert.Zero(t, pub.count())
}

func TestRefreshWithoutPublisher(t *testing.T) {
	w := newDemoWorker(nil, Options{
		Now: func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) },
	})
	assert.NoError(t, w.Refresh(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	w := newDemoWorker(pub, Options{
		Now: func() time.Time { return time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	w := newDemoWorker(nil, Options{})
	assert.Error(t, w.Run(context.Background(), 0))
}
