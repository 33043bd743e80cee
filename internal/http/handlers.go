package http

import (
	"context"
	"net/http"
	"strings"

	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/services"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// summaryRequest holds the validated query of every summary endpoint.
type summaryRequest struct {
	period core.Period
	opts   services.SummaryOptions
}

// parseSummaryRequest reads ?period=YYYY-MM (default: current month),
// ?kind= (default: all) and ?order= (default: server policy).
func (s *Server) parseSummaryRequest(w http.ResponseWriter, r *http.Request) (summaryRequest, bool) {
	q := r.URL.Query()
	req := summaryRequest{period: core.PeriodOf(s.now())}

	if v := strings.TrimSpace(q.Get("period")); v != "" {
		p, err := core.ParsePeriod(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return req, false
		}
		req.period = p
	}

	req.opts.Selector = services.SelectAll
	if q.Has("kind") {
		sel, err := services.ParseSelector(q.Get("kind"))
		if err != nil {
			writeError(w, r, err)
			return req, false
		}
		req.opts.Selector = sel
	}

	req.opts.AlertOrder = s.defaultOrder
	if v := q.Get("order"); v != "" {
		order, err := services.ParseAlertOrder(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return req, false
		}
		req.opts.AlertOrder = order
	}
	return req, true
}

func (s *Server) buildSummary(w http.ResponseWriter, r *http.Request) (core.Summary, bool) {
	req, ok := s.parseSummaryRequest(w, r)
	if !ok {
		return core.Summary{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), buildTimeout)
	defer cancel()

	sum, hit, err := s.summaries.Build(ctx, req.period, req.opts)
	if err != nil {
		writeError(w, r, err)
		return core.Summary{}, false
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	applog.FromContext(ctx).DebugContext(ctx, "Summary served",
		applog.NewFields().WithPeriod(req.period.String()).ToSlice()...)
	return sum, true
}

// widgetOK writes the widget's error response when its derivation failed.
func widgetOK(w http.ResponseWriter, r *http.Request, sum core.Summary, widget core.Widget) bool {
	if err := sum.Err(widget); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// handleSummary returns every widget; failed widgets are null and listed
// under errors while the rest are still served.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.buildSummary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSummary(sum))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.buildSummary(w, r)
	if !ok || !widgetOK(w, r, sum, core.WidgetMetrics) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  sum.Period.String(),
		"metrics": toMetrics(sum.Metrics),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.buildSummary(w, r)
	if !ok || !widgetOK(w, r, sum, core.WidgetAlerts) {
		return
	}
	alerts := sum.Alerts
	if v := strings.TrimSpace(r.URL.Query().Get("min_severity")); v != "" {
		floor, err := core.ParseSeverity(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		alerts = services.AlertsAtLeast(alerts, floor)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period": sum.Period.String(),
		"alerts": toAlerts(alerts),
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.buildSummary(w, r)
	if !ok || !widgetOK(w, r, sum, core.WidgetProducts) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   sum.Period.String(),
		"products": toProducts(sum.Products),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.buildSummary(w, r)
	if !ok || !widgetOK(w, r, sum, core.WidgetTransactions) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":       sum.Period.String(),
		"transactions": toTransactions(sum.Transactions),
	})
}
