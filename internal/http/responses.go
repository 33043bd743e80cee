package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/records"
)

type (
	moneyJSON struct {
		Cents int64  `json:"cents"`
		Value string `json:"value"` // major units, two decimals
	}

	deltasJSON struct {
		Income    *string `json:"income"`
		Expenses  *string `json:"expenses"`
		NetProfit *string `json:"net_profit"`
		CashFlow  *string `json:"cash_flow"`
	}

	metricsJSON struct {
		TotalIncome   moneyJSON  `json:"total_income"`
		TotalExpenses moneyJSON  `json:"total_expenses"`
		NetProfit     moneyJSON  `json:"net_profit"`
		CashFlow      moneyJSON  `json:"cash_flow"`
		Deltas        deltasJSON `json:"deltas"`
	}

	alertJSON struct {
		SourceID    string    `json:"source_id"`
		Type        string    `json:"type"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Amount      moneyJSON `json:"amount"`
		Severity    string    `json:"severity"`
	}

	productJSON struct {
		Rank       int        `json:"rank"`
		Name       string     `json:"name"`
		Profit     moneyJSON  `json:"profit"`
		Margin     string     `json:"margin"`
		Revenue    *moneyJSON `json:"revenue,omitempty"`
		Profitable bool       `json:"profitable"`
	}

	transactionJSON struct {
		ID          string    `json:"id"`
		Kind        string    `json:"kind"`
		Description string    `json:"description"`
		Amount      moneyJSON `json:"amount"`
		Date        string    `json:"date"`
		Category    string    `json:"category"`
	}

	errorJSON struct {
		Error string `json:"error"`
		Type  string `json:"type"`
	}

	// summaryJSON leaves a failed widget null and reports it under errors.
	summaryJSON struct {
		Period       string               `json:"period"`
		Metrics      *metricsJSON         `json:"metrics"`
		Alerts       []alertJSON          `json:"alerts"`
		Products     []productJSON        `json:"products"`
		Transactions []transactionJSON    `json:"transactions"`
		Errors       map[string]errorJSON `json:"errors,omitempty"`
	}
)

func toMoney(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Value: m.Decimal().StringFixed(2)}
}

func toPercent(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toMetrics(m core.MetricsSnapshot) *metricsJSON {
	return &metricsJSON{
		TotalIncome:   toMoney(m.TotalIncome),
		TotalExpenses: toMoney(m.TotalExpenses),
		NetProfit:     toMoney(m.NetProfit),
		CashFlow:      toMoney(m.CashFlow),
		Deltas: deltasJSON{
			Income:    toPercent(m.Deltas.Income),
			Expenses:  toPercent(m.Deltas.Expenses),
			NetProfit: toPercent(m.Deltas.NetProfit),
			CashFlow:  toPercent(m.Deltas.CashFlow),
		},
	}
}

func toAlerts(alerts []core.Alert) []alertJSON {
	out := make([]alertJSON, len(alerts))
	for i, a := range alerts {
		out[i] = alertJSON{
			SourceID:    a.SourceID,
			Type:        string(a.Type),
			Title:       a.Title,
			Description: a.Description,
			Amount:      toMoney(a.Amount),
			Severity:    string(a.Severity),
		}
	}
	return out
}

func toProducts(products []core.RankedProduct) []productJSON {
	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = productJSON{
			Rank:       p.Rank,
			Name:       p.Name,
			Profit:     toMoney(p.Profit),
			Margin:     p.Margin.String(),
			Profitable: p.Profitable,
		}
		if p.Revenue != nil {
			r := toMoney(*p.Revenue)
			out[i].Revenue = &r
		}
	}
	return out
}

func toTransactions(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = transactionJSON{
			ID:          t.ID,
			Kind:        string(t.Kind),
			Description: t.Description,
			Amount:      toMoney(t.Amount),
			Date:        t.Date.String(),
			Category:    t.Category,
		}
	}
	return out
}

func toSummary(s core.Summary) summaryJSON {
	out := summaryJSON{Period: s.Period.String()}
	if s.Err(core.WidgetMetrics) == nil {
		out.Metrics = toMetrics(s.Metrics)
	}
	if s.Err(core.WidgetAlerts) == nil {
		out.Alerts = toAlerts(s.Alerts)
	}
	if s.Err(core.WidgetProducts) == nil {
		out.Products = toProducts(s.Products)
	}
	if s.Err(core.WidgetTransactions) == nil {
		out.Transactions = toTransactions(s.Transactions)
	}
	for _, w := range core.Widgets {
		if err := s.Err(w); err != nil {
			if out.Errors == nil {
				out.Errors = make(map[string]errorJSON)
			}
			_, typ := classify(err)
			out.Errors[string(w)] = errorJSON{Error: err.Error(), Type: typ}
		}
	}
	return out
}

// classify maps an error to its HTTP status and log error type.
func classify(err error) (int, string) {
	var selErr *core.InvalidSelectorError
	switch {
	case errors.As(err, &selErr), errors.Is(err, core.ErrInvalidSelector):
		return http.StatusBadRequest, applog.ErrorTypeSelector
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, applog.ErrorTypeValidation
	case errors.Is(err, records.ErrPeriodNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidMonth):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, applog.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, applog.ErrorTypeTimeout
	default:
		return http.StatusBadGateway, applog.ErrorTypeNetwork
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, typ := classify(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithErrorType(typ).WithError(err).ToSlice()
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields...)
	}
	writeJSON(w, status, errorJSON{Error: err.Error(), Type: typ})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorJSON{Error: msg, Type: applog.ErrorTypeValidation})
}
