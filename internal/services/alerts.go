package services

import (
	"fmt"
	"sort"
	"strings"

	"buestanflow/internal/core"
)

// severityPolicy is the fixed classification table. Types missing from it
// are classified low.
var severityPolicy = map[core.ObligationType]core.Severity{
	core.ObligationOverdue: core.SeverityCritical,
	core.ObligationDebt:    core.SeverityHigh,
	core.ObligationExpense: core.SeverityMedium,
}

// ClassifySeverity maps an obligation type to its severity tier.
func ClassifySeverity(t core.ObligationType) core.Severity {
	if sev, ok := severityPolicy[t]; ok {
		return sev
	}
	return core.SeverityLow
}

// AlertOrder selects how derived alerts are ordered.
type AlertOrder string

const (
	// OrderSource keeps alerts in the order of their source events.
	OrderSource AlertOrder = "source"
	// OrderSeverity sorts critical > high > medium > low, ties kept in
	// source order.
	OrderSeverity AlertOrder = "severity"
)

// ParseAlertOrder parses an ordering policy name. Empty means OrderSource.
func ParseAlertOrder(s string) (AlertOrder, error) {
	switch o := AlertOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderSource, nil
	case OrderSource, OrderSeverity:
		return o, nil
	default:
		return "", fmt.Errorf("invalid alert order %q: must be source or severity", s)
	}
}

// AlertDeriver turns obligation events into alerts under one ordering policy.
// The zero value uses OrderSource.
type AlertDeriver struct {
	Order AlertOrder
}

// Derive validates every event up front and fails the whole call on the
// first bad one.
func (d AlertDeriver) Derive(events []core.ObligationEvent) ([]core.Alert, error) {
	alerts := make([]core.Alert, 0, len(events))
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		alerts = append(alerts, core.Alert{
			SourceID:    e.ID,
			Type:        e.Type,
			Title:       e.Title,
			Description: e.Description,
			Amount:      *e.Amount,
			Severity:    ClassifySeverity(e.Type),
		})
	}

	switch d.Order {
	case "", OrderSource:
	case OrderSeverity:
		sort.SliceStable(alerts, func(i, j int) bool {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		})
	default:
		return nil, fmt.Errorf("unknown alert order %q", d.Order)
	}
	return alerts, nil
}

// DeriveAlerts derives alerts in source order.
func DeriveAlerts(events []core.ObligationEvent) ([]core.Alert, error) {
	return AlertDeriver{Order: OrderSource}.Derive(events)
}

// AlertsAtLeast returns the alerts whose severity is floor or higher,
// preserving order.
func AlertsAtLeast(alerts []core.Alert, floor core.Severity) []core.Alert {
	var out []core.Alert
	for _, a := range alerts {
		if a.Severity.Rank() >= floor.Rank() {
			out = append(out, a)
		}
	}
	return out
}
