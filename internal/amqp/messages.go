package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"buestanflow/internal/core"
)

// SummaryRequestMessage asks a worker to (re)derive the summary of a period.
type SummaryRequestMessage struct {
	Period      string    `json:"period"` // YYYY-MM
	RequestedAt time.Time `json:"requested_at"`
}

func NewSummaryRequestMessage(period core.Period) *SummaryRequestMessage {
	return &SummaryRequestMessage{
		Period:      period.String(),
		RequestedAt: time.Now(),
	}
}

// ParsedPeriod validates and returns the requested period.
func (m *SummaryRequestMessage) ParsedPeriod() (core.Period, error) {
	return core.ParsePeriod(m.Period)
}

func (m *SummaryRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SummaryRequestMessageFromJSON(data []byte) (*SummaryRequestMessage, error) {
	var msg SummaryRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Period == "" {
		return nil, fmt.Errorf("summary request: missing period")
	}
	return &msg, nil
}

// AlertPayload is the wire form of a derived alert. Amounts travel as cents.
type AlertPayload struct {
	SourceID    string `json:"source_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Severity    string `json:"severity"`
}

// AlertNotificationMessage carries the alerts of a period that reached the
// notification threshold.
type AlertNotificationMessage struct {
	Period    string         `json:"period"`
	Alerts    []AlertPayload `json:"alerts"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewAlertNotificationMessage(period core.Period, alerts []core.Alert) *AlertNotificationMessage {
	payload := make([]AlertPayload, len(alerts))
	for i, a := range alerts {
		payload[i] = AlertPayload{
			SourceID:    a.SourceID,
			Type:        string(a.Type),
			Title:       a.Title,
			Description: a.Description,
			AmountCents: a.Amount.Cents,
			Severity:    string(a.Severity),
		}
	}
	return &AlertNotificationMessage{
		Period:    period.String(),
		Alerts:    payload,
		Timestamp: time.Now(),
	}
}

func (m *AlertNotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertNotificationMessageFromJSON(data []byte) (*AlertNotificationMessage, error) {
	var msg AlertNotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
