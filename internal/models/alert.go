package models

import "github.com/shopspring/decimal"

// AlertSeverity is the urgency of an alert
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
	SeveritySuccess  AlertSeverity = "success"
)

// Priority orders severities; lower sorts first
func (s AlertSeverity) Priority() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	case SeveritySuccess:
		return 3
	}
	return 4
}

// Alert is an actionable notification about the ledger. ID is stable for a
// given triggering condition.
type Alert struct {
	ID         string           `json:"id"`
	Severity   AlertSeverity    `json:"severity"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	CategoryID string           `json:"category_id,omitempty"`
	Actionable bool             `json:"actionable"`
}
