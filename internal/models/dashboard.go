package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BucketUnit is the calendar unit a bucket spans
type BucketUnit string

const (
	UnitDay    BucketUnit = "day"
	UnitWeek   BucketUnit = "week"
	UnitMonth  BucketUnit = "month"
	UnitYear   BucketUnit = "year"
	UnitCustom BucketUnit = "custom"
)

// Bucket aggregates transactions in [Start, End)
type Bucket struct {
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income_total"`
	Expense decimal.Decimal `json:"expense_total"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// Contains reports whether the day falls inside the bucket
func (b Bucket) Contains(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(b.Start) && d.Before(b.End)
}

// AnalyticsResult is the full output of one analysis pass
type AnalyticsResult struct {
	Now       time.Time          `json:"now"`
	Balance   decimal.Decimal    `json:"balance"`
	Monthly   []Bucket           `json:"monthly"`
	Weekly    []Bucket           `json:"weekly"`
	Recurring []RecurringPattern `json:"recurring"`
	Upcoming  []RecurringPattern `json:"upcoming"`
	Runway    Runway             `json:"runway"`
	Forecast  Forecast           `json:"forecast"`
	Health    HealthScore        `json:"health"`
	Goals     []GoalProgress     `json:"goals"`
	Alerts    []Alert            `json:"alerts"`
}
