package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a detected recurring pattern
type Frequency string

const (
	Weekly    Frequency = "weekly"
	BiWeekly  Frequency = "bi-weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// AnnualMultiplier returns how many occurrences fall in one year
func (f Frequency) AnnualMultiplier() int64 {
	switch f {
	case Weekly:
		return 52
	case BiWeekly:
		return 26
	case Monthly:
		return 12
	case Quarterly:
		return 4
	}
	return 0
}

// RecurringPattern is a detected repeating income or expense
type RecurringPattern struct {
	CategoryID       string          `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	Type             TransactionType `json:"type"`
	Description      string          `json:"description"`
	AvgAmount        decimal.Decimal `json:"avg_amount"`
	Frequency        Frequency       `json:"frequency"`
	Confidence       float64         `json:"confidence"` // 0-100
	DayOfMonth       *int            `json:"day_of_month,omitempty"`
	DayOfWeek        *time.Weekday   `json:"day_of_week,omitempty"`
	LastDate         time.Time       `json:"last_date"`
	NextExpectedDate time.Time       `json:"next_expected_date"`
	Occurrences      int             `json:"occurrences"`
	AnnualCost       decimal.Decimal `json:"annual_cost"`
	Transactions     []Transaction   `json:"transactions,omitempty"`
}

// RunwayStatus bands the months of runway left
type RunwayStatus string

const (
	RunwayCritical  RunwayStatus = "critical"
	RunwayWarning   RunwayStatus = "warning"
	RunwayGood      RunwayStatus = "good"
	RunwayExcellent RunwayStatus = "excellent"
)

// Runway tracks spending velocity and how long the balance lasts
type Runway struct {
	Balance         decimal.Decimal `json:"balance"`
	DailyBurn       decimal.Decimal `json:"daily_burn"`
	WeeklyBurn      decimal.Decimal `json:"weekly_burn"`
	MonthlyBurn     decimal.Decimal `json:"monthly_burn"`
	NetBurn         decimal.Decimal `json:"net_burn"` // monthly expenses minus income
	Infinite        bool            `json:"infinite"`
	DaysRemaining   float64         `json:"days_remaining"`
	MonthsRemaining float64         `json:"months_remaining"`
	Status          RunwayStatus    `json:"status"`
	BurnRateTrend   float64         `json:"burn_rate_trend"` // % vs 3-month average
}

// ConfidenceLevel bands a forecast confidence
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// SeriesForecast is the next-period projection for one series
type SeriesForecast struct {
	Forecast   decimal.Decimal `json:"forecast"`
	Avg3       decimal.Decimal `json:"avg_3mo"`
	Avg6       decimal.Decimal `json:"avg_6mo"`
	Avg12      decimal.Decimal `json:"avg_12mo"`
	Confidence float64         `json:"confidence"`
}

// CategoryForecast is the projected spend of one expense category
type CategoryForecast struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Forecast     decimal.Decimal `json:"forecast"`
}

// Forecast bundles the next-period projections
type Forecast struct {
	Income           SeriesForecast     `json:"income"`
	Expense          SeriesForecast     `json:"expense"`
	Savings          decimal.Decimal    `json:"savings"`
	ProjectedBalance decimal.Decimal    `json:"projected_balance"`
	Confidence       float64            `json:"confidence"`
	ConfidenceLevel  ConfidenceLevel    `json:"confidence_level"`
	Categories       []CategoryForecast `json:"categories"`
}

// GoalProgress holds the computed progress fields of a savings goal
type GoalProgress struct {
	Goal            SavingsGoal     `json:"goal"`
	PercentComplete float64         `json:"percent_complete"`
	Remaining       decimal.Decimal `json:"remaining"`
	MonthsLeft      *float64        `json:"months_left,omitempty"`
	RequiredMonthly decimal.Decimal `json:"required_monthly"`
	Complete        bool            `json:"complete"`
	Overdue         bool            `json:"overdue"`
	OnTrack         bool            `json:"on_track"`
}
