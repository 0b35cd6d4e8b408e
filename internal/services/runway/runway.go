// Package runway derives spending velocity and projects how long a balance
// lasts at the current net burn.
package runway

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/metrics"
)

// DaysPerMonth converts between daily and monthly rates
const DaysPerMonth = 30

var daysPerMonth = decimal.NewFromInt(DaysPerMonth)

// Status band thresholds in months of runway
const (
	criticalMonths = 1.0
	warningMonths  = 3.0
	goodMonths     = 6.0
)

// CurrentBalance is the opening balance plus the net of every transaction
// dated on or before now.
func CurrentBalance(opening decimal.Decimal, txns []models.Transaction, now time.Time) decimal.Decimal {
	return opening.Add(models.NewTransactionSet(txns).FilterOnOrBefore(now).Net())
}

// Calculate projects runway from a trailing window of month buckets whose
// last element is the current month.
func Calculate(trailing []models.Bucket, balance decimal.Decimal) models.Runway {
	avgExpense := metrics.MeanDecimal(metrics.Expenses(trailing))

	burns := make([]decimal.Decimal, len(trailing))
	for i, b := range trailing {
		burns[i] = b.Expense.Sub(b.Income)
	}
	netBurn := metrics.MeanDecimal(burns)

	daily := avgExpense.Div(daysPerMonth)
	r := models.Runway{
		Balance:     balance,
		DailyBurn:   daily,
		WeeklyBurn:  daily.Mul(decimal.NewFromInt(7)),
		MonthlyBurn: avgExpense,
		NetBurn:     netBurn,
	}

	if len(trailing) > 0 && avgExpense.IsPositive() {
		current := trailing[len(trailing)-1].Expense
		r.BurnRateTrend = round2(current.Sub(avgExpense).Div(avgExpense).InexactFloat64() * 100)
	}

	switch {
	case !netBurn.IsPositive():
		r.Infinite = true
		r.Status = models.RunwayExcellent
	case !balance.IsPositive():
		r.Status = models.RunwayCritical
	default:
		days := balance.Mul(daysPerMonth).Div(netBurn).InexactFloat64()
		r.DaysRemaining = days
		r.MonthsRemaining = days / DaysPerMonth
		r.Status = StatusFor(r.MonthsRemaining)
	}
	return r
}

// StatusFor bands a finite months-remaining figure
func StatusFor(months float64) models.RunwayStatus {
	switch {
	case months < criticalMonths:
		return models.RunwayCritical
	case months < warningMonths:
		return models.RunwayWarning
	case months < goodMonths:
		return models.RunwayGood
	default:
		return models.RunwayExcellent
	}
}

// Months returns the months of runway, treating an infinite runway as +Inf
func Months(r models.Runway) float64 {
	if r.Infinite {
		return math.Inf(1)
	}
	return r.MonthsRemaining
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
