// Package goals computes savings goal progress against the expected monthly savings.
package goals

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/metrics"
)

const daysPerMonth = 30

var hundred = decimal.NewFromInt(100)

// Progress computes the derived fields of each goal. monthlySavings is the
// amount the ledger is expected to save per month.
func Progress(goals []models.SavingsGoal, monthlySavings decimal.Decimal, now time.Time) []models.GoalProgress {
	result := make([]models.GoalProgress, 0, len(goals))
	for _, g := range goals {
		result = append(result, progress(g, monthlySavings, now))
	}
	return result
}

func progress(g models.SavingsGoal, monthlySavings decimal.Decimal, now time.Time) models.GoalProgress {
	p := models.GoalProgress{
		Goal:            g,
		Remaining:       decimal.Max(decimal.Zero, g.TargetAmount.Sub(g.CurrentAmount)),
		RequiredMonthly: decimal.Zero,
		Complete:        g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount),
	}

	if g.TargetAmount.IsPositive() {
		pct := g.CurrentAmount.Mul(hundred).Div(g.TargetAmount).InexactFloat64()
		p.PercentComplete = metrics.Clamp(pct, 0, 100)
	} else {
		p.PercentComplete = 100
	}

	if g.Deadline == nil {
		p.OnTrack = p.Complete || monthlySavings.IsPositive()
		return p
	}

	days := models.DaysBetween(now, *g.Deadline)
	months := float64(days) / daysPerMonth
	if months < 0 {
		months = 0
	}
	p.MonthsLeft = &months
	p.Overdue = !p.Complete && days < 0

	switch {
	case p.Complete:
		p.OnTrack = true
	case p.Overdue:
		p.RequiredMonthly = p.Remaining
	default:
		// less than a month left means the rest is due now
		p.RequiredMonthly = p.Remaining
		if days >= daysPerMonth {
			p.RequiredMonthly = p.Remaining.Mul(decimal.NewFromInt(daysPerMonth)).Div(decimal.NewFromInt(int64(days))).Round(2)
		}
		p.OnTrack = monthlySavings.GreaterThanOrEqual(p.RequiredMonthly)
	}
	return p
}

// Key returns the goal's id, or its position when it has none
func Key(g models.SavingsGoal, index int) string {
	if g.ID != "" {
		return g.ID
	}
	return strconv.Itoa(index)
}
