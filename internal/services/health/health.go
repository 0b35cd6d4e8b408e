// Package health combines six bounded factors into a 0-100 financial
// health score with a grade and fixed recommendations.
package health

import (
	"math"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/services/metrics"
	"budgetinsights/internal/services/runway"
)

// Factor names
const (
	FactorSavingsRate     = "savings_rate"
	FactorBudgetAdherence = "budget_adherence"
	FactorConsistency     = "spending_consistency"
	FactorEmergencyFund   = "emergency_fund"
	FactorIncomeStability = "income_stability"
	FactorExpenseRatio    = "expense_ratio"
)

// ConsistencyWeeks is the number of complete weeks compared week over week
const ConsistencyWeeks = 4

// Input is the shared derived data the scorer reads
type Input struct {
	// Trailing month buckets, oldest first, ending with the current month
	Months []models.Bucket
	// Trailing week buckets ending with the current (partial) week
	Weeks        []models.Bucket
	Transactions []models.Transaction
	Budgets      []models.Budget
	Runway       models.Runway
}

// Score computes the health breakdown
func Score(in Input) models.HealthScore {
	recent := metrics.Summarize(metrics.Last(in.Months, 3))

	h := models.HealthScore{
		SavingsRate:     savingsRate(recent),
		BudgetAdherence: budgetAdherence(in),
		Consistency:     consistency(in.Weeks),
		EmergencyFund:   emergencyFund(in.Runway),
		IncomeStability: incomeStability(in),
		ExpenseRatio:    expenseRatio(recent),
	}

	var total float64
	for _, f := range h.Factors() {
		total += f.Score
	}
	h.Score = int(metrics.Clamp(math.Round(total), 0, 100))
	h.Grade = GradeFor(h.Score)
	h.Recommendations = recommend(&h)
	return h
}

// GradeFor bands a composite score
func GradeFor(score int) models.Grade {
	switch {
	case score >= 85:
		return models.GradeExcellent
	case score >= 70:
		return models.GradeGood
	case score >= 55:
		return models.GradeFair
	case score >= 40:
		return models.GradePoor
	default:
		return models.GradeCritical
	}
}

func factor(name string, score, max, metric float64) models.HealthFactor {
	return models.HealthFactor{
		Name:   name,
		Score:  round2(metrics.Clamp(score, 0, max)),
		Max:    max,
		Metric: round2(metric),
	}
}

func savingsRate(recent metrics.Summary) models.HealthFactor {
	rate := recent.SavingsRate
	var score float64
	switch {
	case rate >= 20:
		score = 25
	case rate >= 10:
		score = 20
	case rate >= 5:
		score = 15
	case rate > 0:
		score = 10
	}
	return factor(FactorSavingsRate, score, models.MaxSavingsRate, rate)
}

// budgetAdherence counts monthly budgets whose category spend this month is
// within the budgeted amount.
func budgetAdherence(in Input) models.HealthFactor {
	if len(in.Months) == 0 {
		return factor(FactorBudgetAdherence, models.MaxBudgetAdherence, models.MaxBudgetAdherence, 100)
	}
	current := in.Months[len(in.Months)-1]

	var total, within int
	for _, b := range in.Budgets {
		if b.Period != models.BudgetMonthly {
			continue
		}
		total++
		if buckets.CategorySpend(in.Transactions, current, b.CategoryID).LessThanOrEqual(b.Amount) {
			within++
		}
	}
	if total == 0 {
		return factor(FactorBudgetAdherence, models.MaxBudgetAdherence, models.MaxBudgetAdherence, 100)
	}
	ratio := float64(within) / float64(total)
	return factor(FactorBudgetAdherence, ratio*models.MaxBudgetAdherence, models.MaxBudgetAdherence, ratio*100)
}

// consistency bands the mean absolute week-over-week change in spending
// across the last complete weeks. The current partial week is ignored.
func consistency(weeks []models.Bucket) models.HealthFactor {
	complete := weeks
	if len(complete) > 0 {
		complete = complete[:len(complete)-1]
	}
	complete = metrics.Last(complete, ConsistencyWeeks)

	var changes []float64
	for i := 1; i < len(complete); i++ {
		change := metrics.PercentChange(complete[i].Expense.InexactFloat64(), complete[i-1].Expense.InexactFloat64())
		changes = append(changes, math.Abs(change))
	}
	variation := metrics.Mean(changes)

	var score float64
	switch {
	case variation < 5:
		score = 15
	case variation < 10:
		score = 12
	case variation < 20:
		score = 8
	default:
		score = 5
	}
	return factor(FactorConsistency, score, models.MaxConsistency, variation)
}

func emergencyFund(r models.Runway) models.HealthFactor {
	months := runway.Months(r)
	var score float64
	switch {
	case months >= 6:
		score = 15
	case months >= 3:
		score = 12
	case months >= 1:
		score = 8
	default:
		score = 5
	}
	// an infinite runway reports 0 here; Runway.Infinite carries it
	return factor(FactorEmergencyFund, score, models.MaxEmergencyFund, r.MonthsRemaining)
}

// incomeStability scores the coefficient of variation of monthly income,
// ignoring months before the ledger's first transaction.
func incomeStability(in Input) models.HealthFactor {
	first := models.NewTransactionSet(in.Transactions).MinDate()

	var incomes []float64
	for _, b := range in.Months {
		if !first.IsZero() && !b.End.After(first) {
			continue
		}
		incomes = append(incomes, b.Income.InexactFloat64())
	}

	cv, ok := metrics.CoefficientOfVariation(incomes)
	if !ok {
		return factor(FactorIncomeStability, 0, models.MaxIncomeStability, 0)
	}
	stability := Stability(cv)
	return factor(FactorIncomeStability, stability/100*models.MaxIncomeStability, models.MaxIncomeStability, cv)
}

// Stability maps a coefficient of variation (percent) onto 0-100 using
// linear bands: <10 gives 90+, <20 gives 70-89, <30 gives 50-69, else below 50.
func Stability(cv float64) float64 {
	var s float64
	switch {
	case cv < 10:
		s = 100 - cv
	case cv < 20:
		s = 89 - (cv-10)*1.9
	case cv < 30:
		s = 69 - (cv-20)*1.9
	default:
		s = 49 - (cv - 30)
	}
	return metrics.Clamp(s, 0, 100)
}

// expenseRatio bands expenses as a share of income
func expenseRatio(recent metrics.Summary) models.HealthFactor {
	if !recent.Income.IsPositive() {
		if recent.Expense.IsZero() {
			return factor(FactorExpenseRatio, 10, models.MaxExpenseRatio, 0)
		}
		return factor(FactorExpenseRatio, 2, models.MaxExpenseRatio, 100)
	}

	ratio := recent.Expense.Mul(decimal.NewFromInt(100)).Div(recent.Income).InexactFloat64()
	var score float64
	switch {
	case ratio <= 50:
		score = 10
	case ratio <= 70:
		score = 8
	case ratio <= 90:
		score = 6
	case ratio < 100:
		score = 4
	default:
		score = 2
	}
	return factor(FactorExpenseRatio, score, models.MaxExpenseRatio, ratio)
}

type advice struct {
	factor    func(h *models.HealthScore) models.HealthFactor
	threshold float64
	rec       models.Recommendation
}

var advices = []advice{
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.SavingsRate },
		threshold: 15,
		rec: models.Recommendation{
			ID:      "increase-savings",
			Factor:  FactorSavingsRate,
			Message: "Increase your savings rate. Aim to keep at least 10-20% of your income each month.",
		},
	},
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.BudgetAdherence },
		threshold: 15,
		rec: models.Recommendation{
			ID:      "review-budgets",
			Factor:  FactorBudgetAdherence,
			Message: "Several categories are over budget. Review your budgets or cut back in those categories.",
		},
	},
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.Consistency },
		threshold: 8,
		rec: models.Recommendation{
			ID:      "smooth-spending",
			Factor:  FactorConsistency,
			Message: "Your weekly spending swings a lot. Plan large purchases ahead to keep spending steady.",
		},
	},
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.EmergencyFund },
		threshold: 12,
		rec: models.Recommendation{
			ID:      "build-emergency-fund",
			Factor:  FactorEmergencyFund,
			Message: "Build an emergency fund that covers at least 3-6 months of expenses.",
		},
	},
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.IncomeStability },
		threshold: 9,
		rec: models.Recommendation{
			ID:      "stabilize-income",
			Factor:  FactorIncomeStability,
			Message: "Your income varies from month to month. Keep a larger buffer or look for steadier income sources.",
		},
	},
	{
		factor:    func(h *models.HealthScore) models.HealthFactor { return h.ExpenseRatio },
		threshold: 6,
		rec: models.Recommendation{
			ID:      "reduce-expenses",
			Factor:  FactorExpenseRatio,
			Message: "Your expenses take up most of your income. Look for recurring costs you can reduce.",
		},
	},
}

func recommend(h *models.HealthScore) []models.Recommendation {
	recs := []models.Recommendation{}
	for _, a := range advices {
		if a.factor(h).Score < a.threshold {
			recs = append(recs, a.rec)
		}
	}
	return recs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
