// Package metrics holds the summary statistics shared by the insight services.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Summary totals a run of buckets
type Summary struct {
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	Net         decimal.Decimal `json:"net"`
	SavingsRate float64         `json:"savings_rate"` // % of income kept
	Months      int             `json:"months"`
}

// Summarize computes totals and savings rate over the given buckets
func Summarize(buckets []models.Bucket) Summary {
	s := Summary{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Months:  len(buckets),
	}
	for _, b := range buckets {
		s.Income = s.Income.Add(b.Income)
		s.Expense = s.Expense.Add(b.Expense)
	}
	s.Net = s.Income.Sub(s.Expense)
	if s.Income.IsPositive() {
		s.SavingsRate = s.Net.Mul(hundred).Div(s.Income).InexactFloat64()
	}
	return s
}

// Incomes extracts the income totals of each bucket
func Incomes(buckets []models.Bucket) []decimal.Decimal {
	out := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		out[i] = b.Income
	}
	return out
}

// Expenses extracts the expense totals of each bucket
func Expenses(buckets []models.Bucket) []decimal.Decimal {
	out := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		out[i] = b.Expense
	}
	return out
}

// Nets extracts the net totals of each bucket
func Nets(buckets []models.Bucket) []decimal.Decimal {
	out := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		out[i] = b.Net
	}
	return out
}

// Last returns the final n elements (or all of them if there are fewer)
func Last[T any](values []T, n int) []T {
	if n >= len(values) {
		return values
	}
	if n <= 0 {
		return nil
	}
	return values[len(values)-n:]
}

// MeanDecimal returns the exact arithmetic mean, or zero for an empty slice
func MeanDecimal(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// Floats converts decimals for statistics that do not need exactness
func Floats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

// Mean returns the arithmetic mean, or zero for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean as a percentage. ok is false
// when the mean is zero.
func CoefficientOfVariation(values []float64) (cv float64, ok bool) {
	mean := Mean(values)
	if mean == 0 {
		return 0, false
	}
	return StdDev(values) / mean * 100, true
}

// PercentChange calculates the percentage change between two values
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
