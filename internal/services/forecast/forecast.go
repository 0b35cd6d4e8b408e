// Package forecast projects next-period income, expenses and savings from a
// weighted blend of trailing monthly averages.
package forecast

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/services/metrics"
)

// WindowMonths is the longest trailing window the blend reads
const WindowMonths = 12

// Blend weights for the 3, 6 and 12 month averages. They sum to one.
var (
	Weight3  = decimal.RequireFromString("0.5")
	Weight6  = decimal.RequireFromString("0.3")
	Weight12 = decimal.RequireFromString("0.2")
)

// Input is everything the engine reads
type Input struct {
	// Trailing month buckets, oldest first, ending with the current month
	Months       []models.Bucket
	Transactions []models.Transaction
	Categories   map[string]models.Category
	Balance      decimal.Decimal
	// TopCategories limits the per-category forecast; zero or less keeps all
	TopCategories int
}

// Project computes the forecast bundle
func Project(in Input) models.Forecast {
	income := Series(metrics.Incomes(in.Months))
	expense := Series(metrics.Expenses(in.Months))

	confidence := round2((income.Confidence + expense.Confidence) / 2)
	savings := income.Forecast.Sub(expense.Forecast)

	return models.Forecast{
		Income:           income,
		Expense:          expense,
		Savings:          savings,
		ProjectedBalance: in.Balance.Add(savings),
		Confidence:       confidence,
		ConfidenceLevel:  Level(confidence),
		Categories:       categoryForecasts(in),
	}
}

// Series blends the trailing averages of one monthly series
func Series(values []decimal.Decimal) models.SeriesForecast {
	avg3 := metrics.MeanDecimal(metrics.Last(values, 3))
	avg6 := metrics.MeanDecimal(metrics.Last(values, 6))
	avg12 := metrics.MeanDecimal(metrics.Last(values, WindowMonths))

	return models.SeriesForecast{
		Forecast:   Weight3.Mul(avg3).Add(Weight6.Mul(avg6)).Add(Weight12.Mul(avg12)),
		Avg3:       avg3,
		Avg6:       avg6,
		Avg12:      avg12,
		Confidence: Confidence(metrics.Last(values, 3)),
	}
}

// Confidence scores how steady a short series is. A zero mean gives 0 (no
// basis); zero deviation gives 100.
func Confidence(values []decimal.Decimal) float64 {
	floats := metrics.Floats(values)
	mean := metrics.Mean(floats)
	if mean == 0 {
		return 0
	}
	stdDev := metrics.StdDev(floats)
	if stdDev == 0 {
		return 100
	}
	return round2(math.Max(0, 100-stdDev/mean*100))
}

// Level bands an overall confidence
func Level(confidence float64) models.ConfidenceLevel {
	switch {
	case confidence >= 80:
		return models.ConfidenceHigh
	case confidence >= 60:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func categoryForecasts(in Input) []models.CategoryForecast {
	recent := metrics.Last(in.Months, 3)
	series := buckets.CategoryExpenses(in.Transactions, recent, in.Categories)

	result := []models.CategoryForecast{}
	for id, values := range series {
		avg := metrics.MeanDecimal(values)
		if !avg.IsPositive() {
			continue
		}
		result = append(result, models.CategoryForecast{
			CategoryID:   id,
			CategoryName: in.Categories[id].Name,
			Forecast:     avg,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Forecast.Cmp(result[j].Forecast); c != 0 {
			return c > 0
		}
		return result[i].CategoryID < result[j].CategoryID
	})

	if in.TopCategories > 0 && len(result) > in.TopCategories {
		result = result[:in.TopCategories]
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
