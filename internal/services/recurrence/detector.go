// Package recurrence detects repeating income and expenses from transaction
// timing without being told about them.
package recurrence

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/services/metrics"
)

const (
	// MinOccurrences is the smallest group or cluster considered evidence of a pattern
	MinOccurrences = 3

	// MinConfidence drops clusters whose timing is too irregular
	MinConfidence = 60.0

	// DueSoonDays is the horizon for payments considered due soon
	DueSoonDays = 7
)

// amountTolerance is the relative distance from a cluster's representative amount
var amountTolerance = decimal.RequireFromString("0.10")

type band struct {
	frequency models.Frequency
	min, max  float64
}

// Mean-interval bands in days, inclusive on both ends
var frequencyBands = []band{
	{models.Weekly, 5, 9},
	{models.BiWeekly, 12, 16},
	{models.Monthly, 25, 35},
	{models.Quarterly, 85, 95},
}

type groupKey struct {
	categoryID string
	txnType    models.TransactionType
}

// Detect finds recurring patterns. Transactions are first put in canonical
// order (date, then id) so the result does not depend on input order.
// Patterns are sorted by descending confidence; ties keep group and cluster
// encounter order.
func Detect(txns []models.Transaction, categories map[string]models.Category) []models.RecurringPattern {
	ordered := models.NewTransactionSet(txns).SortByDate().Transactions

	var keys []groupKey
	groups := make(map[groupKey][]models.Transaction)
	for _, t := range ordered {
		key := groupKey{categoryID: t.CategoryID, txnType: t.Type}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}

	patterns := []models.RecurringPattern{}
	for _, key := range keys {
		members := groups[key]
		if len(members) < MinOccurrences {
			continue
		}
		for _, c := range clusterByAmount(members) {
			if p, ok := analyzeCluster(c, key, categories); ok {
				patterns = append(patterns, p)
			}
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Confidence > patterns[j].Confidence
	})
	return patterns
}

// clusterByAmount assigns each transaction to the first cluster whose
// representative (first member) amount is within tolerance, in encounter order.
func clusterByAmount(members []models.Transaction) [][]models.Transaction {
	var clusters [][]models.Transaction
	for _, t := range members {
		placed := false
		for i := range clusters {
			if withinTolerance(t.Amount, clusters[i][0].Amount) {
				clusters[i] = append(clusters[i], t)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []models.Transaction{t})
		}
	}
	return clusters
}

func withinTolerance(amount, representative decimal.Decimal) bool {
	if representative.IsZero() {
		return amount.IsZero()
	}
	return amount.Sub(representative).Abs().LessThanOrEqual(representative.Abs().Mul(amountTolerance))
}

func analyzeCluster(txns []models.Transaction, key groupKey, categories map[string]models.Category) (models.RecurringPattern, bool) {
	if len(txns) < MinOccurrences {
		return models.RecurringPattern{}, false
	}

	intervals := make([]float64, 0, len(txns)-1)
	for i := 1; i < len(txns); i++ {
		intervals = append(intervals, float64(models.DaysBetween(txns[i-1].Date, txns[i].Date)))
	}

	mean := metrics.Mean(intervals)
	if mean <= 0 {
		return models.RecurringPattern{}, false
	}
	stdDev := metrics.StdDev(intervals)

	confidence := math.Max(0, 100-(stdDev/mean*100))
	if confidence < MinConfidence {
		return models.RecurringPattern{}, false
	}

	frequency, ok := classify(mean)
	if !ok {
		return models.RecurringPattern{}, false
	}

	amounts := make([]decimal.Decimal, len(txns))
	for i, t := range txns {
		amounts[i] = t.Amount
	}
	avg := metrics.MeanDecimal(amounts)

	last := txns[len(txns)-1].Date
	category, known := categories[key.categoryID]

	p := models.RecurringPattern{
		CategoryID:   key.categoryID,
		Type:         key.txnType,
		Description:  describe(txns[0], category, known),
		AvgAmount:    avg,
		Frequency:    frequency,
		Confidence:   math.Round(confidence*100) / 100,
		LastDate:     last,
		Occurrences:  len(txns),
		AnnualCost:   avg.Mul(decimal.NewFromInt(frequency.AnnualMultiplier())),
		Transactions: append([]models.Transaction(nil), txns...),
	}
	if known {
		p.CategoryName = category.Name
	}

	switch frequency {
	case models.Weekly, models.BiWeekly:
		weekday := last.Weekday()
		p.DayOfWeek = &weekday
	case models.Monthly, models.Quarterly:
		day := modalDayOfMonth(txns)
		p.DayOfMonth = &day
	}
	p.NextExpectedDate = NextDate(last, frequency, p.DayOfMonth)

	return p, true
}

func classify(meanInterval float64) (models.Frequency, bool) {
	for _, b := range frequencyBands {
		if meanInterval >= b.min && meanInterval <= b.max {
			return b.frequency, true
		}
	}
	return "", false
}

func describe(first models.Transaction, category models.Category, known bool) string {
	if desc := strings.TrimSpace(first.Description); desc != "" {
		return desc
	}
	if known && category.Name != "" {
		return category.Name
	}
	if first.CategoryID != "" {
		return first.CategoryID
	}
	return "Uncategorized"
}

// modalDayOfMonth returns the most common day of month; ties go to the earlier day
func modalDayOfMonth(txns []models.Transaction) int {
	counts := make(map[int]int)
	for _, t := range txns {
		counts[t.Date.Day()]++
	}
	best, bestCount := 0, 0
	for day := 1; day <= 31; day++ {
		if counts[day] > bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best
}

// NextDate projects the next occurrence after last. Monthly projections are
// pinned to pinDay when given; month arithmetic clamps to the month's length.
func NextDate(last time.Time, frequency models.Frequency, pinDay *int) time.Time {
	switch frequency {
	case models.Weekly:
		return last.AddDate(0, 0, 7)
	case models.BiWeekly:
		return last.AddDate(0, 0, 14)
	case models.Monthly:
		day := last.Day()
		if pinDay != nil {
			day = *pinDay
		}
		return addMonths(last, 1, day)
	case models.Quarterly:
		return addMonths(last, 3, last.Day())
	}
	return last
}

func addMonths(from time.Time, months, day int) time.Time {
	first := time.Date(from.Year(), from.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if dim := buckets.DaysInMonth(first); day > dim {
		day = dim
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Upcoming returns patterns whose next expected date is between now and
// now+days inclusive, soonest first.
func Upcoming(patterns []models.RecurringPattern, now time.Time, days int) []models.RecurringPattern {
	result := []models.RecurringPattern{}
	for _, p := range patterns {
		until := models.DaysBetween(now, p.NextExpectedDate)
		if until >= 0 && until <= days {
			result = append(result, p)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].NextExpectedDate.Before(result[j].NextExpectedDate)
	})
	return result
}

// Key identifies a pattern by its category and first member transaction.
// Patterns built without members fall back to the category alone.
func Key(p models.RecurringPattern) string {
	if len(p.Transactions) == 0 {
		return p.CategoryID
	}
	return p.CategoryID + "-" + p.Transactions[0].ID
}

// DueSoon returns patterns expected within the next seven days
func DueSoon(patterns []models.RecurringPattern, now time.Time) []models.RecurringPattern {
	return Upcoming(patterns, now, DueSoonDays)
}
