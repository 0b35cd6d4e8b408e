// Package buckets partitions transactions into calendar-aligned time windows.
//
// Day, week, month and year buckets are aligned to the start of their unit
// (weeks start on Monday, matching ISO week labels). When the requested range
// does not fall on unit boundaries the first and last buckets are cut short,
// so only transactions dated inside [start, end] are counted. A custom bucket
// spans exactly [start, end]. Buckets are contiguous and always present, with
// zero totals when empty.
package buckets

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
)

// Build partitions transactions into buckets covering [start, end].
// Transactions outside the bucketed range are excluded.
func Build(txns []models.Transaction, unit models.BucketUnit, start, end time.Time) []models.Bucket {
	start = models.DateOf(start)
	end = models.DateOf(end)
	if end.Before(start) {
		return []models.Bucket{}
	}

	var result []models.Bucket
	if unit == models.UnitCustom {
		result = []models.Bucket{newBucket(start, end.AddDate(0, 0, 1),
			fmt.Sprintf("%s..%s", start.Format(models.DateLayout), end.Format(models.DateLayout)))}
	} else {
		for cur := Floor(start, unit); !cur.After(end); cur = advance(cur, unit) {
			result = append(result, newBucket(cur, advance(cur, unit), label(cur, unit)))
		}
		result[0].Start = start
		result[len(result)-1].End = end.AddDate(0, 0, 1)
	}

	for _, t := range txns {
		idx := locate(result, t.Date)
		if idx < 0 {
			continue
		}
		b := &result[idx]
		switch t.Type {
		case models.Income:
			b.Income = b.Income.Add(t.Amount)
		case models.Expense:
			b.Expense = b.Expense.Add(t.Amount)
		}
		b.Count++
	}

	for i := range result {
		result[i].Net = result[i].Income.Sub(result[i].Expense)
	}
	return result
}

// MaxBuckets caps the buckets a single request may ask for
const MaxBuckets = 5000

// Count returns how many buckets Build would produce for the range without
// building them
func Count(unit models.BucketUnit, start, end time.Time) int {
	start, end = models.DateOf(start), models.DateOf(end)
	if end.Before(start) {
		return 0
	}
	switch unit {
	case models.UnitCustom:
		return 1
	case models.UnitWeek:
		return models.DaysBetween(Floor(start, unit), Floor(end, unit))/7 + 1
	case models.UnitMonth:
		return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	case models.UnitYear:
		return end.Year() - start.Year() + 1
	default:
		return models.DaysBetween(start, end) + 1
	}
}

// TrailingMonths returns n month buckets ending with the month containing now.
// The current month is always the last bucket, even though it is partial.
func TrailingMonths(txns []models.Transaction, now time.Time, n int) []models.Bucket {
	if n <= 0 {
		return []models.Bucket{}
	}
	current := Floor(now, models.UnitMonth)
	start := current.AddDate(0, -(n - 1), 0)
	end := current.AddDate(0, 1, -1)
	return Build(txns, models.UnitMonth, start, end)
}

// TrailingWeeks returns n week buckets ending with the week containing now
func TrailingWeeks(txns []models.Transaction, now time.Time, n int) []models.Bucket {
	if n <= 0 {
		return []models.Bucket{}
	}
	current := Floor(now, models.UnitWeek)
	start := current.AddDate(0, 0, -7*(n-1))
	end := current.AddDate(0, 0, 6)
	return Build(txns, models.UnitWeek, start, end)
}

// CategoryExpenses returns per-category expense totals aligned index-for-index
// with the given buckets. Transactions whose category is not in the supplied
// set are omitted.
func CategoryExpenses(txns []models.Transaction, bs []models.Bucket, categories map[string]models.Category) map[string][]decimal.Decimal {
	result := make(map[string][]decimal.Decimal)
	for _, t := range txns {
		if t.Type != models.Expense {
			continue
		}
		if _, known := categories[t.CategoryID]; !known {
			continue
		}
		idx := locate(bs, t.Date)
		if idx < 0 {
			continue
		}
		series, ok := result[t.CategoryID]
		if !ok {
			series = make([]decimal.Decimal, len(bs))
			for i := range series {
				series[i] = decimal.Zero
			}
			result[t.CategoryID] = series
		}
		series[idx] = series[idx].Add(t.Amount)
	}
	return result
}

// In returns the transactions dated inside the bucket
func In(txns []models.Transaction, b models.Bucket) *models.TransactionSet {
	return models.NewTransactionSet(txns).FilterByDateRange(b.Start, b.End.AddDate(0, 0, -1))
}

// CategorySpend returns the expense total of one category inside the bucket
func CategorySpend(txns []models.Transaction, b models.Bucket, categoryID string) decimal.Decimal {
	return In(txns, b).FilterByType(models.Expense).FilterByCategory(categoryID).SumAmount()
}

// Floor returns the start of the unit containing day
func Floor(day time.Time, unit models.BucketUnit) time.Time {
	d := models.DateOf(day)
	switch unit {
	case models.UnitWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case models.UnitMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.UnitYear:
		return time.Date(d.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// DaysInMonth returns the number of days in the month containing day
func DaysInMonth(day time.Time) int {
	return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func advance(cur time.Time, unit models.BucketUnit) time.Time {
	switch unit {
	case models.UnitWeek:
		return cur.AddDate(0, 0, 7)
	case models.UnitMonth:
		return cur.AddDate(0, 1, 0)
	case models.UnitYear:
		return cur.AddDate(1, 0, 0)
	default:
		return cur.AddDate(0, 0, 1)
	}
}

func label(start time.Time, unit models.BucketUnit) string {
	switch unit {
	case models.UnitWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.UnitMonth:
		return start.Format("2006-01")
	case models.UnitYear:
		return start.Format("2006")
	default:
		return start.Format(models.DateLayout)
	}
}

func newBucket(start, end time.Time, label string) models.Bucket {
	return models.Bucket{
		Start:   start,
		End:     end,
		Label:   label,
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Net:     decimal.Zero,
	}
}

// locate returns the index of the bucket containing day, or -1
func locate(bs []models.Bucket, day time.Time) int {
	d := models.DateOf(day)
	idx := sort.Search(len(bs), func(i int) bool {
		return bs[i].End.After(d)
	})
	if idx < len(bs) && bs[idx].Contains(d) {
		return idx
	}
	return -1
}
