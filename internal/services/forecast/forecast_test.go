package forecast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/testutil"
)

func decs(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = testutil.Dec(v)
	}
	return out
}

func TestWeightsSumToOne(t *testing.T) {
	assert.True(t, Weight3.Add(Weight6).Add(Weight12).Equal(decimal.NewFromInt(1)))
}

func TestFlatHistoryForecastsTheConstant(t *testing.T) {
	var txns []models.Transaction
	txns = append(txns, testutil.Monthly("pay", "salary", models.Income, "3000", "2023-04-01", 12)...)
	txns = append(txns, testutil.Monthly("rent", "rent", models.Expense, "1234.56", "2023-04-02", 12)...)
	now := testutil.Day("2024-03-25")

	got := Project(Input{
		Months:       buckets.TrailingMonths(txns, now, WindowMonths),
		Transactions: txns,
		Categories:   testutil.CategoryIndex(),
		Balance:      testutil.Dec("100"),
	})

	testutil.AssertDecimal(t, "1234.56", got.Expense.Forecast)
	testutil.AssertDecimal(t, "3000", got.Income.Forecast)
	assert.Equal(t, 100.0, got.Expense.Confidence)
	assert.Equal(t, 100.0, got.Income.Confidence)
	assert.Equal(t, 100.0, got.Confidence)
	assert.Equal(t, models.ConfidenceHigh, got.ConfidenceLevel)
	testutil.AssertDecimal(t, "1765.44", got.Savings)
	testutil.AssertDecimal(t, "1865.44", got.ProjectedBalance)

	require.Len(t, got.Categories, 1)
	assert.Equal(t, "rent", got.Categories[0].CategoryID)
	assert.Equal(t, "Rent", got.Categories[0].CategoryName)
	testutil.AssertDecimal(t, "1234.56", got.Categories[0].Forecast)
}

func TestSeriesBlend(t *testing.T) {
	// 6 months of 100 then 6 months of 200, ending 400, 400, 400
	values := decs("100", "100", "100", "100", "100", "100", "200", "200", "200", "400", "400", "400")

	got := Series(values)
	testutil.AssertDecimal(t, "400", got.Avg3)
	testutil.AssertDecimal(t, "300", got.Avg6)
	testutil.AssertDecimal(t, "200", got.Avg12)
	// 0.5*400 + 0.3*300 + 0.2*200
	testutil.AssertDecimal(t, "330", got.Forecast)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		values []decimal.Decimal
		want   float64
	}{
		{"no data", nil, 0},
		{"all zero", decs("0", "0", "0"), 0},
		{"flat", decs("50", "50", "50"), 100},
		{"varied", decs("90", "100", "110"), 91.84},
		{"wild", decs("0", "0", "300"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.values), 0.005)
		})
	}
}

func TestLevelBands(t *testing.T) {
	assert.Equal(t, models.ConfidenceLow, Level(59.99))
	assert.Equal(t, models.ConfidenceMedium, Level(60))
	assert.Equal(t, models.ConfidenceMedium, Level(79.99))
	assert.Equal(t, models.ConfidenceHigh, Level(80))
}

func TestEmptyLedger(t *testing.T) {
	now := testutil.Day("2024-03-25")
	got := Project(Input{Months: buckets.TrailingMonths(nil, now, WindowMonths)})

	assert.True(t, got.Income.Forecast.IsZero())
	assert.True(t, got.Expense.Forecast.IsZero())
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, models.ConfidenceLow, got.ConfidenceLevel)
	assert.Empty(t, got.Categories)
}

func TestCategoryRankingAndTopN(t *testing.T) {
	now := testutil.Day("2024-03-25")
	txns := []models.Transaction{
		testutil.Expense("g1", "groceries", "300", "2024-01-10"),
		testutil.Expense("g2", "groceries", "300", "2024-02-10"),
		testutil.Expense("g3", "groceries", "300", "2024-03-10"),
		testutil.Expense("d1", "dining", "90", "2024-03-10"),
		testutil.Expense("s1", "streaming", "30", "2024-02-01"),
		testutil.Expense("s2", "streaming", "60", "2024-03-01"),
		testutil.Expense("old", "rent", "5000", "2023-11-01"),
		testutil.Expense("x", "mystery", "1000", "2024-03-01"),
	}

	in := Input{
		Months:       buckets.TrailingMonths(txns, now, WindowMonths),
		Transactions: txns,
		Categories:   testutil.CategoryIndex(),
	}

	all := Project(in).Categories
	require.Len(t, all, 3, "rent is outside the 3-month window and mystery is unknown")
	assert.Equal(t, "groceries", all[0].CategoryID)
	testutil.AssertDecimal(t, "300", all[0].Forecast)
	// dining and streaming both average 30; ties break by id
	assert.Equal(t, "dining", all[1].CategoryID)
	assert.Equal(t, "streaming", all[2].CategoryID)

	in.TopCategories = 2
	top := Project(in).Categories
	require.Len(t, top, 2)
	assert.Equal(t, "groceries", top[0].CategoryID)
	assert.Equal(t, "dining", top[1].CategoryID)
}
