package runway

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"budgetinsights/internal/models"
	"budgetinsights/internal/testutil"
)

func month(income, expense string) models.Bucket {
	in, out := testutil.Dec(income), testutil.Dec(expense)
	return models.Bucket{Income: in, Expense: out, Net: in.Sub(out)}
}

func TestCalculateBurning(t *testing.T) {
	trailing := []models.Bucket{
		month("1000", "1900"),
		month("1000", "2100"),
		month("1000", "2000"),
	}

	r := Calculate(trailing, testutil.Dec("5000"))

	testutil.AssertDecimal(t, "2000", r.MonthlyBurn)
	assert.InDelta(t, 66.6667, r.DailyBurn.InexactFloat64(), 0.001)
	assert.InDelta(t, 466.6667, r.WeeklyBurn.InexactFloat64(), 0.001)
	testutil.AssertDecimal(t, "1000", r.NetBurn)
	assert.False(t, r.Infinite)
	assert.InDelta(t, 150, r.DaysRemaining, 1e-9)
	assert.InDelta(t, 5, r.MonthsRemaining, 1e-9)
	assert.Equal(t, models.RunwayGood, r.Status)
	assert.Equal(t, 0.0, r.BurnRateTrend)
}

func TestCalculateSavingIsInfinite(t *testing.T) {
	trailing := []models.Bucket{
		month("3000", "2000"),
		month("3000", "2500"),
		month("3000", "3000"),
	}

	r := Calculate(trailing, testutil.Dec("100"))
	assert.True(t, r.Infinite)
	assert.Equal(t, models.RunwayExcellent, r.Status)
	assert.Equal(t, 0.0, r.DaysRemaining)
	assert.True(t, math.IsInf(Months(r), 1))
}

func TestCalculateNonPositiveBalance(t *testing.T) {
	trailing := []models.Bucket{month("0", "500")}

	for _, balance := range []string{"0", "-250"} {
		r := Calculate(trailing, testutil.Dec(balance))
		assert.False(t, r.Infinite)
		assert.Equal(t, 0.0, r.DaysRemaining)
		assert.Equal(t, models.RunwayCritical, r.Status)
	}
}

func TestCalculateEmptyWindow(t *testing.T) {
	r := Calculate(nil, decimal.Zero)
	assert.True(t, r.Infinite)
	assert.True(t, r.DailyBurn.IsZero())
	assert.Equal(t, 0.0, r.BurnRateTrend)
}

func TestBurnRateTrend(t *testing.T) {
	trailing := []models.Bucket{
		month("0", "100"),
		month("0", "100"),
		month("0", "250"),
	}
	r := Calculate(trailing, testutil.Dec("1000"))
	// avg 150, current 250
	assert.Equal(t, 66.67, r.BurnRateTrend)
}

func TestStatusBands(t *testing.T) {
	tests := []struct {
		months float64
		want   models.RunwayStatus
	}{
		{0, models.RunwayCritical},
		{0.99, models.RunwayCritical},
		{1, models.RunwayWarning},
		{2.99, models.RunwayWarning},
		{3, models.RunwayGood},
		{5.99, models.RunwayGood},
		{6, models.RunwayExcellent},
		{48, models.RunwayExcellent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.months), "months=%v", tt.months)
	}
}

func TestMonthsRemainingIsMonotonicInBalance(t *testing.T) {
	trailing := []models.Bucket{
		month("800", "1200"),
		month("900", "1300"),
		month("700", "1100"),
	}

	prev := -1.0
	for balance := int64(-500); balance <= 20000; balance += 250 {
		r := Calculate(trailing, decimal.NewFromInt(balance))
		assert.GreaterOrEqual(t, r.MonthsRemaining, prev, "balance=%d", balance)
		prev = r.MonthsRemaining
	}
}

func TestCurrentBalance(t *testing.T) {
	txns := []models.Transaction{
		testutil.Income("i", "salary", "3000", "2024-03-01"),
		testutil.Expense("e", "rent", "1200", "2024-03-02"),
		testutil.Expense("future", "rent", "999", "2024-03-21"),
	}
	got := CurrentBalance(testutil.Dec("500"), txns, testutil.Day("2024-03-20"))
	testutil.AssertDecimal(t, "2300", got)
}
