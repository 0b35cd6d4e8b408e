package analyzer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/testutil"
)

func sampleSnapshot() models.Snapshot {
	var txns []models.Transaction
	txns = append(txns, testutil.Monthly("pay", "salary", models.Income, "4000", "2023-04-01", 12)...)
	txns = append(txns, testutil.Monthly("rent", "rent", models.Expense, "1500", "2023-04-03", 12)...)
	txns = append(txns, testutil.Monthly("tv", "streaming", models.Expense, "15.99", "2023-04-10", 12)...)
	txns = append(txns,
		testutil.Expense("dinner", "dining", "150", "2024-03-08"),
		testutil.Expense("future", "dining", "5000", "2024-03-28"),
	)

	deadline := testutil.Day("2024-12-31")
	return models.Snapshot{
		Transactions: txns,
		Categories:   testutil.Categories(),
		Budgets: []models.Budget{
			{CategoryID: "dining", Amount: testutil.Dec("100"), Period: models.BudgetMonthly},
			{CategoryID: "rent", Amount: testutil.Dec("1500"), Period: models.BudgetMonthly},
		},
		Goals: []models.SavingsGoal{
			{ID: "trip", Name: "Trip", TargetAmount: testutil.Dec("3000"), CurrentAmount: testutil.Dec("1200"), Deadline: &deadline},
		},
		OpeningBalance: testutil.Dec("1000"),
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	now := testutil.Day("2024-03-20")

	got, err := Analyze(sampleSnapshot(), now)
	require.NoError(t, err)

	assert.Equal(t, now, got.Now)
	testutil.AssertDecimal(t, "30658.12", got.Balance, "future transactions are ignored")
	assert.Len(t, got.Monthly, 12)
	assert.Equal(t, "2024-03", got.Monthly[11].Label)
	assert.Len(t, got.Weekly, 12)

	require.Len(t, got.Recurring, 3)
	byCategory := map[string]models.RecurringPattern{}
	for _, p := range got.Recurring {
		byCategory[p.CategoryID] = p
		assert.Equal(t, models.Monthly, p.Frequency)
	}
	assert.Equal(t, testutil.Day("2024-04-03"), byCategory["rent"].NextExpectedDate)
	testutil.AssertDecimal(t, "191.88", byCategory["streaming"].AnnualCost)
	assert.Len(t, got.Upcoming, 3)

	assert.True(t, got.Runway.Infinite)
	assert.Equal(t, models.RunwayExcellent, got.Runway.Status)

	assert.GreaterOrEqual(t, got.Health.Score, 0)
	assert.LessOrEqual(t, got.Health.Score, 100)
	assert.Equal(t, 10.0, got.Health.BudgetAdherence.Score, "dining is over budget")

	require.Len(t, got.Goals, 1)
	assert.True(t, got.Goals[0].OnTrack)

	require.NotEmpty(t, got.Alerts)
	assert.Equal(t, "budget-over-dining", got.Alerts[0].ID)
	for i := 1; i < len(got.Alerts); i++ {
		assert.LessOrEqual(t, got.Alerts[i-1].Severity.Priority(), got.Alerts[i].Severity.Priority())
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	now := testutil.Day("2024-03-20")
	snap := sampleSnapshot()

	first, err := Analyze(snap, now)
	require.NoError(t, err)
	second, err := Analyze(snap, now)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAnalyzeIgnoresTimeOfDay(t *testing.T) {
	snap := sampleSnapshot()
	morning, err := Analyze(snap, testutil.Day("2024-03-20").Add(7*time.Hour))
	require.NoError(t, err)
	midnight, err := Analyze(snap, testutil.Day("2024-03-20"))
	require.NoError(t, err)

	a, _ := json.Marshal(morning)
	b, _ := json.Marshal(midnight)
	assert.JSONEq(t, string(b), string(a))
}

func TestAnalyzeEmptySnapshot(t *testing.T) {
	got, err := Analyze(models.Snapshot{}, testutil.Day("2024-03-20"))
	require.NoError(t, err)

	assert.True(t, got.Balance.IsZero())
	assert.Len(t, got.Monthly, 12)
	assert.Empty(t, got.Recurring)
	assert.NotNil(t, got.Recurring)
	assert.True(t, got.Runway.Infinite)
	assert.Empty(t, got.Goals)
	assert.NotNil(t, got.Alerts)

	_, err = json.Marshal(got)
	assert.NoError(t, err)
}

func TestAnalyzeRejectsInvalidSnapshot(t *testing.T) {
	snap := sampleSnapshot()
	snap.Transactions[0].Amount = testutil.Dec("-1")

	_, err := Analyze(snap, testutil.Day("2024-03-20"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidSnapshot))
}

func TestAnalyzeRejectsOversizedAmounts(t *testing.T) {
	huge := testutil.Dec("1e400")

	tests := map[string]func(s *models.Snapshot){
		"transaction": func(s *models.Snapshot) {
			s.Transactions = append(s.Transactions, models.Transaction{
				ID: "huge", CategoryID: "dining", Amount: huge, Date: testutil.Day("2024-03-01"), Type: models.Expense,
			})
		},
		"opening balance": func(s *models.Snapshot) { s.OpeningBalance = huge.Neg() },
		"budget":          func(s *models.Snapshot) { s.Budgets[0].Amount = huge },
		"goal":            func(s *models.Snapshot) { s.Goals[0].TargetAmount = huge },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			snap := sampleSnapshot()
			mutate(&snap)

			_, err := Analyze(snap, testutil.Day("2024-03-20"))
			assert.True(t, errors.Is(err, models.ErrInvalidSnapshot), "got %v", err)
		})
	}

	snap := sampleSnapshot()
	snap.Transactions = append(snap.Transactions,
		testutil.Expense("big", "dining", models.MaxAmount.String(), "2024-03-01"))
	got, err := Analyze(snap, testutil.Day("2024-03-20"))
	require.NoError(t, err, "the bound itself is accepted")
	_, err = json.Marshal(got)
	assert.NoError(t, err, "scores stay finite")
}

func TestAnalyzeRejectsDuplicateBudgets(t *testing.T) {
	snap := sampleSnapshot()
	snap.Budgets = append(snap.Budgets,
		models.Budget{CategoryID: "dining", Amount: testutil.Dec("50"), Period: models.BudgetMonthly},
		models.Budget{CategoryID: "rent", Amount: testutil.Dec("18000"), Period: models.BudgetYearly},
	)
	_, err := Analyze(snap, testutil.Day("2024-03-20"))
	assert.True(t, errors.Is(err, models.ErrInvalidSnapshot))

	snap.Budgets = snap.Budgets[1:]
	_, err = Analyze(snap, testutil.Day("2024-03-20"))
	assert.NoError(t, err, "a yearly budget may sit beside a monthly one")
}

func TestServiceSettingsAndLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc := New(Settings{UpcomingDays: 7, TopCategories: 1, WeeklyBuckets: 2}, logrus.NewEntry(logger))
	got, err := svc.Analyze(sampleSnapshot(), testutil.Day("2024-03-20"))
	require.NoError(t, err)

	assert.Len(t, got.Forecast.Categories, 1)
	assert.Equal(t, "rent", got.Forecast.Categories[0].CategoryID)
	assert.Empty(t, got.Upcoming, "nothing is due within a week")
	assert.Len(t, got.Weekly, 5, "the weekly series always covers the consistency window")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Analysis complete", hook.LastEntry().Message)
	assert.Equal(t, 3, hook.LastEntry().Data["recurring"])
}
