package models_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/testutil"
)

func TestTransactionDateOnTheWire(t *testing.T) {
	var tx models.Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","category_id":"rent","amount":"12.50","date":"2024-02-29","type":"expense"}`), &tx))
	assert.Equal(t, testutil.Day("2024-02-29"), tx.Date)
	testutil.AssertDecimal(t, "12.5", tx.Amount)

	out, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"date":"2024-02-29"`)
}

func TestSortByDateBreaksTiesByID(t *testing.T) {
	set := models.NewTransactionSet([]models.Transaction{
		testutil.Expense("b", "rent", "1", "2024-01-02"),
		testutil.Expense("c", "rent", "1", "2024-01-01"),
		testutil.Expense("a", "rent", "1", "2024-01-02"),
	})

	sorted := set.SortByDate()
	var ids []string
	for _, tx := range sorted.Transactions {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
	assert.Equal(t, "b", set.Transactions[0].ID, "input is untouched")
}

func TestSearchAndPaging(t *testing.T) {
	var txns []models.Transaction
	txns = append(txns, testutil.Monthly("pay", "salary", models.Income, "100", "2024-01-01", 5)...)
	txns[2].Description = "Bonus PAYOUT"
	set := models.NewTransactionSet(txns)

	assert.Equal(t, 1, set.FilterBySearch("payout").Len())
	assert.Equal(t, 0, set.FilterBySearch("refund").Len())

	assert.Equal(t, 3, set.TotalPages(2))
	assert.Equal(t, 3, set.TotalPages(0), "page size falls back to 25")
	assert.Equal(t, 1, set.Paginate(3, 2).Len())
	assert.Equal(t, 0, set.Paginate(4, 2).Len())
	assert.Equal(t, 2, set.Paginate(0, 2).Len(), "pages start at 1")
}

func TestValidate(t *testing.T) {
	valid := models.Snapshot{
		Transactions: []models.Transaction{testutil.Expense("a", "unknown", "5", "2024-01-01")},
		Budgets:      []models.Budget{{CategoryID: "rent", Amount: testutil.Dec("10"), Period: models.BudgetYearly}},
	}
	require.NoError(t, valid.Validate(), "unknown categories are allowed")

	tests := map[string]func(s *models.Snapshot){
		"negative amount": func(s *models.Snapshot) { s.Transactions[0].Amount = testutil.Dec("-5") },
		"missing date":    func(s *models.Snapshot) { s.Transactions[0].Date = time.Time{} },
		"unknown type":    func(s *models.Snapshot) { s.Transactions[0].Type = "transfer" },
		"budget period":   func(s *models.Snapshot) { s.Budgets[0].Period = "weekly" },
		"negative goal":   func(s *models.Snapshot) { s.Goals = []models.SavingsGoal{{TargetAmount: testutil.Dec("-1")}} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			snap := valid
			snap.Transactions = append([]models.Transaction(nil), valid.Transactions...)
			snap.Budgets = append([]models.Budget(nil), valid.Budgets...)
			mutate(&snap)
			assert.True(t, errors.Is(snap.Validate(), models.ErrInvalidSnapshot))
		})
	}
}

func TestPaginateFarPastTheEnd(t *testing.T) {
	set := models.NewTransactionSet(testutil.Monthly("pay", "salary", models.Income, "100", "2024-01-01", 3))

	assert.Equal(t, 0, set.Paginate(368934881474191034, 25).Len())
	assert.Equal(t, 0, set.Paginate(math.MaxInt, math.MaxInt).Len())
	assert.Equal(t, 3, set.Paginate(1, math.MaxInt).Len())
	assert.Equal(t, 1, set.TotalPages(math.MaxInt))
	assert.Equal(t, 0, models.NewTransactionSet(nil).Paginate(math.MaxInt/2, 25).Len())
}
