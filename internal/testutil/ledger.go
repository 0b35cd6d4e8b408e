package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
)

// Day parses a YYYY-MM-DD date and panics on malformed input
func Day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// Dec parses a decimal literal and panics on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Expense builds an expense transaction
func Expense(id, category, amount, date string) models.Transaction {
	return models.Transaction{
		ID:          id,
		CategoryID:  category,
		Amount:      Dec(amount),
		Date:        Day(date),
		Type:        models.Expense,
		Description: category + " payment",
	}
}

// Income builds an income transaction
func Income(id, category, amount, date string) models.Transaction {
	return models.Transaction{
		ID:          id,
		CategoryID:  category,
		Amount:      Dec(amount),
		Date:        Day(date),
		Type:        models.Income,
		Description: category + " deposit",
	}
}

// Monthly builds one transaction per month for n months starting at first,
// on the same day of month as first.
func Monthly(prefix, category string, tt models.TransactionType, amount string, first string, n int) []models.Transaction {
	start := Day(first)
	out := make([]models.Transaction, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Transaction{
			ID:          fmt.Sprintf("%s-%02d", prefix, i),
			CategoryID:  category,
			Amount:      Dec(amount),
			Date:        start.AddDate(0, i, 0),
			Type:        tt,
			Description: category,
		})
	}
	return out
}

// Categories returns a small category set used across tests
func Categories() []models.Category {
	return []models.Category{
		{ID: "salary", Name: "Salary", Type: models.Income},
		{ID: "rent", Name: "Rent", Type: models.Expense},
		{ID: "groceries", Name: "Groceries", Type: models.Expense},
		{ID: "dining", Name: "Dining", Type: models.Expense},
		{ID: "streaming", Name: "Streaming", Type: models.Expense},
	}
}

// CategoryIndex indexes Categories() by id
func CategoryIndex() map[string]models.Category {
	s := models.Snapshot{Categories: Categories()}
	return s.CategoryIndex()
}

// AssertDecimal fails the test when got is not numerically equal to want
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !got.Equal(Dec(want)) {
		t.Errorf("decimal mismatch: got %s, want %s %v", got, want, msgAndArgs)
	}
}
