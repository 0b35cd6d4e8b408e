package classifier

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"budgetinsights/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		desc     string
		category string
		amount   string
		want     models.TransactionType
	}{
		{"negative is spending", "ACME PAYROLL", "Salary", "-50", models.Expense},
		{"positive deposit", "ACME PAYROLL", "", "2500", models.Income},
		{"positive unknown credit", "Venmo cashout", "", "40", models.Income},
		{"fee with positive sign", "Monthly maintenance fee", "", "12", models.Expense},
		{"zero income category", "adjustment", "Interest", "0", models.Income},
		{"zero keyword", "Cashback reward", "", "0", models.Income},
		{"zero plain", "adjustment", "Misc", "0", models.Expense},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.desc, tt.category, decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsInternalTransfer(t *testing.T) {
	tests := []struct {
		desc     string
		category string
		want     bool
	}{
		{"ONLINE FUNDS TRANSFER 1234", "", true},
		{"Credit Card Payment - Thank You", "", true},
		{"Transfer to savings", "", true},
		{"Internal transfer payroll", "", false},
		{"Grocery Mart", "Transfers", true},
		{"Grocery Mart", "Groceries", false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInternalTransfer(tt.desc, tt.category))
		})
	}
}

func TestIsPotentialIncome(t *testing.T) {
	assert.True(t, IsPotentialIncome("anything", "Dividend Income"))
	assert.True(t, IsPotentialIncome("Tax REFUND", ""))
	assert.False(t, IsPotentialIncome("Coffee", "Dining"))
}
