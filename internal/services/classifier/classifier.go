// Package classifier infers transaction direction for imported rows that do
// not carry an explicit type, and spots transfers between own accounts.
package classifier

import (
	"strings"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
)

// IncomeKeywords mark a description as money coming in (lowercase)
var IncomeKeywords = []string{
	"payroll", "salary", "paycheck",
	"direct deposit", "direct dep",
	"refund", "cashback", "cash back",
	"dividend", "interest earned",
	"bonus", "rebate", "check deposit",
	"payment received", "reimbursement",
	"freelance", "commission", "wages",
	"earnings", "net pay",
}

// IncomeCategories are category names that only hold income (lowercase)
var IncomeCategories = []string{
	"paycheck", "salary", "income",
	"wages", "payroll", "earnings",
	"dividend", "interest", "refund",
	"reimbursement",
}

// NeverIncomeKeywords mark a description as spending whatever its sign (lowercase)
var NeverIncomeKeywords = []string{
	"loan payment", "mortgage payment", "bill payment", "autopay",
	"scheduled payment", "withdrawal", "fee", "penalty",
	"subscription", "membership",
}

// InternalTransferPatterns are moves between own accounts (lowercase)
var InternalTransferPatterns = []string{
	"funds transfer",
	"internal transfer",
	"credit card payment",
	"cc payment",
	"automatic payment - thank you",
	"transfer to savings",
	"transfer from savings",
}

// Classify decides the type of a row from its signed amount. Money out is
// always an expense; money in is income unless the description says it is a
// charge. A zero amount falls back to the income keywords.
func Classify(description, category string, signed decimal.Decimal) models.TransactionType {
	desc := normalize(description)

	if signed.IsNegative() || containsAny(desc, NeverIncomeKeywords) {
		return models.Expense
	}
	if signed.IsPositive() || IsPotentialIncome(description, category) {
		return models.Income
	}
	return models.Expense
}

// IsPotentialIncome reports whether the description or category reads like income
func IsPotentialIncome(description, category string) bool {
	cat := normalize(category)
	for _, c := range IncomeCategories {
		if cat == c || strings.Contains(cat, c) {
			return true
		}
	}
	return containsAny(normalize(description), IncomeKeywords)
}

// IsInternalTransfer reports whether a row moves money between own accounts.
// Rows that also read like income are kept.
func IsInternalTransfer(description, category string) bool {
	desc := normalize(description)

	if containsAny(desc, InternalTransferPatterns) {
		return !containsAny(desc, IncomeKeywords)
	}

	switch normalize(category) {
	case "transfer", "transfers", "credit card payment":
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
