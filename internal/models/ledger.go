package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidSnapshot is returned for ledger data that cannot enter the analysis pipeline
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// MaxAmount bounds every amount and the opening balance. Statistics run in
// float64, and larger values overflow them.
var MaxAmount = decimal.New(1, 15)

func outOfRange(d decimal.Decimal) bool {
	return d.Abs().GreaterThan(MaxAmount)
}

// Category groups transactions. Color and Icon are display metadata only.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color,omitempty"`
	Icon  string          `json:"icon,omitempty"`
}

// BudgetPeriod is the period a budget amount applies to
type BudgetPeriod string

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// Budget caps spending in one category
type Budget struct {
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Period     BudgetPeriod    `json:"period"`
}

// SavingsGoal tracks progress toward a target amount
type SavingsGoal struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
}

type savingsGoalJSON struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      string          `json:"deadline,omitempty"`
}

// MarshalJSON writes the deadline as a calendar date
func (g SavingsGoal) MarshalJSON() ([]byte, error) {
	raw := savingsGoalJSON{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
	}
	if g.Deadline != nil {
		raw.Deadline = g.Deadline.Format(DateLayout)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts an optional calendar-date deadline
func (g *SavingsGoal) UnmarshalJSON(data []byte) error {
	var raw savingsGoalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = SavingsGoal{
		ID:            raw.ID,
		Name:          raw.Name,
		TargetAmount:  raw.TargetAmount,
		CurrentAmount: raw.CurrentAmount,
	}
	if raw.Deadline != "" {
		d, err := ParseDate(raw.Deadline)
		if err != nil {
			return fmt.Errorf("goal %q deadline: %w", raw.Name, err)
		}
		g.Deadline = &d
	}
	return nil
}

// Snapshot is the complete ledger input for one analysis pass
type Snapshot struct {
	Transactions   []Transaction   `json:"transactions"`
	Categories     []Category      `json:"categories"`
	Budgets        []Budget        `json:"category_budgets"`
	Goals          []SavingsGoal   `json:"savings_goals"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CategoryIndex maps category id to category
func (s *Snapshot) CategoryIndex() map[string]Category {
	index := make(map[string]Category, len(s.Categories))
	for _, c := range s.Categories {
		index[c.ID] = c
	}
	return index
}

// Validate rejects snapshots that the pipeline must not see. Unknown category
// references are allowed.
func (s *Snapshot) Validate() error {
	if outOfRange(s.OpeningBalance) {
		return fmt.Errorf("%w: opening balance %s exceeds %s", ErrInvalidSnapshot, s.OpeningBalance, MaxAmount)
	}
	for i, t := range s.Transactions {
		if t.Amount.IsNegative() {
			return fmt.Errorf("%w: transaction %d (%s) has negative amount %s", ErrInvalidSnapshot, i, t.ID, t.Amount)
		}
		if outOfRange(t.Amount) {
			return fmt.Errorf("%w: transaction %d (%s) amount exceeds %s", ErrInvalidSnapshot, i, t.ID, MaxAmount)
		}
		if t.Date.IsZero() {
			return fmt.Errorf("%w: transaction %d (%s) has no date", ErrInvalidSnapshot, i, t.ID)
		}
		if !t.Type.Valid() {
			return fmt.Errorf("%w: transaction %d (%s) has unknown type %q", ErrInvalidSnapshot, i, t.ID, t.Type)
		}
	}

	type budgetKey struct {
		category string
		period   BudgetPeriod
	}
	seen := make(map[budgetKey]bool, len(s.Budgets))
	for _, b := range s.Budgets {
		if b.Amount.IsNegative() {
			return fmt.Errorf("%w: budget for %s has negative amount", ErrInvalidSnapshot, b.CategoryID)
		}
		if outOfRange(b.Amount) {
			return fmt.Errorf("%w: budget for %s exceeds %s", ErrInvalidSnapshot, b.CategoryID, MaxAmount)
		}
		if b.Period != BudgetMonthly && b.Period != BudgetYearly {
			return fmt.Errorf("%w: budget for %s has unknown period %q", ErrInvalidSnapshot, b.CategoryID, b.Period)
		}
		key := budgetKey{b.CategoryID, b.Period}
		if seen[key] {
			return fmt.Errorf("%w: duplicate %s budget for %s", ErrInvalidSnapshot, b.Period, b.CategoryID)
		}
		seen[key] = true
	}

	for i, g := range s.Goals {
		if g.TargetAmount.IsNegative() || g.CurrentAmount.IsNegative() {
			return fmt.Errorf("%w: goal %d has negative amounts", ErrInvalidSnapshot, i)
		}
		if outOfRange(g.TargetAmount) || outOfRange(g.CurrentAmount) {
			return fmt.Errorf("%w: goal %d amount exceeds %s", ErrInvalidSnapshot, i, MaxAmount)
		}
	}
	return nil
}
