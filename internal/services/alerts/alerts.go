// Package alerts evaluates an ordered list of independent rules over the
// derived ledger data and returns a prioritized alert feed.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/services/goals"
	"budgetinsights/internal/services/metrics"
	"budgetinsights/internal/services/recurrence"
)

// Rule thresholds
var (
	budgetNearRatio    = decimal.RequireFromString("0.8")
	spendingSpikeRatio = decimal.RequireFromString("1.2")
	categorySpikeRatio = decimal.RequireFromString("1.5")
	largeExpenseRatio  = decimal.RequireFromString("0.2")
	incomeDropRatio    = decimal.RequireFromString("0.1")
	hundred            = decimal.NewFromInt(100)
)

// MidMonthDay is the day of month after which missing activity is flagged
const MidMonthDay = 15

// Input is the shared derived data the rules read
type Input struct {
	Now time.Time
	// Trailing month buckets, oldest first, ending with the current month
	Months       []models.Bucket
	Transactions []models.Transaction
	Categories   map[string]models.Category
	Budgets      []models.Budget
	Balance      decimal.Decimal
	Runway       models.Runway
	Recurring    []models.RecurringPattern
	Goals        []models.GoalProgress
}

// Rule inspects the input and returns zero or more alerts
type Rule func(in *Input) []models.Alert

// Rules in evaluation order
var Rules = []Rule{
	BudgetLimits,
	SpendingSpike,
	NegativeBalance,
	CategorySpikes,
	MissingIncome,
	DecliningIncome,
	LargeExpense,
	AboveAverageSavings,
	QuietCategories,
	RecurringDue,
	GoalStatus,
}

// Generate runs every rule and orders the alerts by severity. Alerts of equal
// severity keep rule order.
func Generate(in Input) []models.Alert {
	result := []models.Alert{}
	for _, rule := range Rules {
		result = append(result, rule(&in)...)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Severity.Priority() < result[j].Severity.Priority()
	})
	return result
}

func (in *Input) current() (models.Bucket, bool) {
	if len(in.Months) == 0 {
		return models.Bucket{}, false
	}
	return in.Months[len(in.Months)-1], true
}

// previous returns up to n buckets immediately before the current month
func (in *Input) previous(n int) []models.Bucket {
	if len(in.Months) < 2 {
		return nil
	}
	return metrics.Last(in.Months[:len(in.Months)-1], n)
}

func (in *Input) categoryName(id string) string {
	if c, ok := in.Categories[id]; ok && c.Name != "" {
		return c.Name
	}
	return id
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Mul(hundred).Div(whole).Round(1)
}

func value(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// BudgetLimits flags monthly budgets that are exceeded or at 80% or more
func BudgetLimits(in *Input) []models.Alert {
	current, ok := in.current()
	if !ok {
		return nil
	}

	var out []models.Alert
	for _, b := range in.Budgets {
		if b.Period != models.BudgetMonthly {
			continue
		}
		spent := buckets.CategorySpend(in.Transactions, current, b.CategoryID)
		name := in.categoryName(b.CategoryID)

		switch {
		case spent.GreaterThan(b.Amount):
			out = append(out, models.Alert{
				ID:         "budget-over-" + b.CategoryID,
				Severity:   models.SeverityCritical,
				Title:      "Over budget: " + name,
				Message:    fmt.Sprintf("You've spent %s of your %s %s budget this month.", money(spent), money(b.Amount), name),
				Value:      value(spent.Sub(b.Amount)),
				CategoryID: b.CategoryID,
				Actionable: true,
			})
		case b.Amount.IsPositive() && spent.GreaterThanOrEqual(b.Amount.Mul(budgetNearRatio)):
			out = append(out, models.Alert{
				ID:         "budget-near-" + b.CategoryID,
				Severity:   models.SeverityWarning,
				Title:      "Approaching budget: " + name,
				Message:    fmt.Sprintf("You've used %s%% of your %s budget this month.", percentOf(spent, b.Amount), name),
				Value:      value(b.Amount.Sub(spent)),
				CategoryID: b.CategoryID,
				Actionable: true,
			})
		}
	}
	return out
}

// SpendingSpike flags this month's spending running more than 20% above the
// previous three months' average.
func SpendingSpike(in *Input) []models.Alert {
	current, ok := in.current()
	prev := in.previous(3)
	if !ok || len(prev) == 0 {
		return nil
	}
	avg := metrics.MeanDecimal(metrics.Expenses(prev))
	if !avg.IsPositive() || !current.Expense.GreaterThan(avg.Mul(spendingSpikeRatio)) {
		return nil
	}
	increase := percentOf(current.Expense.Sub(avg), avg)
	return []models.Alert{{
		ID:         "spending-spike",
		Severity:   models.SeverityWarning,
		Title:      "Spending is up this month",
		Message:    fmt.Sprintf("You've spent %s this month, %s%% above your 3-month average of %s.", money(current.Expense), increase, money(avg)),
		Value:      value(increase),
		Actionable: true,
	}}
}

// NegativeBalance projects the balance to month end at the current daily burn
func NegativeBalance(in *Input) []models.Alert {
	daysLeft := buckets.DaysInMonth(in.Now) - in.Now.Day()
	projected := in.Balance.Sub(in.Runway.DailyBurn.Mul(decimal.NewFromInt(int64(daysLeft)))).Round(2)
	if !projected.IsNegative() {
		return nil
	}
	return []models.Alert{{
		ID:         "projected-negative-balance",
		Severity:   models.SeverityCritical,
		Title:      "Balance may go negative",
		Message:    fmt.Sprintf("At your current spending rate your balance is projected to reach %s by the end of the month.", money(projected)),
		Value:      value(projected),
		Actionable: true,
	}}
}

// CategorySpikes flags categories running more than 50% above their own
// previous three months' average.
func CategorySpikes(in *Input) []models.Alert {
	window := metrics.Last(in.Months, 4)
	if len(window) < 2 {
		return nil
	}
	series := buckets.CategoryExpenses(in.Transactions, window, in.Categories)

	var out []models.Alert
	for _, id := range sortedKeys(series) {
		values := series[id]
		current := values[len(values)-1]
		avg := metrics.MeanDecimal(values[:len(values)-1])
		if !avg.IsPositive() || !current.GreaterThan(avg.Mul(categorySpikeRatio)) {
			continue
		}
		name := in.categoryName(id)
		increase := percentOf(current.Sub(avg), avg)
		out = append(out, models.Alert{
			ID:         "category-spike-" + id,
			Severity:   models.SeverityWarning,
			Title:      "Unusual spending: " + name,
			Message:    fmt.Sprintf("%s spending is %s this month, %s%% above its usual %s.", name, money(current), increase, money(avg)),
			Value:      value(current),
			CategoryID: id,
			Actionable: true,
		})
	}
	return out
}

// MissingIncome flags a month with no income past mid-month when income
// normally arrives.
func MissingIncome(in *Input) []models.Alert {
	current, ok := in.current()
	if !ok || in.Now.Day() < MidMonthDay || !current.Income.IsZero() {
		return nil
	}
	if !metrics.MeanDecimal(metrics.Incomes(in.previous(3))).IsPositive() {
		return nil
	}
	return []models.Alert{{
		ID:         "no-income",
		Severity:   models.SeverityWarning,
		Title:      "No income recorded this month",
		Message:    "No income has been recorded yet this month. Check that your deposits have arrived.",
		Actionable: true,
	}}
}

// DecliningIncome flags income falling in each of the last three complete
// months by more than 10% overall.
func DecliningIncome(in *Input) []models.Alert {
	prev := in.previous(3)
	if len(prev) < 3 {
		return nil
	}
	first, mid, last := prev[0].Income, prev[1].Income, prev[2].Income
	if !first.IsPositive() || !mid.LessThan(first) || !last.LessThan(mid) {
		return nil
	}
	drop := first.Sub(last)
	if !drop.GreaterThan(first.Mul(incomeDropRatio)) {
		return nil
	}
	pct := percentOf(drop, first)
	return []models.Alert{{
		ID:         "income-declining",
		Severity:   models.SeverityWarning,
		Title:      "Income is declining",
		Message:    fmt.Sprintf("Your income has dropped %s%% over the last three months, from %s to %s.", pct, money(first), money(last)),
		Value:      value(pct),
		Actionable: true,
	}}
}

// LargeExpense flags this month's largest single expense when it exceeds 20%
// of average monthly income.
func LargeExpense(in *Input) []models.Alert {
	current, ok := in.current()
	if !ok {
		return nil
	}
	avgIncome := metrics.MeanDecimal(metrics.Incomes(in.previous(3)))
	if !avgIncome.IsPositive() {
		return nil
	}

	expenses := buckets.In(in.Transactions, current).FilterByType(models.Expense).SortByDate().Transactions
	var largest *models.Transaction
	for i := range expenses {
		if largest == nil || expenses[i].Amount.GreaterThan(largest.Amount) {
			largest = &expenses[i]
		}
	}
	if largest == nil || !largest.Amount.GreaterThan(avgIncome.Mul(largeExpenseRatio)) {
		return nil
	}

	label := largest.Description
	if label == "" {
		label = in.categoryName(largest.CategoryID)
	}
	return []models.Alert{{
		ID:         "large-expense-" + largest.ID,
		Severity:   models.SeverityInfo,
		Title:      "Large expense",
		Message:    fmt.Sprintf("%s on %s was %s%% of your average monthly income.", money(largest.Amount), label, percentOf(largest.Amount, avgIncome)),
		Value:      value(largest.Amount),
		CategoryID: largest.CategoryID,
	}}
}

// AboveAverageSavings congratulates a positive month beating the previous
// three months' average net.
func AboveAverageSavings(in *Input) []models.Alert {
	current, ok := in.current()
	prev := in.previous(3)
	if !ok || len(prev) == 0 || !current.Net.IsPositive() {
		return nil
	}
	avg := metrics.MeanDecimal(metrics.Nets(prev))
	if !current.Net.GreaterThan(avg) {
		return nil
	}
	return []models.Alert{{
		ID:       "savings-above-average",
		Severity: models.SeveritySuccess,
		Title:    "Great month for savings",
		Message:  fmt.Sprintf("You've saved %s this month, above your 3-month average of %s.", money(current.Net), money(avg)),
		Value:    value(current.Net),
	}}
}

// QuietCategories notes categories with no spending this month past
// mid-month that usually see some.
func QuietCategories(in *Input) []models.Alert {
	if in.Now.Day() <= MidMonthDay {
		return nil
	}
	window := metrics.Last(in.Months, 4)
	if len(window) < 2 {
		return nil
	}
	series := buckets.CategoryExpenses(in.Transactions, window, in.Categories)

	var out []models.Alert
	for _, id := range sortedKeys(series) {
		values := series[id]
		avg := metrics.MeanDecimal(values[:len(values)-1])
		if !values[len(values)-1].IsZero() || !avg.IsPositive() {
			continue
		}
		name := in.categoryName(id)
		out = append(out, models.Alert{
			ID:         "category-zero-" + id,
			Severity:   models.SeverityInfo,
			Title:      "No spending: " + name,
			Message:    fmt.Sprintf("Nothing spent on %s this month, compared to a usual %s.", name, money(avg)),
			Value:      value(avg),
			CategoryID: id,
		})
	}
	return out
}

// RecurringDue lists recurring expenses expected within the next seven days
func RecurringDue(in *Input) []models.Alert {
	var out []models.Alert
	seen := make(map[string]int)
	for _, p := range recurrence.DueSoon(in.Recurring, in.Now) {
		if p.Type != models.Expense {
			continue
		}
		due := p.NextExpectedDate.Format(models.DateLayout)
		id := fmt.Sprintf("recurring-due-%s-%s", recurrence.Key(p), due)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		out = append(out, models.Alert{
			ID:         id,
			Severity:   models.SeverityInfo,
			Title:      "Upcoming payment: " + p.Description,
			Message:    fmt.Sprintf("%s of about %s is expected on %s.", p.Description, money(p.AvgAmount), due),
			Value:      value(p.AvgAmount),
			CategoryID: p.CategoryID,
		})
	}
	return out
}

// GoalStatus reports goals that were reached, missed or are falling behind
func GoalStatus(in *Input) []models.Alert {
	var out []models.Alert
	for i, gp := range in.Goals {
		key := goals.Key(gp.Goal, i)
		name := gp.Goal.Name
		if name == "" {
			name = "Savings goal " + key
		}

		switch {
		case gp.Complete:
			out = append(out, models.Alert{
				ID:       "goal-reached-" + key,
				Severity: models.SeveritySuccess,
				Title:    "Goal reached: " + name,
				Message:  fmt.Sprintf("You've saved %s toward your %s target.", money(gp.Goal.CurrentAmount), money(gp.Goal.TargetAmount)),
				Value:    value(gp.Goal.CurrentAmount),
			})
		case gp.Overdue:
			out = append(out, models.Alert{
				ID:         "goal-missed-" + key,
				Severity:   models.SeverityCritical,
				Title:      "Goal deadline passed: " + name,
				Message:    fmt.Sprintf("The deadline passed with %s still to save.", money(gp.Remaining)),
				Value:      value(gp.Remaining),
				Actionable: true,
			})
		case gp.Goal.Deadline != nil && !gp.OnTrack:
			out = append(out, models.Alert{
				ID:         "goal-behind-" + key,
				Severity:   models.SeverityWarning,
				Title:      "Goal behind schedule: " + name,
				Message:    fmt.Sprintf("Save %s a month to reach this goal by %s.", money(gp.RequiredMonthly), gp.Goal.Deadline.Format(models.DateLayout)),
				Value:      value(gp.RequiredMonthly),
				Actionable: true,
			})
		}
	}
	return out
}

func sortedKeys(m map[string][]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
