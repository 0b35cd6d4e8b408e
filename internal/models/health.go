package models

// Grade is the qualitative band of a composite health score
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePoor      Grade = "Poor"
	GradeCritical  Grade = "Critical"
)

// Maximum points per health factor
const (
	MaxSavingsRate     = 25.0
	MaxBudgetAdherence = 20.0
	MaxConsistency     = 15.0
	MaxEmergencyFund   = 15.0
	MaxIncomeStability = 15.0
	MaxExpenseRatio    = 10.0
)

// HealthFactor is one bounded component of the health score
type HealthFactor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Metric float64 `json:"metric"` // the raw input the score was banded from
}

// Recommendation is a fixed advice message tied to a weak factor
type Recommendation struct {
	ID      string `json:"id"`
	Factor  string `json:"factor"`
	Message string `json:"message"`
}

// HealthScore is the composite financial-health breakdown
type HealthScore struct {
	SavingsRate     HealthFactor     `json:"savings_rate"`
	BudgetAdherence HealthFactor     `json:"budget_adherence"`
	Consistency     HealthFactor     `json:"spending_consistency"`
	EmergencyFund   HealthFactor     `json:"emergency_fund"`
	IncomeStability HealthFactor     `json:"income_stability"`
	ExpenseRatio    HealthFactor     `json:"expense_ratio"`
	Score           int              `json:"score"`
	Grade           Grade            `json:"grade"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Factors returns the six factors in their fixed order
func (h *HealthScore) Factors() []HealthFactor {
	return []HealthFactor{
		h.SavingsRate,
		h.BudgetAdherence,
		h.Consistency,
		h.EmergencyFund,
		h.IncomeStability,
		h.ExpenseRatio,
	}
}
