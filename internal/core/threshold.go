package core

import "github.com/shopspring/decimal"

// CategoryStatus is the tier of a category's spend against its limit.
type CategoryStatus string

// BudgetStatus is the tier of a month's total spend against its budget.
type BudgetStatus string

const (
	CategoryNoLimit  CategoryStatus = "no_limit"
	CategoryNormal   CategoryStatus = "normal"
	CategoryAlert    CategoryStatus = "alert"
	CategoryExceeded CategoryStatus = "exceeded"
)

const (
	BudgetUndefined BudgetStatus = "undefined"
	BudgetWithin    BudgetStatus = "within_budget"
	BudgetAttention BudgetStatus = "attention"
	BudgetAlert     BudgetStatus = "alert"
	BudgetExceeded  BudgetStatus = "exceeded"
)

var (
	alertRatio       = decimal.RequireFromString("0.80")
	budgetAlertRatio = decimal.RequireFromString("0.95")
	exceededRatio    = decimal.NewFromInt(1)
)

// Utilization returns spent/limit. ok is false when there is no usable limit
// (nil, not positive or in another currency), in which case no ratio is
// defined.
func Utilization(spent Money, limit *Money) (ratio decimal.Decimal, ok bool) {
	if limit == nil || !limit.Amount.IsPositive() || limit.Currency != spent.Currency {
		return decimal.Zero, false
	}
	return spent.Amount.Div(limit.Amount), true
}

// ClassifyCategory maps spend against a category limit to Normal (<80%),
// Alert (80% up to 100%) or Exceeded (100% and above). Without a limit the
// result is CategoryNoLimit.
func ClassifyCategory(spent Money, limit *Money) CategoryStatus {
	ratio, ok := Utilization(spent, limit)
	if !ok {
		return CategoryNoLimit
	}
	switch {
	case ratio.GreaterThanOrEqual(exceededRatio):
		return CategoryExceeded
	case ratio.GreaterThanOrEqual(alertRatio):
		return CategoryAlert
	default:
		return CategoryNormal
	}
}

// ClassifyBudget maps spend against a monthly budget to WithinBudget (<80%),
// Attention (80% up to 95%), Alert (95% up to 100%) or Exceeded (100% and
// above). Without a budget the result is BudgetUndefined.
func ClassifyBudget(spent Money, budget *Money) BudgetStatus {
	ratio, ok := Utilization(spent, budget)
	if !ok {
		return BudgetUndefined
	}
	switch {
	case ratio.GreaterThanOrEqual(exceededRatio):
		return BudgetExceeded
	case ratio.GreaterThanOrEqual(budgetAlertRatio):
		return BudgetAlert
	case ratio.GreaterThanOrEqual(alertRatio):
		return BudgetAttention
	default:
		return BudgetWithin
	}
}

// Stressed reports whether the tier should freeze discretionary spending.
func (s CategoryStatus) Stressed() bool {
	return s == CategoryAlert || s == CategoryExceeded
}
