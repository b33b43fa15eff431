package core

import "github.com/shopspring/decimal"

// ClosureSummary reports a month's totals together with its archive state.
// Status is empty while the month has never been closed.
type ClosureSummary struct {
	Period       YearMonth
	TotalIncome  Money
	TotalExpense Money
	NetBalance   Money
	Status       ClosureStatus
}

// Closed reports whether the summary is an archived snapshot.
func (s ClosureSummary) Closed() bool { return s.Status == ClosureClosed }

// ReassignmentResult confirms a bulk category move.
type ReassignmentResult struct {
	MovedCount int64
	SourceName string
	TargetName string
}

// DeletionPreview lists what deleting a category would affect.
type DeletionPreview struct {
	CategoryID            string
	Name                  string
	TransactionCount      int
	TotalValue            Money
	LinkedTransactions    []Transaction
	AlternativeCategories []Category
}

// RequiresTarget reports whether a reassignment target must be chosen
// before the category can be deleted.
func (p DeletionPreview) RequiresTarget() bool { return p.TransactionCount > 0 }

// CategoryProgress overlays month-to-date figures on a category.
type CategoryProgress struct {
	Category    Category
	Spent       Money
	Remaining   *Money // nil without a limit
	Utilization *decimal.Decimal
	Status      CategoryStatus
}

// BudgetProgress overlays month-to-date figures on a monthly budget.
type BudgetProgress struct {
	Budget      MonthlyBudget
	Spent       Money
	Remaining   Money
	Utilization decimal.Decimal
	Status      BudgetStatus
}

// NewCategoryProgress computes the overlay for spent against c's limit.
func NewCategoryProgress(c Category, spent Money) CategoryProgress {
	p := CategoryProgress{
		Category: c,
		Spent:    spent,
		Status:   ClassifyCategory(spent, c.Limit),
	}
	if ratio, ok := Utilization(spent, c.Limit); ok {
		p.Utilization = &ratio
		if remaining, err := c.Limit.Subtract(spent); err == nil {
			p.Remaining = &remaining
		}
	}
	return p
}

// NewBudgetProgress computes the overlay for spent against b.
func NewBudgetProgress(b MonthlyBudget, spent Money) (BudgetProgress, error) {
	remaining, err := b.Value.Subtract(spent)
	if err != nil {
		return BudgetProgress{}, err
	}
	ratio, _ := Utilization(spent, &b.Value)
	return BudgetProgress{
		Budget:      b,
		Spent:       spent,
		Remaining:   remaining,
		Utilization: ratio,
		Status:      ClassifyBudget(spent, &b.Value),
	}, nil
}
