package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// BudgetRule blocks an expense that would push the month's total spend
// across all categories above the monthly budget. It has no warning tier.
type BudgetRule struct {
	Reader Reader
}

func (BudgetRule) Name() string { return "budget" }

func (r BudgetRule) Evaluate(ctx context.Context, rc Context) (Outcome, error) {
	if rc.Type != core.Expense {
		return Success(), nil
	}

	budget, err := r.Reader.GetBudget(ctx, rc.OwnerID, rc.Period())
	if errors.Is(err, core.ErrNotFound) {
		return Success(), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("get budget: %w", err)
	}

	spent, err := monthToDateExpense(ctx, r.Reader, rc, "")
	if err != nil {
		return Outcome{}, fmt.Errorf("month-to-date spend: %w", err)
	}
	projected, err := spent.Add(rc.Value)
	if err != nil {
		return Outcome{}, err
	}
	over, err := projected.GreaterThan(budget.Value)
	if err != nil {
		return Outcome{}, err
	}
	if over {
		return Failure(fmt.Sprintf("monthly budget for %s exceeded: %s of %s",
			budget.Period, projected, budget.Value)), nil
	}
	return Success(), nil
}

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).Round(0).String()
}
