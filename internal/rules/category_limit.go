package rules

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/core"
)

// CategoryLimitRule checks an expense against its category's spending limit
// for the month: reaching the alert tier warns, reaching the limit blocks.
type CategoryLimitRule struct {
	Reader Reader
}

func (CategoryLimitRule) Name() string { return "category_limit" }

func (r CategoryLimitRule) Evaluate(ctx context.Context, rc Context) (Outcome, error) {
	if rc.Type != core.Expense || rc.CategoryID == "" {
		return Success(), nil
	}

	category, err := r.Reader.GetCategory(ctx, rc.OwnerID, rc.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		// Reported by the priority rule.
		return Success(), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("get category: %w", err)
	}
	if !category.HasLimit() {
		return Success(), nil
	}

	spent, err := monthToDateExpense(ctx, r.Reader, rc, category.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("month-to-date spend: %w", err)
	}
	projected, err := spent.Add(rc.Value)
	if err != nil {
		return Outcome{}, err
	}

	ratio, _ := core.Utilization(projected, category.Limit)
	switch core.ClassifyCategory(projected, category.Limit) {
	case core.CategoryExceeded:
		return Failure(fmt.Sprintf("category %q limit exceeded: %s of %s (%s%%)",
			category.Name, projected, category.Limit, percent(ratio))), nil
	case core.CategoryAlert:
		return Warning(fmt.Sprintf("category %q is at %s%% of its limit: %s of %s",
			category.Name, percent(ratio), projected, category.Limit)), nil
	default:
		return Success(), nil
	}
}
