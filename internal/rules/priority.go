package rules

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/ports"
)

// PriorityRule freezes discretionary spending while essential budgets are
// under stress: a superfluous expense is blocked as soon as any essential
// category with a limit is in the alert or exceeded tier for the month.
//
// When several essential categories are stressed, the one named is the first
// returned by the store; no particular order is promised.
type PriorityRule struct {
	Reader Reader
}

func (PriorityRule) Name() string { return "priority" }

func (r PriorityRule) Evaluate(ctx context.Context, rc Context) (Outcome, error) {
	if rc.Type != core.Expense || rc.CategoryID == "" {
		return Success(), nil
	}

	category, err := r.Reader.GetCategory(ctx, rc.OwnerID, rc.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		return Failure(fmt.Sprintf("category %s not found", rc.CategoryID)), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("get category: %w", err)
	}
	if category.Priority == core.Essential {
		return Success(), nil
	}

	essentials, err := r.Reader.ListCategories(ctx, rc.OwnerID, ports.CategoryFilter{
		Type:       core.Expense,
		Priority:   core.Essential,
		ActiveOnly: true,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("list essential categories: %w", err)
	}

	for _, essential := range essentials {
		if !essential.HasLimit() {
			continue
		}
		spent, err := monthToDateExpense(ctx, r.Reader, rc, essential.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("month-to-date spend for %s: %w", essential.ID, err)
		}
		if status := core.ClassifyCategory(spent, essential.Limit); status.Stressed() {
			return Failure(fmt.Sprintf("superfluous expense blocked: essential category %q is %s (%s of %s)",
				essential.Name, status, spent, essential.Limit)), nil
		}
	}
	return Success(), nil
}
