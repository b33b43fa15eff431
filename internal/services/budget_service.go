package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// BudgetService manages the single overall spending budget an owner may set
// per month.
type BudgetService struct {
	repo     ports.Repository
	events   EventPublisher
	currency string
	now      func() time.Time
}

func NewBudgetService(repo ports.Repository, events EventPublisher, currency string, now func() time.Time) *BudgetService {
	return &BudgetService{
		repo:     repo,
		events:   events,
		currency: currency,
		now:      clockOrDefault(now),
	}
}

// Set creates the budget for ym. A second budget for the same month fails
// with core.ErrConflict; use Update instead.
func (s *BudgetService) Set(ctx context.Context, ownerID string, ym core.YearMonth, value core.Money) (core.MonthlyBudget, error) {
	b := core.MonthlyBudget{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Period:    ym,
		Value:     value,
		CreatedAt: s.now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	if err := inCurrency(s.currency, value); err != nil {
		return core.MonthlyBudget{}, err
	}

	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		first, _ := ym.Bounds()
		if err := EnsureOpen(ctx, r, ownerID, first); err != nil {
			return err
		}
		return r.CreateBudget(ctx, b)
	})
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("set budget %s: %w", ym, err)
	}

	slog.InfoContext(ctx, "Monthly budget set",
		"owner_id", ownerID,
		"period", ym.String(),
		"value", value.String())
	publish(ctx, s.events, amqp.EventBudgetSet, ownerID, ym.String(), b.ID, map[string]string{
		"value":    value.Amount.StringFixed(core.Precision),
		"currency": value.Currency,
	})

	return b, nil
}

// Update replaces the value of an existing budget.
func (s *BudgetService) Update(ctx context.Context, ownerID string, ym core.YearMonth, value core.Money) (core.MonthlyBudget, error) {
	if err := validatePeriod(ownerID, ym); err != nil {
		return core.MonthlyBudget{}, err
	}
	if err := inCurrency(s.currency, value); err != nil {
		return core.MonthlyBudget{}, err
	}

	var updated core.MonthlyBudget
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		first, _ := ym.Bounds()
		if err := EnsureOpen(ctx, r, ownerID, first); err != nil {
			return err
		}
		b, err := r.GetBudget(ctx, ownerID, ym)
		if err != nil {
			return err
		}
		b.Value = value
		b.UpdatedAt = s.now().UTC()
		if err := b.Validate(); err != nil {
			return err
		}
		updated = b
		return r.UpdateBudget(ctx, b)
	})
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("update budget %s: %w", ym, err)
	}

	slog.InfoContext(ctx, "Monthly budget updated",
		"owner_id", ownerID,
		"period", ym.String(),
		"value", value.String())
	publish(ctx, s.events, amqp.EventBudgetUpdated, ownerID, ym.String(), updated.ID, map[string]string{
		"value":    value.Amount.StringFixed(core.Precision),
		"currency": value.Currency,
	})

	return updated, nil
}

func (s *BudgetService) Get(ctx context.Context, ownerID string, ym core.YearMonth) (core.MonthlyBudget, error) {
	return s.repo.GetBudget(ctx, ownerID, ym)
}

// Progress overlays the month's total expense on its budget.
func (s *BudgetService) Progress(ctx context.Context, ownerID string, ym core.YearMonth) (core.BudgetProgress, error) {
	b, err := s.repo.GetBudget(ctx, ownerID, ym)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	_, spent, err := expenseByCategory(ctx, s.repo, ownerID, ym, b.Value.Currency)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return core.NewBudgetProgress(b, spent)
}
