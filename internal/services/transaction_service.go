package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/ports"
	"ledger/internal/rules"
)

// TransactionResult is returned by every accepted mutation. Warnings carry
// the non-fatal rule messages; the statuses describe the month after the
// change was applied.
type TransactionResult struct {
	Transaction    core.Transaction
	Warnings       []string
	CategoryStatus core.CategoryStatus
	BudgetStatus   core.BudgetStatus
}

// TransactionService records income and expenses. Each mutation runs the
// closure gate, then the rule pipeline, then persists, all inside one
// storage transaction.
type TransactionService struct {
	repo     ports.Repository
	events   EventPublisher
	pipeline func(r rules.Reader) *rules.Pipeline
	onChange func(ownerID string)
	currency string
	now      func() time.Time
}

// NewTransactionService wires the default rule set. onChange, when not nil,
// is called with the owner id after every committed mutation. Values must be
// in currency.
func NewTransactionService(repo ports.Repository, events EventPublisher, onChange func(ownerID string), currency string, now func() time.Time) *TransactionService {
	now = clockOrDefault(now)
	return &TransactionService{
		repo:     repo,
		events:   events,
		onChange: onChange,
		currency: currency,
		now:      now,
		pipeline: func(r rules.Reader) *rules.Pipeline {
			return rules.NewDefault(r, now)
		},
	}
}

// Create validates and stores a new transaction.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (TransactionResult, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Date = core.DateOnly(t.Date)
	t.CreatedAt = s.now().UTC()
	t.UpdatedAt = time.Time{}
	if err := t.Validate(); err != nil {
		return TransactionResult{}, err
	}
	if err := inCurrency(s.currency, t.Value); err != nil {
		return TransactionResult{}, err
	}

	var result TransactionResult
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		if err := EnsureOpen(ctx, r, t.OwnerID, t.Date); err != nil {
			return err
		}
		category, err := s.checkCategory(ctx, r, t)
		if err != nil {
			return err
		}
		warnings, err := s.evaluate(ctx, r, t, "")
		if err != nil {
			return err
		}
		if err := r.CreateTransaction(ctx, t); err != nil {
			return err
		}
		result, err = s.result(ctx, r, t, category, warnings)
		return err
	})
	if err != nil {
		return TransactionResult{}, fmt.Errorf("create transaction: %w", err)
	}

	s.committed(ctx, amqp.EventTransactionCreated, t, result.Warnings)
	return result, nil
}

// Update replaces an existing transaction. Both the month it was in and the
// month it moves to must be open. The category cannot change here; moving
// transactions between categories is CategoryService.Reassign's job. The
// edited transaction is excluded from the month-to-date sums the rules
// compute.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (TransactionResult, error) {
	t.Date = core.DateOnly(t.Date)
	if err := t.Validate(); err != nil {
		return TransactionResult{}, err
	}
	if err := inCurrency(s.currency, t.Value); err != nil {
		return TransactionResult{}, err
	}

	var result TransactionResult
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		existing, err := r.GetTransaction(ctx, t.OwnerID, t.ID)
		if err != nil {
			return err
		}
		if t.CategoryID != existing.CategoryID {
			return core.ErrCategoryChange
		}
		if err := EnsureOpen(ctx, r, t.OwnerID, existing.Date); err != nil {
			return err
		}
		if err := EnsureOpen(ctx, r, t.OwnerID, t.Date); err != nil {
			return err
		}
		category, err := s.checkCategory(ctx, r, t)
		if err != nil {
			return err
		}
		warnings, err := s.evaluate(ctx, r, t, t.ID)
		if err != nil {
			return err
		}

		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = s.now().UTC()
		if err := r.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		result, err = s.result(ctx, r, t, category, warnings)
		return err
	})
	if err != nil {
		return TransactionResult{}, fmt.Errorf("update transaction %s: %w", t.ID, err)
	}

	s.committed(ctx, amqp.EventTransactionUpdated, t, result.Warnings)
	return result, nil
}

// Delete removes a transaction dated in an open month.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	var deleted core.Transaction
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		existing, err := r.GetTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if err := EnsureOpen(ctx, r, ownerID, existing.Date); err != nil {
			return err
		}
		deleted = existing
		return r.DeleteTransaction(ctx, ownerID, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	s.committed(ctx, amqp.EventTransactionDeleted, deleted, nil)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, ownerID, id)
}

func (s *TransactionService) List(ctx context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, ownerID, f)
}

// checkCategory resolves the transaction's category and makes sure it can
// receive the transaction.
func (s *TransactionService) checkCategory(ctx context.Context, r ports.Repository, t core.Transaction) (core.Category, error) {
	category, err := r.GetCategory(ctx, t.OwnerID, t.CategoryID)
	if err != nil {
		return core.Category{}, err
	}
	if !category.Active {
		return core.Category{}, fmt.Errorf("%w: %s", core.ErrInactiveCategory, category.Name)
	}
	if category.Type != t.Type {
		return core.Category{}, fmt.Errorf("%w: %s transaction in %s category %s",
			core.ErrTypeMismatch, t.Type, category.Type, category.Name)
	}
	return category, nil
}

func (s *TransactionService) evaluate(ctx context.Context, r ports.Repository, t core.Transaction, excludeID string) ([]string, error) {
	res, err := s.pipeline(r).Evaluate(ctx, rules.Context{
		OwnerID:              t.OwnerID,
		Type:                 t.Type,
		CategoryID:           t.CategoryID,
		Value:                t.Value,
		Date:                 t.Date,
		ExcludeTransactionID: excludeID,
	})
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		slog.InfoContext(ctx, "Transaction blocked by business rules",
			"owner_id", t.OwnerID,
			"category_id", t.CategoryID,
			"amount", t.Value.String(),
			"errors", res.Errors)
		return nil, res.Err()
	}
	return res.Warnings, nil
}

// result computes the category and budget tiers after t was persisted.
func (s *TransactionService) result(ctx context.Context, r ports.Repository, t core.Transaction, category core.Category, warnings []string) (TransactionResult, error) {
	out := TransactionResult{
		Transaction:    t,
		Warnings:       warnings,
		CategoryStatus: core.CategoryNoLimit,
		BudgetStatus:   core.BudgetUndefined,
	}
	if t.Type != core.Expense {
		return out, nil
	}

	ym := core.YearMonthOf(t.Date)
	byCategory, total, err := expenseByCategory(ctx, r, t.OwnerID, ym, t.Value.Currency)
	if err != nil {
		return TransactionResult{}, err
	}
	out.CategoryStatus = core.ClassifyCategory(byCategory[category.ID], category.Limit)

	budget, err := r.GetBudget(ctx, t.OwnerID, ym)
	switch {
	case err == nil:
		out.BudgetStatus = core.ClassifyBudget(total, &budget.Value)
	case !errors.Is(err, core.ErrNotFound):
		return TransactionResult{}, err
	}
	return out, nil
}

func (s *TransactionService) committed(ctx context.Context, eventType string, t core.Transaction, warnings []string) {
	if s.onChange != nil {
		s.onChange(t.OwnerID)
	}

	fields := log.NewFields().
		WithOwner(t.OwnerID, core.YearMonthOf(t.Date).String()).
		WithTransaction(t.ID, t.CategoryID, string(t.Type), t.Value.String()).
		Set("event", eventType).
		Set("warnings", len(warnings))
	slog.InfoContext(ctx, "Transaction committed", fields.ToSlice()...)

	publish(ctx, s.events, eventType, t.OwnerID, core.YearMonthOf(t.Date).String(), t.ID, map[string]any{
		"category_id": t.CategoryID,
		"type":        string(t.Type),
		"amount":      t.Value.Amount.StringFixed(core.Precision),
		"currency":    t.Value.Currency,
		"warnings":    warnings,
	})
}
