package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// CategoryService manages categories, their month-to-date progress and the
// reassignment workflow that precedes a soft delete.
type CategoryService struct {
	repo     ports.Repository
	events   EventPublisher
	progress cache.Cache[[]core.CategoryProgress]
	currency string
	now      func() time.Time
}

// NewCategoryService builds the service. progress may be nil to disable
// caching of progress overlays.
func NewCategoryService(repo ports.Repository, events EventPublisher, progress cache.Cache[[]core.CategoryProgress], currency string, now func() time.Time) *CategoryService {
	return &CategoryService{
		repo:     repo,
		events:   events,
		progress: progress,
		currency: currency,
		now:      clockOrDefault(now),
	}
}

// Create stores a new active category. An empty ID is generated.
func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Active = true
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = time.Time{}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.Limit != nil {
		if err := inCurrency(s.currency, *c.Limit); err != nil {
			return core.Category{}, err
		}
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(c.OwnerID)

	slog.InfoContext(ctx, "Category created",
		"owner_id", c.OwnerID,
		"category_id", c.ID,
		"name", c.Name,
		"priority", string(c.Priority))
	publish(ctx, s.events, amqp.EventCategoryCreated, c.OwnerID, "", c.ID, map[string]string{"name": c.Name})

	return c, nil
}

// Rename changes a category's display name.
func (s *CategoryService) Rename(ctx context.Context, ownerID, id, name string) (core.Category, error) {
	return s.update(ctx, ownerID, id, func(c *core.Category) {
		c.Name = strings.TrimSpace(name)
	})
}

// UpdateLimit sets or, with a nil limit, removes the monthly spending limit.
func (s *CategoryService) UpdateLimit(ctx context.Context, ownerID, id string, limit *core.Money) (core.Category, error) {
	if limit != nil {
		if err := inCurrency(s.currency, *limit); err != nil {
			return core.Category{}, err
		}
	}
	return s.update(ctx, ownerID, id, func(c *core.Category) {
		c.Limit = limit
	})
}

func (s *CategoryService) update(ctx context.Context, ownerID, id string, mutate func(*core.Category)) (core.Category, error) {
	var updated core.Category
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		c, err := r.GetCategory(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if !c.Active {
			return deletedCategory(c)
		}
		mutate(&c)
		c.UpdatedAt = s.now().UTC()
		if err := c.Validate(); err != nil {
			return err
		}
		updated = c
		return r.UpdateCategory(ctx, c)
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %s: %w", id, err)
	}
	s.invalidate(ownerID)

	publish(ctx, s.events, amqp.EventCategoryUpdated, ownerID, "", id, map[string]string{"name": updated.Name})
	return updated, nil
}

func (s *CategoryService) Get(ctx context.Context, ownerID, id string) (core.Category, error) {
	return s.repo.GetCategory(ctx, ownerID, id)
}

func (s *CategoryService) List(ctx context.Context, ownerID string, f ports.CategoryFilter) ([]core.Category, error) {
	return s.repo.ListCategories(ctx, ownerID, f)
}

// Progress overlays month-to-date spend on every active expense category.
// Results are cached per owner and month until the owner's data changes.
func (s *CategoryService) Progress(ctx context.Context, ownerID string, ym core.YearMonth) ([]core.CategoryProgress, error) {
	if err := validatePeriod(ownerID, ym); err != nil {
		return nil, err
	}

	key := progressKey(ownerID, ym)
	if s.progress != nil {
		if cached, ok := s.progress.Get(key); ok {
			return cached, nil
		}
	}

	categories, err := s.repo.ListCategories(ctx, ownerID, ports.CategoryFilter{Type: core.Expense, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	spent, _, err := expenseByCategory(ctx, s.repo, ownerID, ym, s.currency)
	if err != nil {
		return nil, err
	}
	zero, err := core.Zero(s.currency)
	if err != nil {
		return nil, err
	}

	out := make([]core.CategoryProgress, 0, len(categories))
	for _, c := range categories {
		amount, ok := spent[c.ID]
		if !ok {
			amount = zero
		}
		out = append(out, core.NewCategoryProgress(c, amount))
	}

	if s.progress != nil {
		s.progress.Set(key, out)
	}
	return out, nil
}

// Reassign moves every transaction of sourceID to targetID atomically.
func (s *CategoryService) Reassign(ctx context.Context, ownerID, sourceID, targetID string) (core.ReassignmentResult, error) {
	if sourceID == targetID {
		return core.ReassignmentResult{}, core.ErrSameCategory
	}

	var result core.ReassignmentResult
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		source, err := r.GetCategory(ctx, ownerID, sourceID)
		if err != nil {
			return err
		}
		result, err = s.reassign(ctx, r, source, targetID)
		return err
	})
	if err != nil {
		return core.ReassignmentResult{}, fmt.Errorf("reassign %s to %s: %w", sourceID, targetID, err)
	}
	s.invalidate(ownerID)

	slog.InfoContext(ctx, "Transactions reassigned",
		"owner_id", ownerID,
		"from_category", sourceID,
		"to_category", targetID,
		"moved", result.MovedCount)
	publish(ctx, s.events, amqp.EventCategoryReassigned, ownerID, "", sourceID, map[string]any{
		"target_id": targetID,
		"moved":     result.MovedCount,
	})

	return result, nil
}

// reassign runs inside the caller's transaction.
func (s *CategoryService) reassign(ctx context.Context, r ports.Repository, source core.Category, targetID string) (core.ReassignmentResult, error) {
	if source.ID == targetID {
		return core.ReassignmentResult{}, core.ErrSameCategory
	}
	target, err := r.GetCategory(ctx, source.OwnerID, targetID)
	if err != nil {
		return core.ReassignmentResult{}, err
	}
	if !target.Active {
		return core.ReassignmentResult{}, fmt.Errorf("%w: %s", core.ErrInactiveCategory, target.Name)
	}
	if target.Type != source.Type {
		return core.ReassignmentResult{}, fmt.Errorf("%w: %s is %s, %s is %s",
			core.ErrTypeMismatch, source.Name, source.Type, target.Name, target.Type)
	}

	linked, err := r.ListTransactions(ctx, source.OwnerID, ports.TransactionFilter{CategoryID: source.ID})
	if err != nil {
		return core.ReassignmentResult{}, err
	}
	checked := make(map[core.YearMonth]bool)
	for _, t := range linked {
		ym := core.YearMonthOf(t.Date)
		if checked[ym] {
			continue
		}
		checked[ym] = true
		if err := EnsureOpen(ctx, r, source.OwnerID, t.Date); err != nil {
			return core.ReassignmentResult{}, err
		}
	}

	moved, err := r.ReassignTransactions(ctx, source.OwnerID, source.ID, target.ID, s.now().UTC())
	if err != nil {
		return core.ReassignmentResult{}, err
	}
	return core.ReassignmentResult{
		MovedCount: moved,
		SourceName: source.Name,
		TargetName: target.Name,
	}, nil
}

// PreviewDeletion lists what deleting categoryID would affect and which
// active categories of the same type could take over its transactions.
func (s *CategoryService) PreviewDeletion(ctx context.Context, ownerID, categoryID string) (core.DeletionPreview, error) {
	c, err := s.repo.GetCategory(ctx, ownerID, categoryID)
	if err != nil {
		return core.DeletionPreview{}, err
	}

	linked, err := s.repo.ListTransactions(ctx, ownerID, ports.TransactionFilter{CategoryID: categoryID})
	if err != nil {
		return core.DeletionPreview{}, fmt.Errorf("list linked transactions: %w", err)
	}
	currency := s.currency
	if len(linked) > 0 {
		currency = linked[0].Value.Currency
	}
	values := make([]core.Money, len(linked))
	for i, t := range linked {
		values[i] = t.Value
	}
	total, err := core.Sum(currency, values...)
	if err != nil {
		return core.DeletionPreview{}, err
	}

	candidates, err := s.repo.ListCategories(ctx, ownerID, ports.CategoryFilter{Type: c.Type, ActiveOnly: true})
	if err != nil {
		return core.DeletionPreview{}, fmt.Errorf("list alternative categories: %w", err)
	}
	alternatives := make([]core.Category, 0, len(candidates))
	for _, alt := range candidates {
		if alt.ID != c.ID {
			alternatives = append(alternatives, alt)
		}
	}

	return core.DeletionPreview{
		CategoryID:            c.ID,
		Name:                  c.Name,
		TransactionCount:      len(linked),
		TotalValue:            total,
		LinkedTransactions:    linked,
		AlternativeCategories: alternatives,
	}, nil
}

// DeleteWithReassignment soft-deletes categoryID. A category with linked
// transactions needs targetID; they are moved there first, in the same
// storage transaction. An empty targetID means no target.
func (s *CategoryService) DeleteWithReassignment(ctx context.Context, ownerID, categoryID, targetID string) (core.ReassignmentResult, error) {
	var result core.ReassignmentResult
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		c, err := r.GetCategory(ctx, ownerID, categoryID)
		if err != nil {
			return err
		}
		if !c.Active {
			return deletedCategory(c)
		}

		linked, err := r.ListTransactions(ctx, ownerID, ports.TransactionFilter{CategoryID: categoryID})
		if err != nil {
			return err
		}
		switch {
		case targetID != "":
			if result, err = s.reassign(ctx, r, c, targetID); err != nil {
				return err
			}
		case len(linked) > 0:
			return fmt.Errorf("%w: %d linked to %s", core.ErrTargetRequired, len(linked), c.Name)
		default:
			result = core.ReassignmentResult{SourceName: c.Name}
		}

		c.Active = false
		c.UpdatedAt = s.now().UTC()
		return r.UpdateCategory(ctx, c)
	})
	if err != nil {
		return core.ReassignmentResult{}, fmt.Errorf("delete category %s: %w", categoryID, err)
	}
	s.invalidate(ownerID)

	slog.InfoContext(ctx, "Category deleted",
		"owner_id", ownerID,
		"category_id", categoryID,
		"target_id", targetID,
		"moved", result.MovedCount)
	publish(ctx, s.events, amqp.EventCategoryDeleted, ownerID, "", categoryID, map[string]any{
		"target_id": targetID,
		"moved":     result.MovedCount,
	})

	return result, nil
}

// Invalidate drops cached progress for ownerID.
func (s *CategoryService) Invalidate(ownerID string) {
	s.invalidate(ownerID)
}

func (s *CategoryService) invalidate(ownerID string) {
	if s.progress == nil {
		return
	}
	if n := s.progress.DeletePrefix(ownerID + "/"); n > 0 {
		slog.Debug("Invalidated category progress cache", "owner_id", ownerID, "entries", n)
	}
}

func progressKey(ownerID string, ym core.YearMonth) string {
	return ownerID + "/" + ym.String()
}

// deletedCategory reports a mutation on a soft-deleted category. It matches
// core.ErrNotFound; deleted categories only survive to resolve historical
// transactions.
func deletedCategory(c core.Category) error {
	return &core.NotFoundError{Entity: "category", ID: c.ID}
}
