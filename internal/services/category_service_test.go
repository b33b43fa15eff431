package services

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ports"
)

func TestCategoryService_Create(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.ledger.Categories.Create(ctx, core.Category{
		OwnerID: "u1", Name: "  Groceries ", Type: core.Expense, Priority: core.Essential,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" || c.Name != "Groceries" || !c.Active {
		t.Errorf("unexpected category %+v", c)
	}

	_, err = h.ledger.Categories.Create(ctx, core.Category{OwnerID: "u1", Name: "", Type: core.Expense, Priority: core.Essential})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for empty name, got %v", err)
	}
}

func TestCategoryService_RejectsForeignLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	usd := core.MustMoney("100", "USD")

	_, err := h.ledger.Categories.Create(ctx, core.Category{
		OwnerID: "u1", Name: "Travel", Type: core.Expense, Priority: core.Superfluous, Limit: &usd,
	})
	if !errors.Is(err, core.ErrCurrencyMismatch) {
		t.Fatalf("Create: expected currency mismatch, got %v", err)
	}

	food := h.category(t, "Food", core.Expense, core.Essential, "200")
	if _, err := h.ledger.Categories.UpdateLimit(ctx, "u1", food.ID, &usd); !errors.Is(err, core.ErrCurrencyMismatch) {
		t.Fatalf("UpdateLimit: expected currency mismatch, got %v", err)
	}
	got, err := h.ledger.Categories.Get(ctx, "u1", food.ID)
	if err != nil || got.Limit == nil || !got.Limit.Equal(eur("200")) {
		t.Errorf("limit changed: %+v (err=%v)", got.Limit, err)
	}

	cleared, err := h.ledger.Categories.UpdateLimit(ctx, "u1", food.ID, nil)
	if err != nil || cleared.Limit != nil {
		t.Errorf("clearing the limit: %+v (err=%v)", cleared.Limit, err)
	}
}

func TestCategoryService_ReassignMovesEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.category(t, "A", core.Expense, core.Superfluous, "")
	b := h.category(t, "B", core.Expense, core.Superfluous, "")
	for _, d := range []int{1, 2, 3} {
		h.seed(t, a, "10", date(2024, 2, d))
	}

	result, err := h.ledger.Categories.Reassign(ctx, "u1", a.ID, b.ID)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if result.MovedCount != 3 || result.SourceName != "A" || result.TargetName != "B" {
		t.Errorf("unexpected result %+v", result)
	}

	left, _ := h.store.ListTransactions(ctx, "u1", ports.TransactionFilter{CategoryID: a.ID})
	moved, _ := h.store.ListTransactions(ctx, "u1", ports.TransactionFilter{CategoryID: b.ID})
	if len(left) != 0 || len(moved) != 3 {
		t.Errorf("A has %d, B has %d; want 0 and 3", len(left), len(moved))
	}
	if h.events.count(amqp.EventCategoryReassigned) != 1 {
		t.Errorf("expected a reassigned event, got %v", h.events.types())
	}
}

func TestCategoryService_ReassignRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.category(t, "A", core.Expense, core.Superfluous, "")
	b := h.category(t, "B", core.Expense, core.Superfluous, "")
	salary := h.category(t, "Salary", core.Income, core.Essential, "")
	h.seed(t, a, "10", date(2024, 1, 15))

	if _, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", b.ID, ""); err != nil {
		t.Fatalf("delete B: %v", err)
	}

	tests := []struct {
		name   string
		source string
		target string
		want   error
	}{
		{"same category", a.ID, a.ID, core.ErrSameCategory},
		{"unknown target", a.ID, "missing", core.ErrNotFound},
		{"unknown source", "missing", b.ID, core.ErrNotFound},
		{"inactive target", a.ID, b.ID, core.ErrInactiveCategory},
		{"type mismatch", a.ID, salary.ID, core.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ledger.Categories.Reassign(ctx, "u1", tt.source, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := h.ledger.Categories.Reassign(ctx, "u1", a.ID, a.ID); !errors.Is(err, core.ErrValidation) {
		t.Errorf("same category must be a validation error, got %v", err)
	}
}

func TestCategoryService_ReassignBlockedByClosedMonth(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.category(t, "A", core.Expense, core.Superfluous, "")
	b := h.category(t, "B", core.Expense, core.Superfluous, "")
	h.seed(t, a, "10", date(2024, 1, 15))
	h.seed(t, a, "10", date(2024, 2, 1))

	if _, err := h.ledger.Closures.Close(ctx, "u1", core.MustYearMonth("2024-01"), ""); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := h.ledger.Categories.Reassign(ctx, "u1", a.ID, b.ID)
	if !errors.Is(err, core.ErrMonthClosed) {
		t.Fatalf("expected month closed, got %v", err)
	}
	left, _ := h.store.ListTransactions(ctx, "u1", ports.TransactionFilter{CategoryID: a.ID})
	if len(left) != 2 {
		t.Errorf("nothing should have moved, A has %d", len(left))
	}
}

func TestCategoryService_PreviewDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	food := h.category(t, "Food", core.Expense, core.Essential, "")
	dining := h.category(t, "Dining", core.Expense, core.Superfluous, "")
	h.category(t, "Salary", core.Income, core.Essential, "")
	h.seed(t, food, "12.50", date(2024, 2, 1))
	h.seed(t, food, "7.50", date(2024, 2, 2))

	preview, err := h.ledger.Categories.PreviewDeletion(ctx, "u1", food.ID)
	if err != nil {
		t.Fatalf("PreviewDeletion: %v", err)
	}
	if preview.TransactionCount != 2 || !preview.RequiresTarget() {
		t.Errorf("count = %d, want 2", preview.TransactionCount)
	}
	if !preview.TotalValue.Equal(eur("20")) {
		t.Errorf("total = %s, want 20.00 EUR", preview.TotalValue)
	}
	if len(preview.AlternativeCategories) != 1 || preview.AlternativeCategories[0].ID != dining.ID {
		t.Errorf("alternatives = %+v, want only Dining", preview.AlternativeCategories)
	}

	empty, err := h.ledger.Categories.PreviewDeletion(ctx, "u1", dining.ID)
	if err != nil {
		t.Fatalf("PreviewDeletion: %v", err)
	}
	if empty.RequiresTarget() || !empty.TotalValue.IsZero() {
		t.Errorf("unexpected preview %+v", empty)
	}
}

func TestCategoryService_DeleteWithReassignment(t *testing.T) {
	ctx := context.Background()

	t.Run("no transactions needs no target", func(t *testing.T) {
		h := newHarness(t)
		c := h.category(t, "Unused", core.Expense, core.Superfluous, "")

		if _, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", c.ID, ""); err != nil {
			t.Fatalf("delete: %v", err)
		}
		got, err := h.ledger.Categories.Get(ctx, "u1", c.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Active {
			t.Error("category should be inactive")
		}
		if _, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", c.ID, ""); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("deleting twice should be not found, got %v", err)
		}
	})

	t.Run("linked transactions need a target", func(t *testing.T) {
		h := newHarness(t)
		c := h.category(t, "Food", core.Expense, core.Essential, "")
		h.seed(t, c, "10", date(2024, 2, 1))

		_, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", c.ID, "")
		if !errors.Is(err, core.ErrTargetRequired) {
			t.Fatalf("expected target required, got %v", err)
		}
		got, _ := h.ledger.Categories.Get(ctx, "u1", c.ID)
		if !got.Active {
			t.Error("category must stay active after a failed delete")
		}
	})

	t.Run("moves then deletes", func(t *testing.T) {
		h := newHarness(t)
		from := h.category(t, "Food", core.Expense, core.Essential, "")
		to := h.category(t, "Groceries", core.Expense, core.Essential, "")
		h.seed(t, from, "10", date(2024, 2, 1))
		h.seed(t, from, "20", date(2024, 2, 2))

		result, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", from.ID, to.ID)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if result.MovedCount != 2 {
			t.Errorf("moved = %d, want 2", result.MovedCount)
		}
		active, _ := h.ledger.Categories.List(ctx, "u1", ports.CategoryFilter{ActiveOnly: true})
		if len(active) != 1 || active[0].ID != to.ID {
			t.Errorf("active categories = %+v", active)
		}
	})

	t.Run("failed reassignment keeps category", func(t *testing.T) {
		h := newHarness(t)
		from := h.category(t, "Food", core.Expense, core.Essential, "")
		salary := h.category(t, "Salary", core.Income, core.Essential, "")
		h.seed(t, from, "10", date(2024, 2, 1))

		_, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", from.ID, salary.ID)
		if !errors.Is(err, core.ErrTypeMismatch) {
			t.Fatalf("expected type mismatch, got %v", err)
		}
		got, _ := h.ledger.Categories.Get(ctx, "u1", from.ID)
		if !got.Active {
			t.Error("category must stay active")
		}
	})
}

func TestCategoryService_UpdateDeleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.category(t, "Old", core.Expense, core.Superfluous, "")
	if _, err := h.ledger.Categories.DeleteWithReassignment(ctx, "u1", c.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.ledger.Categories.Rename(ctx, "u1", c.ID, "New"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("rename of deleted category: expected not found, got %v", err)
	}
}

func TestCategoryService_ProgressCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	food := h.category(t, "Food", core.Expense, core.Essential, "100")
	h.category(t, "Fun", core.Expense, core.Superfluous, "")
	ym := core.MustYearMonth("2024-02")

	h.seed(t, food, "40", date(2024, 2, 1))
	progress, err := h.ledger.Categories.Progress(ctx, "u1", ym)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(progress))
	}
	byName := map[string]core.CategoryProgress{}
	for _, p := range progress {
		byName[p.Category.Name] = p
	}
	if byName["Food"].Status != core.CategoryNormal || !byName["Food"].Remaining.Equal(eur("60")) {
		t.Errorf("food progress = %+v", byName["Food"])
	}
	if byName["Fun"].Status != core.CategoryNoLimit || byName["Fun"].Remaining != nil {
		t.Errorf("fun progress = %+v", byName["Fun"])
	}

	// A write that bypasses the services is not seen until invalidation.
	h.seed(t, food, "20", date(2024, 2, 2))
	cached, _ := h.ledger.Categories.Progress(ctx, "u1", ym)
	if !cached[0].Spent.Equal(progress[0].Spent) {
		t.Fatal("expected cached progress")
	}

	if _, err := h.ledger.Transactions.Create(ctx, newTransaction(food, "25", date(2024, 2, 3))); err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, _ := h.ledger.Categories.Progress(ctx, "u1", ym)
	for _, p := range fresh {
		if p.Category.ID == food.ID {
			if !p.Spent.Equal(eur("85")) || p.Status != core.CategoryAlert {
				t.Errorf("fresh food progress = %s %s, want 85.00 EUR alert", p.Spent, p.Status)
			}
		}
	}
	if h.progress.Size() != 1 {
		t.Errorf("cache size = %d, want 1", h.progress.Size())
	}
}
