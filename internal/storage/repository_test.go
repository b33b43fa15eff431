package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCategories(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	limit := core.MustMoney("250.50", "EUR")
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for _, c := range []core.Category{
		{ID: "food", OwnerID: "u1", Name: "Food", Type: core.Expense, Priority: core.Essential, Limit: &limit, Active: true, CreatedAt: now},
		{ID: "fun", OwnerID: "u1", Name: "Fun", Type: core.Expense, Priority: core.Superfluous, Active: true, CreatedAt: now},
	} {
		if err := repo.CreateCategory(context.Background(), c); err != nil {
			t.Fatalf("create category %s: %v", c.ID, err)
		}
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo)
	ctx := context.Background()

	got, err := repo.GetCategory(ctx, "u1", "food")
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if !got.HasLimit() || got.Limit.String() != "250.50 EUR" {
		t.Fatalf("limit not preserved: %+v", got.Limit)
	}
	if !got.Active || got.Priority != core.Essential {
		t.Fatalf("unexpected category %+v", got)
	}

	fun, _ := repo.GetCategory(ctx, "u1", "fun")
	if fun.HasLimit() {
		t.Fatalf("fun should have no limit, got %v", fun.Limit)
	}

	if _, err := repo.GetCategory(ctx, "u2", "food"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
	if err := repo.CreateCategory(ctx, core.Category{ID: "food", OwnerID: "u1", Name: "Dup", Type: core.Expense, Priority: core.Essential}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	essentials, err := repo.ListCategories(ctx, "u1", ports.CategoryFilter{Priority: core.Essential, ActiveOnly: true})
	if err != nil || len(essentials) != 1 || essentials[0].ID != "food" {
		t.Fatalf("priority filter failed: %+v (err=%v)", essentials, err)
	}
}

func TestTransactionsReassignAndFilters(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo)
	ctx := context.Background()

	for i, d := range []time.Time{day(2024, 1, 1), day(2024, 1, 15), day(2024, 1, 31), day(2024, 2, 1)} {
		tx := core.Transaction{
			ID:          []string{"t1", "t2", "t3", "t4"}[i],
			OwnerID:     "u1",
			CategoryID:  "food",
			Description: "groceries",
			Value:       core.MustMoney("10.25", "EUR"),
			Type:        core.Expense,
			Date:        d,
			CreatedAt:   time.Now(),
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	first, last := core.MustYearMonth("2024-01").Bounds()
	jan, err := repo.ListTransactions(ctx, "u1", ports.TransactionFilter{From: first, To: last})
	if err != nil || len(jan) != 3 {
		t.Fatalf("expected 3 january transactions, got %d (err=%v)", len(jan), err)
	}
	if !jan[0].Value.Equal(core.MustMoney("10.25", "EUR")) {
		t.Fatalf("amount not preserved: %v", jan[0].Value)
	}

	n, err := repo.ReassignTransactions(ctx, "u1", "food", "fun", time.Now())
	if err != nil || n != 4 {
		t.Fatalf("expected 4 moved, got %d (err=%v)", n, err)
	}
	left, _ := repo.ListTransactions(ctx, "u1", ports.TransactionFilter{CategoryID: "food"})
	if len(left) != 0 {
		t.Fatalf("food still has %d transactions", len(left))
	}

	if err := repo.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestWithTxRollback(t *testing.T) {
	repo := newTestRepo(t)
	seedCategories(t, repo)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(r ports.Repository) error {
		c, err := r.GetCategory(ctx, "u1", "fun")
		if err != nil {
			return err
		}
		c.Name = "Leisure"
		if err := r.UpdateCategory(ctx, c); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	fun, _ := repo.GetCategory(ctx, "u1", "fun")
	if fun.Name != "Fun" {
		t.Fatalf("rollback failed, name is %q", fun.Name)
	}
}

func TestClosureActiveUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ym := core.MustYearMonth("2024-01")

	closure := func(id string, at time.Time) core.MonthlyClosure {
		return core.MonthlyClosure{
			ID:           id,
			OwnerID:      "u1",
			Period:       ym,
			ClosedAt:     at,
			Status:       core.ClosureClosed,
			TotalIncome:  core.MustMoney("5000", "EUR"),
			TotalExpense: core.MustMoney("1500", "EUR"),
			NetBalance:   core.MustMoney("3500", "EUR"),
		}
	}

	c1 := closure("c1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err := repo.CreateClosure(ctx, c1); err != nil {
		t.Fatalf("create closure: %v", err)
	}
	if err := repo.CreateClosure(ctx, closure("c2", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict for second active closure, got %v", err)
	}

	c1.Status = core.ClosureReopened
	c1.Notes = "fix"
	if err := repo.UpdateClosure(ctx, c1); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := repo.CreateClosure(ctx, closure("c3", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("close after reopen: %v", err)
	}

	latest, err := repo.LatestClosure(ctx, "u1", ym)
	if err != nil || latest.ID != "c3" || latest.Status != core.ClosureClosed {
		t.Fatalf("unexpected latest closure %+v (err=%v)", latest, err)
	}
	if !latest.NetBalance.Equal(core.MustMoney("3500", "EUR")) {
		t.Fatalf("net balance not preserved: %v", latest.NetBalance)
	}

	history, _ := repo.ListClosures(ctx, "u1")
	if len(history) != 2 {
		t.Fatalf("expected 2 closure records, got %d", len(history))
	}
}

func TestBudgetUniquenessAndAudit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ym := core.MustYearMonth("2024-03")

	b := core.MonthlyBudget{ID: "b1", OwnerID: "u1", Period: ym, Value: core.MustMoney("1500", "EUR"), CreatedAt: time.Now()}
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	b.ID = "b2"
	if err := repo.CreateBudget(ctx, b); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, err := repo.GetBudget(ctx, "u1", ym)
	if err != nil || got.ID != "b1" || got.Period != ym {
		t.Fatalf("unexpected budget %+v (err=%v)", got, err)
	}

	entry := core.AuditEntry{ID: "e1", OwnerID: "u1", EventType: "month.closed", Period: "2024-03", OccurredAt: time.Now()}
	for i := 0; i < 2; i++ {
		if err := repo.AppendAudit(ctx, entry); err != nil {
			t.Fatalf("append audit: %v", err)
		}
	}
	entries, err := repo.ListAudit(ctx, "u1", 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected a single audit entry, got %d (err=%v)", len(entries), err)
	}
}
