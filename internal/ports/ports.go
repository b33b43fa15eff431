package ports

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Filters for list queries. Zero values mean "no constraint".
type (
	TransactionFilter struct {
		CategoryID string
		Type       core.TransactionType
		From       time.Time // inclusive, date only
		To         time.Time // inclusive, date only
		ExcludeID  string
	}

	CategoryFilter struct {
		Type       core.TransactionType
		Priority   core.Priority
		ActiveOnly bool
	}
)

// Ports for outbound adapters. Every read is scoped to an owner and reports
// core.ErrNotFound when an id does not resolve within that scope.
type (
	CategoryReader interface {
		GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
		ListCategories(ctx context.Context, ownerID string, f CategoryFilter) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) error
		UpdateCategory(ctx context.Context, c core.Category) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, ownerID, id string) error
		// ReassignTransactions moves every transaction of fromID to toID in a
		// single write and returns the number of rows moved.
		ReassignTransactions(ctx context.Context, ownerID, fromID, toID string, at time.Time) (int64, error)
	}

	BudgetReader interface {
		GetBudget(ctx context.Context, ownerID string, period core.YearMonth) (core.MonthlyBudget, error)
		ListBudgets(ctx context.Context, ownerID string) ([]core.MonthlyBudget, error)
	}

	BudgetWriter interface {
		// CreateBudget reports core.ErrConflict when the owner already has a
		// budget for the period.
		CreateBudget(ctx context.Context, b core.MonthlyBudget) error
		UpdateBudget(ctx context.Context, b core.MonthlyBudget) error
	}

	ClosureReader interface {
		// LatestClosure returns the most recent closure record for the period.
		LatestClosure(ctx context.Context, ownerID string, period core.YearMonth) (core.MonthlyClosure, error)
		ListClosures(ctx context.Context, ownerID string) ([]core.MonthlyClosure, error)
	}

	ClosureWriter interface {
		// CreateClosure reports core.ErrConflict when a closed record already
		// exists for the owner and period.
		CreateClosure(ctx context.Context, c core.MonthlyClosure) error
		UpdateClosure(ctx context.Context, c core.MonthlyClosure) error
	}

	AuditStore interface {
		AppendAudit(ctx context.Context, e core.AuditEntry) error
		ListAudit(ctx context.Context, ownerID string, limit int) ([]core.AuditEntry, error)
	}

	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}

	// Repository is the full persistence surface used by the services.
	Repository interface {
		CategoryReader
		CategoryWriter
		TransactionReader
		TransactionWriter
		BudgetReader
		BudgetWriter
		ClosureReader
		ClosureWriter
		AuditStore
		OwnerLister

		// WithTx runs fn inside one storage transaction. fn receives a
		// repository bound to that transaction; returning an error rolls
		// everything back.
		WithTx(ctx context.Context, fn func(Repository) error) error
		Close() error
	}
)
