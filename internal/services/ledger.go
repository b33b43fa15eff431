package services

import (
	"fmt"
	"strings"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// Ledger bundles the services the binaries work with. All of them share one
// repository and one event publisher.
type Ledger struct {
	Transactions *TransactionService
	Categories   *CategoryService
	Budgets      *BudgetService
	Closures     *ClosureService

	repo ports.Repository
}

// LedgerOptions carries the optional collaborators of a Ledger.
type LedgerOptions struct {
	// Events is nil when no broker is configured.
	Events EventPublisher
	// Progress caches category progress overlays; nil disables caching.
	Progress cache.Cache[[]core.CategoryProgress]
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// NewLedger wires the services together. Every committed transaction
// mutation drops the owner's cached category progress.
func NewLedger(repo ports.Repository, currency string, opts LedgerOptions) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger requires a repository")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if _, err := core.Zero(currency); err != nil {
		return nil, fmt.Errorf("ledger currency: %w", err)
	}

	categories := NewCategoryService(repo, opts.Events, opts.Progress, currency, opts.Now)
	return &Ledger{
		Transactions: NewTransactionService(repo, opts.Events, categories.Invalidate, currency, opts.Now),
		Categories:   categories,
		Budgets:      NewBudgetService(repo, opts.Events, currency, opts.Now),
		Closures:     NewClosureService(repo, opts.Events, currency, opts.Now),
		repo:         repo,
	}, nil
}

// Repository exposes the shared store to workers that read it directly.
func (l *Ledger) Repository() ports.Repository {
	return l.repo
}
