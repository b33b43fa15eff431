package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
)

// Store keeps the whole ledger in process memory. Transactions work on a
// private copy of the state which replaces the shared one only when the
// callback succeeds, so a failed unit of work leaves nothing behind.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	categories   []core.Category
	transactions []core.Transaction
	budgets      []core.MonthlyBudget
	closures     []core.MonthlyClosure
	audit        []core.AuditEntry
}

var _ ports.Repository = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{}}
}

func (s *state) clone() *state {
	return &state{
		categories:   append([]core.Category(nil), s.categories...),
		transactions: append([]core.Transaction(nil), s.transactions...),
		budgets:      append([]core.MonthlyBudget(nil), s.budgets...),
		closures:     append([]core.MonthlyClosure(nil), s.closures...),
		audit:        append([]core.AuditEntry(nil), s.audit...),
	}
}

// WithTx runs fn against a snapshot and commits it atomically on success.
// Other callers are held off until fn returns.
func (s *Store) WithTx(_ context.Context, fn func(ports.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{st: s.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *Store) Close() error { return nil }

// Categories

func (s *Store) CreateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.categories {
		if existing.ID == c.ID {
			return &core.ConflictError{Entity: "category", Key: c.ID}
		}
	}
	s.st.categories = append(s.st.categories, c)
	return nil
}

func (s *Store) GetCategory(_ context.Context, ownerID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.st.categories {
		if c.ID == id && c.OwnerID == ownerID {
			return c, nil
		}
	}
	return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
}

func (s *Store) ListCategories(_ context.Context, ownerID string, f ports.CategoryFilter) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.st.categories {
		if c.OwnerID != ownerID {
			continue
		}
		if f.Type != "" && c.Type != f.Type {
			continue
		}
		if f.Priority != "" && c.Priority != f.Priority {
			continue
		}
		if f.ActiveOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.st.categories {
		if existing.ID == c.ID && existing.OwnerID == c.OwnerID {
			s.st.categories[i] = c
			return nil
		}
	}
	return &core.NotFoundError{Entity: "category", ID: c.ID}
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.transactions {
		if existing.ID == t.ID {
			return &core.ConflictError{Entity: "transaction", Key: t.ID}
		}
	}
	s.st.transactions = append(s.st.transactions, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.st.transactions {
		if t.ID == id && t.OwnerID == ownerID {
			return t, nil
		}
	}
	return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
}

func (s *Store) ListTransactions(_ context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to := core.DateOnly(f.From), core.DateOnly(f.To)
	var out []core.Transaction
	for _, t := range s.st.transactions {
		if t.OwnerID != ownerID || (f.ExcludeID != "" && t.ID == f.ExcludeID) {
			continue
		}
		if f.CategoryID != "" && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		date := core.DateOnly(t.Date)
		if !f.From.IsZero() && date.Before(from) {
			continue
		}
		if !f.To.IsZero() && date.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.st.transactions {
		if existing.ID == t.ID && existing.OwnerID == t.OwnerID {
			s.st.transactions[i] = t
			return nil
		}
	}
	return &core.NotFoundError{Entity: "transaction", ID: t.ID}
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.st.transactions {
		if existing.ID == id && existing.OwnerID == ownerID {
			s.st.transactions = append(s.st.transactions[:i:i], s.st.transactions[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Entity: "transaction", ID: id}
}

func (s *Store) ReassignTransactions(_ context.Context, ownerID, fromID, toID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moved int64
	for i, t := range s.st.transactions {
		if t.OwnerID == ownerID && t.CategoryID == fromID {
			t.CategoryID = toID
			t.UpdatedAt = at
			s.st.transactions[i] = t
			moved++
		}
	}
	return moved, nil
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b core.MonthlyBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.budgets {
		if existing.OwnerID == b.OwnerID && existing.Period == b.Period {
			return &core.ConflictError{Entity: "monthly budget", Key: b.Period.String()}
		}
	}
	s.st.budgets = append(s.st.budgets, b)
	return nil
}

func (s *Store) GetBudget(_ context.Context, ownerID string, period core.YearMonth) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.st.budgets {
		if b.OwnerID == ownerID && b.Period == period {
			return b, nil
		}
	}
	return core.MonthlyBudget{}, &core.NotFoundError{Entity: "monthly budget", ID: period.String()}
}

func (s *Store) ListBudgets(_ context.Context, ownerID string) ([]core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyBudget
	for _, b := range s.st.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.MonthlyBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.st.budgets {
		if existing.ID == b.ID && existing.OwnerID == b.OwnerID {
			s.st.budgets[i] = b
			return nil
		}
	}
	return &core.NotFoundError{Entity: "monthly budget", ID: b.ID}
}

// Closures

func (s *Store) CreateClosure(_ context.Context, c core.MonthlyClosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.closures {
		if existing.OwnerID == c.OwnerID && existing.Period == c.Period && existing.Status == core.ClosureClosed {
			return &core.ConflictError{Entity: "monthly closure", Key: c.Period.String()}
		}
	}
	s.st.closures = append(s.st.closures, c)
	return nil
}

// LatestClosure returns the record appended last for the period.
func (s *Store) LatestClosure(_ context.Context, ownerID string, period core.YearMonth) (core.MonthlyClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.st.closures) - 1; i >= 0; i-- {
		c := s.st.closures[i]
		if c.OwnerID == ownerID && c.Period == period {
			return c, nil
		}
	}
	return core.MonthlyClosure{}, &core.NotFoundError{Entity: "monthly closure", ID: period.String()}
}

func (s *Store) ListClosures(_ context.Context, ownerID string) ([]core.MonthlyClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyClosure
	for _, c := range s.st.closures {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

func (s *Store) UpdateClosure(_ context.Context, c core.MonthlyClosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.st.closures {
		if existing.ID == c.ID && existing.OwnerID == c.OwnerID {
			s.st.closures[i] = c
			return nil
		}
	}
	return &core.NotFoundError{Entity: "monthly closure", ID: c.ID}
}

// Audit log

// AppendAudit ignores entries whose id is already recorded.
func (s *Store) AppendAudit(_ context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.st.audit {
		if existing.ID == e.ID {
			return nil
		}
	}
	s.st.audit = append(s.st.audit, e)
	return nil
}

// ListAudit returns the owner's entries, most recent first.
func (s *Store) ListAudit(_ context.Context, ownerID string, limit int) ([]core.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.AuditEntry
	for i := len(s.st.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if s.st.audit[i].OwnerID == ownerID {
			out = append(out, s.st.audit[i])
		}
	}
	return out, nil
}

// ListOwners returns every owner that has categories or transactions.
func (s *Store) ListOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, c := range s.st.categories {
		seen[c.OwnerID] = struct{}{}
	}
	for _, t := range s.st.transactions {
		seen[t.OwnerID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
