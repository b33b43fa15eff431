package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
)

// monthTotals sums the owner's income and expense dated inside ym.
func monthTotals(ctx context.Context, r ports.TransactionReader, ownerID string, ym core.YearMonth, currency string) (income, expense core.Money, err error) {
	first, last := ym.Bounds()
	txs, err := r.ListTransactions(ctx, ownerID, ports.TransactionFilter{From: first, To: last})
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("list transactions for %s: %w", ym, err)
	}

	var incomes, expenses []core.Money
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			incomes = append(incomes, t.Value)
		case core.Expense:
			expenses = append(expenses, t.Value)
		}
	}
	if income, err = core.Sum(currency, incomes...); err != nil {
		return core.Money{}, core.Money{}, err
	}
	if expense, err = core.Sum(currency, expenses...); err != nil {
		return core.Money{}, core.Money{}, err
	}
	return income, expense, nil
}

// expenseByCategory returns the month's expense per category id.
func expenseByCategory(ctx context.Context, r ports.TransactionReader, ownerID string, ym core.YearMonth, currency string) (map[string]core.Money, core.Money, error) {
	first, last := ym.Bounds()
	txs, err := r.ListTransactions(ctx, ownerID, ports.TransactionFilter{Type: core.Expense, From: first, To: last})
	if err != nil {
		return nil, core.Money{}, fmt.Errorf("list expenses for %s: %w", ym, err)
	}

	zero, err := core.Zero(currency)
	if err != nil {
		return nil, core.Money{}, err
	}
	total := zero
	byCategory := make(map[string]core.Money)
	for _, t := range txs {
		spent, ok := byCategory[t.CategoryID]
		if !ok {
			spent = zero
		}
		if spent, err = spent.Add(t.Value); err != nil {
			return nil, core.Money{}, err
		}
		byCategory[t.CategoryID] = spent
		if total, err = total.Add(t.Value); err != nil {
			return nil, core.Money{}, err
		}
	}
	return byCategory, total, nil
}

// inCurrency rejects amounts not kept in the ledger currency.
func inCurrency(currency string, m core.Money) error {
	if m.Currency != currency {
		return fmt.Errorf("%w: %s vs %s", core.ErrCurrencyMismatch, currency, m.Currency)
	}
	return nil
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
