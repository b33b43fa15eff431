// Package rules implements the business-rule pipeline that gates every
// transaction mutation.
//
// Each rule is an independent strategy evaluated against the same Context.
// Rules only read from storage; none of them mutate state, so their order
// does not change the outcome.
package rules

import (
	"context"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
)

// Kind is the verdict of a single rule.
type Kind int

const (
	KindSuccess Kind = iota
	KindWarning
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindFailure:
		return "failure"
	default:
		return "success"
	}
}

// Outcome is what one rule says about one mutation attempt.
type Outcome struct {
	Kind    Kind
	Message string
}

func Success() Outcome               { return Outcome{Kind: KindSuccess} }
func Warning(message string) Outcome { return Outcome{Kind: KindWarning, Message: message} }
func Failure(message string) Outcome { return Outcome{Kind: KindFailure, Message: message} }

// Context describes the mutation under evaluation. It is built per attempt
// and never persisted.
type Context struct {
	OwnerID    string
	Type       core.TransactionType
	CategoryID string // empty when no category applies
	Value      core.Money
	Date       time.Time
	// ExcludeTransactionID leaves the transaction being edited out of
	// month-to-date sums.
	ExcludeTransactionID string
}

// Period is the calendar month the mutation falls in.
func (c Context) Period() core.YearMonth { return core.YearMonthOf(c.Date) }

// Rule is the strategy interface shared by every business rule.
type Rule interface {
	Name() string
	// Evaluate returns the rule's verdict. A non-nil error means the rule
	// could not read what it needed; it is not a business outcome.
	Evaluate(ctx context.Context, rc Context) (Outcome, error)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, rc Context) (Outcome, error)
}

func (f RuleFunc) Name() string { return f.RuleName }

func (f RuleFunc) Evaluate(ctx context.Context, rc Context) (Outcome, error) {
	return f.Fn(ctx, rc)
}

// Reader is the read-only storage surface the rules depend on.
type Reader interface {
	GetCategory(ctx context.Context, ownerID, id string) (core.Category, error)
	ListCategories(ctx context.Context, ownerID string, f ports.CategoryFilter) ([]core.Category, error)
	ListTransactions(ctx context.Context, ownerID string, f ports.TransactionFilter) ([]core.Transaction, error)
	GetBudget(ctx context.Context, ownerID string, period core.YearMonth) (core.MonthlyBudget, error)
}

// monthToDateExpense sums the owner's expenses in the month of date,
// optionally restricted to one category.
func monthToDateExpense(ctx context.Context, r Reader, rc Context, categoryID string) (core.Money, error) {
	first, last := rc.Period().Bounds()
	txs, err := r.ListTransactions(ctx, rc.OwnerID, ports.TransactionFilter{
		CategoryID: categoryID,
		Type:       core.Expense,
		From:       first,
		To:         last,
		ExcludeID:  rc.ExcludeTransactionID,
	})
	if err != nil {
		return core.Money{}, err
	}
	values := make([]core.Money, len(txs))
	for i, t := range txs {
		values[i] = t.Value
	}
	return core.Sum(rc.Value.Currency, values...)
}
