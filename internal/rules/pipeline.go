package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"
)

// Result aggregates every rule's verdict for one mutation attempt.
type Result struct {
	Allowed  bool
	Errors   []string
	Warnings []string
}

// Err returns a *core.RuleBlockedError when the mutation is not allowed.
func (r Result) Err() error {
	if r.Allowed {
		return nil
	}
	return &core.RuleBlockedError{Errors: r.Errors, Warnings: r.Warnings}
}

// Pipeline is an ordered, fixed list of rules registered at startup.
type Pipeline struct {
	rules []Rule
}

func New(rules ...Rule) *Pipeline {
	return &Pipeline{rules: append([]Rule(nil), rules...)}
}

// NewDefault wires the standard rule set in its conventional order:
// temporal, category limit, budget, priority.
func NewDefault(r Reader, now func() time.Time) *Pipeline {
	return New(
		TemporalRule{Now: now},
		CategoryLimitRule{Reader: r},
		BudgetRule{Reader: r},
		PriorityRule{Reader: r},
	)
}

// Rules returns a copy of the registered rules.
func (p *Pipeline) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Evaluate runs the pipeline's rules against rc.
func (p *Pipeline) Evaluate(ctx context.Context, rc Context) (Result, error) {
	return Evaluate(ctx, p.rules, rc)
}

// Evaluate runs every rule, without short-circuiting, so all warnings and
// errors surface in one response. The mutation is allowed only if no rule
// failed.
func Evaluate(ctx context.Context, rules []Rule, rc Context) (Result, error) {
	res := Result{Allowed: true}
	for _, rule := range rules {
		out, err := rule.Evaluate(ctx, rc)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		switch out.Kind {
		case KindFailure:
			res.Allowed = false
			res.Errors = append(res.Errors, out.Message)
		case KindWarning:
			res.Warnings = append(res.Warnings, out.Message)
		default:
			continue
		}
		slog.DebugContext(ctx, "Business rule verdict",
			"rule", rule.Name(),
			"verdict", out.Kind.String(),
			"owner_id", rc.OwnerID,
			"message", out.Message)
	}
	return res, nil
}
