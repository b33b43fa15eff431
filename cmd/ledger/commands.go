package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
	"ledger/internal/services"
	"ledger/internal/worker"
)

type app struct {
	ledger   *services.Ledger
	audit    *worker.AuditWorker
	currency string
	out      io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error
}

var errUsage = errors.New("invalid usage")

var commands = map[string]command{
	"add-category":       {"create a category", addCategory},
	"list-categories":    {"list categories", listCategories},
	"set-limit":          {"set or clear a category spending limit", setLimit},
	"add-transaction":    {"record an income or expense", addTransaction},
	"list-transactions":  {"list transactions of a month", listTransactions},
	"delete-transaction": {"delete a transaction", deleteTransaction},
	"set-budget":         {"set or update the monthly budget", setBudget},
	"budget-status":      {"show budget progress for a month", budgetStatus},
	"progress":           {"show category progress for a month", progress},
	"close":              {"close a month", closeMonth},
	"reopen":             {"reopen a closed month", reopenMonth},
	"status":             {"show the summary of a month", status},
	"history":            {"list closure records", history},
	"reassign":           {"move all transactions to another category", reassign},
	"preview-delete":     {"show what deleting a category affects", previewDelete},
	"delete-category":    {"delete a category, reassigning its transactions", deleteCategory},
	"audit":              {"show recorded ledger events", audit},
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(a.out)
	return cmd.run(ctx, a, fs, args[1:])
}

// Flag helpers shared by the commands.

func ownerFlag(fs *flag.FlagSet) *string {
	return fs.String("owner", "", "owner id (required)")
}

func monthFlag(fs *flag.FlagSet) *string {
	return fs.String("month", "", "month as YYYY-MM (required)")
}

func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	var missing []string
	for _, name := range required {
		if f := fs.Lookup(name); f == nil || strings.TrimSpace(f.Value.String()) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s requires %s", errUsage, fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func (a *app) money(s string) (core.Money, error) {
	return core.ParseMoney(s, a.currency)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

// Categories

func addCategory(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	id := fs.String("id", "", "category id (generated when empty)")
	name := fs.String("name", "", "category name (required)")
	typ := fs.String("type", "expense", "income or expense")
	priority := fs.String("priority", "essential", "essential or superfluous")
	limit := fs.String("limit", "", "monthly spending limit")
	if err := parse(fs, args, "owner", "name"); err != nil {
		return err
	}

	t, err := core.ParseTransactionType(*typ)
	if err != nil {
		return err
	}
	p, err := core.ParsePriority(*priority)
	if err != nil {
		return err
	}
	c := core.Category{ID: *id, OwnerID: *owner, Name: *name, Type: t, Priority: p}
	if *limit != "" {
		m, err := a.money(*limit)
		if err != nil {
			return err
		}
		c.Limit = &m
	}

	created, err := a.ledger.Categories.Create(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created category %s (%s)\n", created.Name, created.ID)
	return nil
}

func listCategories(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	all := fs.Bool("all", false, "include deleted categories")
	if err := parse(fs, args, "owner"); err != nil {
		return err
	}

	categories, err := a.ledger.Categories.List(ctx, *owner, ports.CategoryFilter{ActiveOnly: !*all})
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPRIORITY\tLIMIT\tACTIVE")
	for _, c := range categories {
		limit := "-"
		if c.Limit != nil {
			limit = c.Limit.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Type, c.Priority, limit, c.Active)
	}
	return w.Flush()
}

func setLimit(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	id := fs.String("category", "", "category id (required)")
	limit := fs.String("limit", "", "new limit; empty removes it")
	if err := parse(fs, args, "owner", "category"); err != nil {
		return err
	}

	var m *core.Money
	if *limit != "" {
		parsed, err := a.money(*limit)
		if err != nil {
			return err
		}
		m = &parsed
	}
	c, err := a.ledger.Categories.UpdateLimit(ctx, *owner, *id, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated limit of %s\n", c.Name)
	return nil
}

// Transactions

func addTransaction(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	categoryID := fs.String("category", "", "category id (required)")
	typ := fs.String("type", "expense", "income or expense")
	amount := fs.String("amount", "", "amount (required)")
	date := fs.String("date", "", "date as YYYY-MM-DD, default today")
	desc := fs.String("desc", "", "description (required)")
	notes := fs.String("notes", "", "free-form notes")
	if err := parse(fs, args, "owner", "category", "amount", "desc"); err != nil {
		return err
	}

	t, err := core.ParseTransactionType(*typ)
	if err != nil {
		return err
	}
	value, err := a.money(*amount)
	if err != nil {
		return err
	}
	when := time.Now()
	if *date != "" {
		if when, err = time.Parse(time.DateOnly, *date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", core.ErrInvalidArgument)
		}
	}

	result, err := a.ledger.Transactions.Create(ctx, core.Transaction{
		OwnerID:     *owner,
		CategoryID:  *categoryID,
		Description: *desc,
		Value:       value,
		Type:        t,
		Date:        when,
		Notes:       *notes,
	})
	var blocked *core.RuleBlockedError
	if errors.As(err, &blocked) {
		for _, msg := range blocked.Errors {
			fmt.Fprintln(a.out, "blocked:", msg)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "recorded %s %s (%s)\n", result.Transaction.Type, result.Transaction.Value, result.Transaction.ID)
	for _, w := range result.Warnings {
		fmt.Fprintln(a.out, "warning:", w)
	}
	if t == core.Expense {
		fmt.Fprintf(a.out, "category: %s, budget: %s\n", result.CategoryStatus, result.BudgetStatus)
	}
	return nil
}

func listTransactions(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	categoryID := fs.String("category", "", "only this category")
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	first, last := ym.Bounds()
	txs, err := a.ledger.Transactions.List(ctx, *owner, ports.TransactionFilter{CategoryID: *categoryID, From: first, To: last})
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date.Format(time.DateOnly), t.Type, t.CategoryID, t.Value, t.Description)
	}
	return w.Flush()
}

func deleteTransaction(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	id := fs.String("id", "", "transaction id (required)")
	if err := parse(fs, args, "owner", "id"); err != nil {
		return err
	}
	if err := a.ledger.Transactions.Delete(ctx, *owner, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted transaction %s\n", *id)
	return nil
}

// Budgets

func setBudget(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	amount := fs.String("amount", "", "budget value (required)")
	update := fs.Bool("update", false, "replace an existing budget")
	if err := parse(fs, args, "owner", "month", "amount"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}
	value, err := a.money(*amount)
	if err != nil {
		return err
	}

	set := a.ledger.Budgets.Set
	if *update {
		set = a.ledger.Budgets.Update
	}
	b, err := set(ctx, *owner, ym, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "budget for %s: %s\n", b.Period, b.Value)
	return nil
}

func budgetStatus(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	p, err := a.ledger.Budgets.Progress(ctx, *owner, ym)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "budget %s: spent %s, remaining %s (%s%%) %s\n",
		p.Budget.Value, p.Spent, p.Remaining, p.Utilization.Shift(2).StringFixed(0), p.Status)
	return nil
}

func progress(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	rows, err := a.ledger.Categories.Progress(ctx, *owner, ym)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "CATEGORY\tSPENT\tLIMIT\tUSED\tSTATUS")
	for _, p := range rows {
		limit, used := "-", "-"
		if p.Category.Limit != nil {
			limit = p.Category.Limit.String()
		}
		if p.Utilization != nil {
			used = p.Utilization.Shift(2).StringFixed(0) + "%"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Category.Name, p.Spent, limit, used, p.Status)
	}
	return w.Flush()
}

// Closures

func closeMonth(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	notes := fs.String("notes", "", "closing notes")
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	c, err := a.ledger.Closures.Close(ctx, *owner, ym, *notes)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "closed %s: income %s, expense %s, net %s\n", c.Period, c.TotalIncome, c.TotalExpense, c.NetBalance)
	return nil
}

func reopenMonth(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	reason := fs.String("reason", "", "why the month is reopened")
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	ok, err := a.ledger.Closures.Reopen(ctx, *owner, ym, *reason)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "%s is not closed\n", ym)
		return nil
	}
	fmt.Fprintf(a.out, "reopened %s\n", ym)
	return nil
}

func status(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	month := monthFlag(fs)
	if err := parse(fs, args, "owner", "month"); err != nil {
		return err
	}
	ym, err := core.ParseYearMonth(*month)
	if err != nil {
		return err
	}

	s, err := a.ledger.Closures.Summary(ctx, *owner, ym)
	if err != nil {
		return err
	}
	state := "open"
	if s.Closed() {
		state = "closed"
	}
	fmt.Fprintf(a.out, "%s %s: income %s, expense %s, net %s\n", s.Period, state, s.TotalIncome, s.TotalExpense, s.NetBalance)
	return nil
}

func history(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	if err := parse(fs, args, "owner"); err != nil {
		return err
	}

	closures, err := a.ledger.Closures.History(ctx, *owner)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "PERIOD\tSTATUS\tCLOSED AT\tINCOME\tEXPENSE\tNET")
	for _, c := range closures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Period, c.Status, c.ClosedAt.Format(time.RFC3339), c.TotalIncome, c.TotalExpense, c.NetBalance)
	}
	return w.Flush()
}

// Reassignment

func reassign(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	from := fs.String("from", "", "source category id (required)")
	to := fs.String("to", "", "target category id (required)")
	if err := parse(fs, args, "owner", "from", "to"); err != nil {
		return err
	}

	r, err := a.ledger.Categories.Reassign(ctx, *owner, *from, *to)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "moved %d transactions from %s to %s\n", r.MovedCount, r.SourceName, r.TargetName)
	return nil
}

func previewDelete(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	id := fs.String("category", "", "category id (required)")
	if err := parse(fs, args, "owner", "category"); err != nil {
		return err
	}

	p, err := a.ledger.Categories.PreviewDeletion(ctx, *owner, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %d transactions, %s\n", p.Name, p.TransactionCount, p.TotalValue)
	if !p.RequiresTarget() {
		fmt.Fprintln(a.out, "no target category needed")
		return nil
	}
	fmt.Fprintln(a.out, "choose a target with -target:")
	for _, alt := range p.AlternativeCategories {
		fmt.Fprintf(a.out, "  %s\t%s\n", alt.ID, alt.Name)
	}
	return nil
}

func deleteCategory(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	id := fs.String("category", "", "category id (required)")
	target := fs.String("target", "", "category receiving the transactions")
	if err := parse(fs, args, "owner", "category"); err != nil {
		return err
	}

	r, err := a.ledger.Categories.DeleteWithReassignment(ctx, *owner, *id, *target)
	if err != nil {
		return err
	}
	if r.MovedCount > 0 {
		fmt.Fprintf(a.out, "moved %d transactions to %s\n", r.MovedCount, r.TargetName)
	}
	fmt.Fprintf(a.out, "deleted category %s\n", r.SourceName)
	return nil
}

// Audit

func audit(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	owner := ownerFlag(fs)
	limit := fs.Int("limit", 20, "maximum number of entries")
	if err := parse(fs, args, "owner"); err != nil {
		return err
	}

	entries, err := a.audit.Recent(ctx, *owner, *limit)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "WHEN\tEVENT\tPERIOD\tENTITY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.OccurredAt.Format(time.RFC3339), e.EventType, e.Period, e.EntityID)
	}
	return w.Flush()
}
