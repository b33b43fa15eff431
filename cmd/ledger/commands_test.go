package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage/memory"
	"ledger/internal/worker"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	store := memory.New()
	now := func() time.Time { return time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC) }
	l, err := services.NewLedger(store, "EUR", services.LedgerOptions{Now: now})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	var out bytes.Buffer
	return &app{ledger: l, audit: worker.NewAuditWorker(store), currency: "EUR", out: &out}, &out
}

func run(t *testing.T, a *app, out *bytes.Buffer, args ...string) string {
	t.Helper()
	out.Reset()
	if err := a.dispatch(context.Background(), args); err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestCommands_MonthLifecycle(t *testing.T) {
	a, out := newTestApp(t)

	run(t, a, out, "add-category", "-owner", "u1", "-id", "salary", "-name", "Salary", "-type", "income")
	run(t, a, out, "add-category", "-owner", "u1", "-id", "rent", "-name", "Rent", "-limit", "1500")
	run(t, a, out, "add-transaction", "-owner", "u1", "-category", "salary", "-type", "income",
		"-amount", "5000", "-date", "2024-01-01", "-desc", "January salary")
	got := run(t, a, out, "add-transaction", "-owner", "u1", "-category", "rent",
		"-amount", "1200,00", "-date", "2024-01-03", "-desc", "Rent")
	if !strings.Contains(got, "warning:") || !strings.Contains(got, "category: alert") {
		t.Errorf("expected alert warning, got %q", got)
	}

	got = run(t, a, out, "close", "-owner", "u1", "-month", "2024-01")
	want := "closed 2024-01: income 5000.00 EUR, expense 1200.00 EUR, net 3800.00 EUR"
	if !strings.Contains(got, want) {
		t.Errorf("close output = %q, want %q", got, want)
	}

	got = run(t, a, out, "status", "-owner", "u1", "-month", "2024-01")
	if !strings.Contains(got, "2024-01 closed") {
		t.Errorf("status output = %q", got)
	}

	err := a.dispatch(context.Background(), []string{"add-transaction", "-owner", "u1", "-category", "rent",
		"-amount", "1", "-date", "2024-01-04", "-desc", "late"})
	if !errors.Is(err, core.ErrMonthClosed) {
		t.Errorf("expected month closed, got %v", err)
	}

	got = run(t, a, out, "reopen", "-owner", "u1", "-month", "2024-01", "-reason", "late bill")
	if !strings.Contains(got, "reopened 2024-01") {
		t.Errorf("reopen output = %q", got)
	}
	got = run(t, a, out, "reopen", "-owner", "u1", "-month", "2024-01")
	if !strings.Contains(got, "is not closed") {
		t.Errorf("second reopen output = %q", got)
	}

	got = run(t, a, out, "history", "-owner", "u1")
	if !strings.Contains(got, "reopened") {
		t.Errorf("history output = %q", got)
	}
}

func TestCommands_DeleteCategory(t *testing.T) {
	a, out := newTestApp(t)
	run(t, a, out, "add-category", "-owner", "u1", "-id", "food", "-name", "Food")
	run(t, a, out, "add-category", "-owner", "u1", "-id", "groceries", "-name", "Groceries")
	run(t, a, out, "add-transaction", "-owner", "u1", "-category", "food", "-amount", "12", "-date", "2024-02-01", "-desc", "bread")

	got := run(t, a, out, "preview-delete", "-owner", "u1", "-category", "food")
	if !strings.Contains(got, "1 transactions") || !strings.Contains(got, "groceries") {
		t.Errorf("preview output = %q", got)
	}

	err := a.dispatch(context.Background(), []string{"delete-category", "-owner", "u1", "-category", "food"})
	if !errors.Is(err, core.ErrTargetRequired) {
		t.Fatalf("expected target required, got %v", err)
	}

	got = run(t, a, out, "delete-category", "-owner", "u1", "-category", "food", "-target", "groceries")
	if !strings.Contains(got, "moved 1 transactions to Groceries") {
		t.Errorf("delete output = %q", got)
	}
}

func TestCommands_Budget(t *testing.T) {
	a, out := newTestApp(t)
	run(t, a, out, "add-category", "-owner", "u1", "-id", "food", "-name", "Food")
	run(t, a, out, "set-budget", "-owner", "u1", "-month", "2024-02", "-amount", "100")
	run(t, a, out, "add-transaction", "-owner", "u1", "-category", "food", "-amount", "85", "-date", "2024-02-01", "-desc", "market")

	got := run(t, a, out, "budget-status", "-owner", "u1", "-month", "2024-02")
	if !strings.Contains(got, "(85%) attention") {
		t.Errorf("budget status output = %q", got)
	}

	err := a.dispatch(context.Background(), []string{"set-budget", "-owner", "u1", "-month", "2024-02", "-amount", "200"})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	run(t, a, out, "set-budget", "-owner", "u1", "-month", "2024-02", "-amount", "200", "-update")
}

func TestCommands_Usage(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"explode"}},
		{"missing flags", []string{"close", "-owner", "u1"}},
		{"bad flag", []string{"close", "-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.dispatch(context.Background(), tt.args); !errors.Is(err, errUsage) {
				t.Errorf("expected usage error, got %v", err)
			}
		})
	}
}
