package services

import (
	"context"
	"testing"
	"time"

	"ledger/internal/core"
)

func newAutoCloseHarness(t *testing.T, owners ...string) (*harness, *AutoCloseProcessor) {
	t.Helper()
	h := newHarness(t)
	for _, owner := range owners {
		c, err := h.ledger.Categories.Create(context.Background(), core.Category{
			OwnerID: owner, Name: "Salary", Type: core.Income, Priority: core.Essential,
		})
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		h.seed(t, c, "1000", date(2024, 1, 10))
	}
	config := DefaultAutoCloseConfig()
	config.Concurrency = 2
	return h, NewAutoCloseProcessor(h.store, h.ledger.Closures, config, clock)
}

func TestDefaultAutoCloseConfig(t *testing.T) {
	config := DefaultAutoCloseConfig()

	if config.Interval != time.Hour {
		t.Errorf("expected Interval 1h, got %v", config.Interval)
	}
	if config.GraceDays != 5 {
		t.Errorf("expected GraceDays 5, got %d", config.GraceDays)
	}
	if config.Concurrency != 4 {
		t.Errorf("expected Concurrency 4, got %d", config.Concurrency)
	}
}

func TestAutoCloseProcessor_ProcessDue(t *testing.T) {
	h, p := newAutoCloseHarness(t, "u1", "u2", "u3")
	ctx := context.Background()
	jan := core.MustYearMonth("2024-01")

	// u2 closed and reopened January by hand; that decision stands.
	if _, err := h.ledger.Closures.Close(ctx, "u2", jan, ""); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := h.ledger.Closures.Reopen(ctx, "u2", jan, "fixing"); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	n, err := p.ProcessDue(ctx, date(2024, 2, 6))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 2 {
		t.Errorf("closed %d months, want 2", n)
	}

	for owner, want := range map[string]bool{"u1": true, "u2": false, "u3": true} {
		closed, err := h.ledger.Closures.IsClosed(ctx, owner, jan)
		if err != nil {
			t.Fatalf("IsClosed: %v", err)
		}
		if closed != want {
			t.Errorf("%s closed = %v, want %v", owner, closed, want)
		}
	}

	summary, _ := h.ledger.Closures.Summary(ctx, "u1", jan)
	if !summary.TotalIncome.Equal(eur("1000")) {
		t.Errorf("snapshot income = %s", summary.TotalIncome)
	}

	// A second pass finds nothing left to do.
	n, err = p.ProcessDue(ctx, date(2024, 2, 7))
	if err != nil || n != 0 {
		t.Errorf("second pass closed %d (err=%v), want 0", n, err)
	}
}

func TestAutoCloseProcessor_WithinGracePeriod(t *testing.T) {
	h, p := newAutoCloseHarness(t, "u1")

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"first day", date(2024, 2, 1), 0},
		{"last grace day", date(2024, 2, 5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := p.ProcessDue(context.Background(), tt.now)
			if err != nil || n != tt.want {
				t.Errorf("ProcessDue = %d (err=%v), want %d", n, err, tt.want)
			}
		})
	}

	closed, _ := h.ledger.Closures.IsClosed(context.Background(), "u1", core.MustYearMonth("2024-01"))
	if closed {
		t.Error("January must stay open during the grace period")
	}
}

func TestAutoCloseProcessor_YearBoundary(t *testing.T) {
	h, p := newAutoCloseHarness(t, "u1")

	n, err := p.ProcessDue(context.Background(), date(2025, 1, 10))
	if err != nil || n != 1 {
		t.Fatalf("ProcessDue = %d (err=%v), want 1", n, err)
	}
	closed, _ := h.ledger.Closures.IsClosed(context.Background(), "u1", core.MustYearMonth("2024-12"))
	if !closed {
		t.Error("December 2024 should be closed")
	}
}

func TestAutoCloseProcessor_Lifecycle(t *testing.T) {
	_, p := newAutoCloseHarness(t)
	ctx := context.Background()

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(ctx); err != nil {
		t.Errorf("Stop on an idle processor: %v", err)
	}

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestAutoCloseProcessor_StopAfterTimeout(t *testing.T) {
	_, p := newAutoCloseHarness(t)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	// Either outcome is fine here; the loop may or may not have finished.
	_ = p.Stop(expired)

	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestAutoCloseProcessor_NotInitialized(t *testing.T) {
	p := NewAutoCloseProcessor(nil, nil, DefaultAutoCloseConfig(), nil)
	if _, err := p.ProcessDue(context.Background(), date(2024, 2, 20)); err == nil {
		t.Error("expected error for uninitialized processor")
	}
}
