package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/ports"
)

// AutoCloseConfig holds configuration for the auto-close processor
type AutoCloseConfig struct {
	// Interval is how often to look for months to close (default: 1h)
	Interval time.Duration

	// GraceDays is how many days of the new month pass before the previous
	// one is closed (default: 5)
	GraceDays int

	// Concurrency bounds how many owners are closed in parallel (default: 4)
	Concurrency int
}

// DefaultAutoCloseConfig returns sensible defaults
func DefaultAutoCloseConfig() AutoCloseConfig {
	return AutoCloseConfig{
		Interval:    time.Hour,
		GraceDays:   5,
		Concurrency: 4,
	}
}

// AutoCloseStore is what the processor reads besides the closure service.
type AutoCloseStore interface {
	ports.OwnerLister
	ports.ClosureReader
}

// AutoCloseProcessor closes the previous month of every owner once the grace
// period has elapsed. Months that already have a closure record, closed or
// reopened, are left alone: a reopen is an operator decision.
type AutoCloseProcessor struct {
	store    AutoCloseStore
	closures *ClosureService
	config   AutoCloseConfig
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAutoCloseProcessor(store AutoCloseStore, closures *ClosureService, config AutoCloseConfig, now func() time.Time) *AutoCloseProcessor {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &AutoCloseProcessor{
		store:    store,
		closures: closures,
		config:   config,
		now:      clockOrDefault(now),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *AutoCloseProcessor) Start(ctx context.Context) error {
	if p.config.Interval <= 0 {
		return fmt.Errorf("auto-close interval must be positive, got %v", p.config.Interval)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("auto-close processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Auto-close processor started",
		"interval", p.config.Interval,
		"grace_days", p.config.GraceDays,
		"concurrency", p.config.Concurrency)

	return nil
}

// Stop signals the loop and waits for the current pass. The processor counts
// as stopped even when ctx expires first, so Stop may be called again.
func (p *AutoCloseProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Auto-close processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Auto-close processor stop timed out")
		return ctx.Err()
	}

	return nil
}

func (p *AutoCloseProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *AutoCloseProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *AutoCloseProcessor) runOnce(ctx context.Context) {
	if _, err := p.ProcessDue(ctx, p.now()); err != nil {
		slog.ErrorContext(ctx, "Auto-close pass failed", "error", err)
	}
}

// ProcessDue closes now's previous month for every owner that still has it
// open, provided more than GraceDays days of now's month have passed. Every
// owner is attempted; the first failure is returned along with the number
// of months closed.
func (p *AutoCloseProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.closures == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	if now.Day() <= p.config.GraceDays {
		return 0, nil
	}
	target := core.YearMonthOf(now).Prev()

	owners, err := p.store.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list owners: %w", err)
	}

	slog.InfoContext(ctx, "Processing month auto-close",
		"period", target.String(),
		"owners", len(owners))

	var closed atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for _, ownerID := range owners {
		ownerID := ownerID
		g.Go(func() error {
			ok, err := p.closeOwner(ctx, ownerID, target)
			if err != nil {
				log.LogError(ctx, "Failed to auto-close month", err, log.ComponentClosure, log.OpClose,
					log.NewFields().WithOwner(ownerID, target.String()))
				return fmt.Errorf("owner %s: %w", ownerID, err)
			}
			if ok {
				closed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	slog.InfoContext(ctx, "Month auto-close complete",
		"period", target.String(),
		"closed", closed.Load(),
		"total_checked", len(owners))

	return int(closed.Load()), err
}

func (p *AutoCloseProcessor) closeOwner(ctx context.Context, ownerID string, ym core.YearMonth) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := p.store.LatestClosure(ctx, ownerID, ym)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, core.ErrNotFound):
		return false, err
	}

	note := fmt.Sprintf("closed automatically after %d grace days", p.config.GraceDays)
	if _, err := p.closures.Close(ctx, ownerID, ym, note); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
