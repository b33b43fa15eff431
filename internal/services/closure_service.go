package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// ClosureService archives and reopens calendar months.
//
// A month is Open while it has no closure record or its latest record is
// reopened, and Closed while its latest record is closed. Closing again after
// a reopen appends a fresh snapshot; earlier records are kept as history.
type ClosureService struct {
	repo     ports.Repository
	events   EventPublisher
	currency string
	now      func() time.Time
}

func NewClosureService(repo ports.Repository, events EventPublisher, currency string, now func() time.Time) *ClosureService {
	return &ClosureService{
		repo:     repo,
		events:   events,
		currency: currency,
		now:      clockOrDefault(now),
	}
}

// Close snapshots the month's totals and marks it closed. Closing a month
// that is already closed fails with core.ErrConflict.
func (s *ClosureService) Close(ctx context.Context, ownerID string, ym core.YearMonth, notes string) (core.MonthlyClosure, error) {
	if err := validatePeriod(ownerID, ym); err != nil {
		return core.MonthlyClosure{}, err
	}

	var closure core.MonthlyClosure
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		closed, err := isClosed(ctx, r, ownerID, ym)
		if err != nil {
			return err
		}
		if closed {
			return &core.ConflictError{Entity: "monthly closure", Key: ym.String()}
		}

		income, expense, err := monthTotals(ctx, r, ownerID, ym, s.currency)
		if err != nil {
			return err
		}
		net, err := income.Subtract(expense)
		if err != nil {
			return err
		}

		closure = core.MonthlyClosure{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			Period:       ym,
			ClosedAt:     s.now().UTC(),
			Status:       core.ClosureClosed,
			TotalIncome:  income,
			TotalExpense: expense,
			NetBalance:   net,
			Notes:        strings.TrimSpace(notes),
		}
		return r.CreateClosure(ctx, closure)
	})
	if err != nil {
		return core.MonthlyClosure{}, fmt.Errorf("close %s: %w", ym, err)
	}

	slog.InfoContext(ctx, "Month closed",
		"owner_id", ownerID,
		"period", ym.String(),
		"total_income", closure.TotalIncome.String(),
		"total_expense", closure.TotalExpense.String(),
		"net_balance", closure.NetBalance.String())

	publish(ctx, s.events, amqp.EventMonthClosed, ownerID, ym.String(), closure.ID, map[string]string{
		"total_income":  closure.TotalIncome.Amount.StringFixed(core.Precision),
		"total_expense": closure.TotalExpense.Amount.StringFixed(core.Precision),
		"net_balance":   closure.NetBalance.Amount.StringFixed(core.Precision),
		"currency":      closure.TotalIncome.Currency,
	})

	return closure, nil
}

// Reopen lifts the closed state of a month. It reports false, without error,
// when there is nothing to reopen. The snapshot totals are kept and a
// timestamped note is appended.
func (s *ClosureService) Reopen(ctx context.Context, ownerID string, ym core.YearMonth, reason string) (bool, error) {
	if err := validatePeriod(ownerID, ym); err != nil {
		return false, err
	}

	var reopened core.MonthlyClosure
	err := s.repo.WithTx(ctx, func(r ports.Repository) error {
		latest, err := r.LatestClosure(ctx, ownerID, ym)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if latest.Status != core.ClosureClosed {
			return nil
		}

		latest.Status = core.ClosureReopened
		latest.Notes = appendNote(latest.Notes, s.now().UTC(), reason)
		if err := r.UpdateClosure(ctx, latest); err != nil {
			return err
		}
		reopened = latest
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("reopen %s: %w", ym, err)
	}
	if reopened.ID == "" {
		slog.InfoContext(ctx, "Nothing to reopen", "owner_id", ownerID, "period", ym.String())
		return false, nil
	}

	slog.InfoContext(ctx, "Month reopened",
		"owner_id", ownerID,
		"period", ym.String(),
		"reason", reason)

	publish(ctx, s.events, amqp.EventMonthReopened, ownerID, ym.String(), reopened.ID, map[string]string{
		"reason": reason,
	})

	return true, nil
}

// IsClosed reports whether the latest closure record for ym is closed.
func (s *ClosureService) IsClosed(ctx context.Context, ownerID string, ym core.YearMonth) (bool, error) {
	return isClosed(ctx, s.repo, ownerID, ym)
}

// Summary returns the archived snapshot of a closed month, or live totals
// computed from its transactions when the month is open. An open month
// reports an empty status, or ClosureReopened once it was reopened.
func (s *ClosureService) Summary(ctx context.Context, ownerID string, ym core.YearMonth) (core.ClosureSummary, error) {
	if err := validatePeriod(ownerID, ym); err != nil {
		return core.ClosureSummary{}, err
	}

	latest, err := s.repo.LatestClosure(ctx, ownerID, ym)
	switch {
	case err == nil && latest.Status == core.ClosureClosed:
		return core.ClosureSummary{
			Period:       ym,
			TotalIncome:  latest.TotalIncome,
			TotalExpense: latest.TotalExpense,
			NetBalance:   latest.NetBalance,
			Status:       latest.Status,
		}, nil
	case err != nil && !errors.Is(err, core.ErrNotFound):
		return core.ClosureSummary{}, fmt.Errorf("summary %s: %w", ym, err)
	}

	income, expense, err := monthTotals(ctx, s.repo, ownerID, ym, s.currency)
	if err != nil {
		return core.ClosureSummary{}, fmt.Errorf("summary %s: %w", ym, err)
	}
	net, err := income.Subtract(expense)
	if err != nil {
		return core.ClosureSummary{}, err
	}
	return core.ClosureSummary{
		Period:       ym,
		TotalIncome:  income,
		TotalExpense: expense,
		NetBalance:   net,
		Status:       latest.Status, // empty when never closed
	}, nil
}

// History lists every closure record of the owner, oldest period first.
func (s *ClosureService) History(ctx context.Context, ownerID string) ([]core.MonthlyClosure, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, core.ErrEmptyOwner
	}
	return s.repo.ListClosures(ctx, ownerID)
}

// EnsureOpen is the closure gate. Every mutation of dated data calls it
// inside its storage transaction before any business rule runs.
func EnsureOpen(ctx context.Context, r ports.ClosureReader, ownerID string, date time.Time) error {
	ym := core.YearMonthOf(date)
	closed, err := isClosed(ctx, r, ownerID, ym)
	if err != nil {
		return err
	}
	if closed {
		return &core.MonthClosedError{OwnerID: ownerID, Period: ym}
	}
	return nil
}

func isClosed(ctx context.Context, r ports.ClosureReader, ownerID string, ym core.YearMonth) (bool, error) {
	latest, err := r.LatestClosure(ctx, ownerID, ym)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("latest closure for %s: %w", ym, err)
	}
	return latest.Status == core.ClosureClosed, nil
}

func appendNote(notes string, at time.Time, reason string) string {
	line := fmt.Sprintf("[%s] reopened", at.Format(time.RFC3339))
	if reason = strings.TrimSpace(reason); reason != "" {
		line += ": " + reason
	}
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

func validatePeriod(ownerID string, ym core.YearMonth) error {
	if strings.TrimSpace(ownerID) == "" {
		return core.ErrEmptyOwner
	}
	if ym.IsZero() || ym.Month < time.January || ym.Month > time.December {
		return core.ErrInvalidPeriod
	}
	return nil
}
