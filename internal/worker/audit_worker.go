package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/ports"
)

// AuditWorker persists ledger events consumed from AMQP into the audit log.
type AuditWorker struct {
	store ports.AuditStore
	now   func() time.Time
}

func NewAuditWorker(store ports.AuditStore) *AuditWorker {
	return &AuditWorker{store: store, now: time.Now}
}

// HandleEvent appends a single ledger event. Redelivered events carry the
// same id and are stored once.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev == nil || ev.ID == "" {
		return fmt.Errorf("ledger event without id")
	}

	slog.DebugContext(ctx, "Processing ledger event",
		"id", ev.ID,
		"type", ev.Type,
		"owner_id", ev.OwnerID)

	occurredAt := ev.Timestamp
	if occurredAt.IsZero() {
		occurredAt = w.now().UTC()
	}
	entry := core.AuditEntry{
		ID:         ev.ID,
		OwnerID:    ev.OwnerID,
		EventType:  ev.Type,
		Period:     ev.Period,
		EntityID:   ev.EntityID,
		Payload:    string(ev.Payload),
		OccurredAt: occurredAt,
	}
	if err := w.store.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger event recorded",
		"id", ev.ID,
		"type", ev.Type,
		"owner_id", ev.OwnerID,
		"period", ev.Period)

	return nil
}

// Recent returns the newest audit entries of ownerID, at most limit of them.
func (w *AuditWorker) Recent(ctx context.Context, ownerID string, limit int) ([]core.AuditEntry, error) {
	entries, err := w.store.ListAudit(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
