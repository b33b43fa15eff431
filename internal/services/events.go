package services

import (
	"context"
	"log/slog"

	"ledger/internal/amqp"
)

// EventPublisher announces committed ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// publish sends an event after the storage transaction has committed. A
// failure is logged and swallowed: the change is already durable.
func publish(ctx context.Context, events EventPublisher, eventType, ownerID, period, entityID string, payload any) {
	if events == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping ledger event", "type", eventType)
		return
	}

	ev, err := amqp.NewLedgerEvent(eventType, ownerID, period, entityID, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build ledger event", "type", eventType, "error", err)
		return
	}
	if err := events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", eventType,
			"owner_id", ownerID,
			"entity_id", entityID,
			"error", err)
	}
}
