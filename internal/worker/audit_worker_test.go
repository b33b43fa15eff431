package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/storage/memory"
)

func TestAuditWorker_HandleEvent(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store)
	ctx := context.Background()

	ev, err := amqp.NewLedgerEvent(amqp.EventMonthClosed, "u1", "2024-01", "c1", map[string]string{"net_balance": "3500.00"})
	if err != nil {
		t.Fatalf("NewLedgerEvent: %v", err)
	}

	// Round-trip through the wire format the consumer sees.
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := amqp.LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := w.HandleEvent(ctx, decoded); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}

	entries, err := w.Recent(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected redelivery to be stored once, got %d entries", len(entries))
	}
	got := entries[0]
	if got.ID != ev.ID || got.EventType != amqp.EventMonthClosed || got.Period != "2024-01" || got.EntityID != "c1" {
		t.Errorf("unexpected entry %+v", got)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(got.Payload), &payload); err != nil || payload["net_balance"] != "3500.00" {
		t.Errorf("payload = %q (err=%v)", got.Payload, err)
	}
}

func TestAuditWorker_MissingTimestamp(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{ID: "e1", Type: amqp.EventBudgetSet, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	entries, _ := w.Recent(context.Background(), "u1", 0)
	if len(entries) != 1 || !entries[0].OccurredAt.Equal(fixed) {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestAuditWorker_RejectsEventWithoutID(t *testing.T) {
	w := NewAuditWorker(memory.New())

	tests := []struct {
		name string
		ev   *amqp.LedgerEvent
	}{
		{"nil", nil},
		{"empty id", &amqp.LedgerEvent{Type: amqp.EventBudgetSet, OwnerID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleEvent(context.Background(), tt.ev); err == nil {
				t.Error("expected error")
			}
		})
	}
}
