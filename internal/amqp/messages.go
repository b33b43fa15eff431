package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger event types published after a mutation commits.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
	EventCategoryCreated    = "category.created"
	EventCategoryUpdated    = "category.updated"
	EventCategoryReassigned = "category.reassigned"
	EventCategoryDeleted    = "category.deleted"
	EventBudgetSet          = "budget.set"
	EventBudgetUpdated      = "budget.updated"
	EventMonthClosed        = "month.closed"
	EventMonthReopened      = "month.reopened"
)

// LedgerEvent is a lightweight notification about a committed ledger change.
// Consumers that need the full record read it back from storage.
type LedgerEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OwnerID   string          `json:"owner_id"`
	Period    string          `json:"period,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewLedgerEvent builds an event with a fresh id. payload may be nil.
func NewLedgerEvent(eventType, ownerID, period, entityID string, payload any) (*LedgerEvent, error) {
	ev := &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		OwnerID:   ownerID,
		Period:    period,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		ev.Payload = raw
	}
	return ev, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message body. Events without a type or
// owner are rejected.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" || msg.OwnerID == "" {
		return nil, fmt.Errorf("ledger event missing type or owner")
	}
	return &msg, nil
}
