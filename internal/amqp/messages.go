package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger mutation. It doubles as the routing key suffix.
type EventType string

const (
	ExpenseCreated     EventType = "expense.created"
	ExpenseUpdated     EventType = "expense.updated"
	ExpenseDeleted     EventType = "expense.deleted"
	RecurringGenerated EventType = "recurring.generated"
	RecurringPaused    EventType = "recurring.paused"
	RecurringResumed   EventType = "recurring.resumed"
	RecurringSkipped   EventType = "recurring.skipped"
	SettlementMarked   EventType = "settlement.marked"
	SettlementUnmarked EventType = "settlement.unmarked"
	SplitConfigUpdated EventType = "split_config.updated"
	CategoryChanged    EventType = "category.changed"
)

// LedgerEvent is a lightweight notification that something in an owner's
// ledger changed. Consumers fetch current state themselves.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(t EventType, ownerID string, entityID int64, month string, now time.Time) LedgerEvent {
	return LedgerEvent{
		ID:        uuid.NewString(),
		Type:      t,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Month:     month,
		Timestamp: now,
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
