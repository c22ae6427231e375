package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds published on the ledger exchange. Events are wake-up
// signals for the export worker; the durable state lives in SQLite.
const (
	KindImported     = "ledger.imported"
	KindCategorized  = "transaction.categorized"
	KindRulesUpdated = "rules.updated"
)

// Event is the single message envelope. Count is set for imports,
// TransactionID and Category for categorizations.
type Event struct {
	Kind          string    `json:"kind"`
	Count         int       `json:"count,omitempty"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Category      string    `json:"category,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewImportedEvent announces a full ledger replacement of count rows.
func NewImportedEvent(count int) *Event {
	return &Event{
		Kind:      KindImported,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// NewCategorizedEvent announces a user category assignment.
func NewCategorizedEvent(transactionID int64, category string) *Event {
	return &Event{
		Kind:          KindCategorized,
		TransactionID: transactionID,
		Category:      category,
		Timestamp:     time.Now(),
	}
}

// NewRulesUpdatedEvent announces a rule document change.
func NewRulesUpdatedEvent() *Event {
	return &Event{
		Kind:      KindRulesUpdated,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
