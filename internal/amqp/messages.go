package amqp

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"gestornet/internal/core"
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionRecorded EventType = "transaction.recorded"
	EventTransactionRemoved  EventType = "transaction.removed"
)

// LedgerEvent is published after a ledger write reached the store. Removal
// events carry only the id.
type LedgerEvent struct {
	Type          EventType         `json:"type"`
	TransactionID string            `json:"transactionId"`
	Transaction   *core.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

func NewTransactionRecorded(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionRecorded,
		TransactionID: tx.ID,
		Transaction:   &tx,
		Timestamp:     time.Now(),
	}
}

func NewTransactionRemoved(id string) *LedgerEvent {
	return &LedgerEvent{
		Type:          EventTransactionRemoved,
		TransactionID: id,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.TransactionID == "" {
		return nil, fmt.Errorf("ledger event without transaction id")
	}
	switch ev.Type {
	case EventTransactionRecorded:
		if ev.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", ev.Type)
		}
	case EventTransactionRemoved:
	default:
		return nil, fmt.Errorf("unknown ledger event type %q", ev.Type)
	}
	return &ev, nil
}
