package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// LedgerEvent announces a committed transaction write. It carries only ids;
// the consumer loads the current row from the database.
type LedgerEvent struct {
	Op            ledger.EventOp `json:"op"`
	TransactionID string         `json:"transaction_id"`
	UserID        string         `json:"user_id"`
	Timestamp     time.Time      `json:"timestamp"`
}

var ErrMalformedEvent = errors.New("malformed ledger event")

func NewLedgerEvent(op ledger.EventOp, t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Op:            op,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch msg.Op {
	case ledger.OpCreated, ledger.OpUpdated, ledger.OpDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrMalformedEvent, msg.Op)
	}
	if msg.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrMalformedEvent)
	}
	return &msg, nil
}
