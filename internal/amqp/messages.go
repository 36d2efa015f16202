package amqp

import (
	"encoding/json"
	"time"
)

// TransactionCreatedMessage announces a transaction materialized by the
// scheduler. Names are resolved at publish time so consumers need no ledger
// access; a dangling reference resolves to an empty string.
type TransactionCreatedMessage struct {
	TransactionID string    `json:"transaction_id"`
	TemplateID    string    `json:"template_id"`
	Date          string    `json:"date"` // YYYY-MM-DD
	AmountCents   int64     `json:"amount_cents"`
	Account       string    `json:"account"`
	Payee         string    `json:"payee"`
	Budget        string    `json:"budget"`
	Note          string    `json:"note"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON creates a message from JSON bytes.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
