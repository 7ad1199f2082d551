package outbox

import (
	"errors"
	"time"
)

var (
	ErrMessageNotFound  = errors.New("outbox message not found")
	ErrDuplicateMessage = errors.New("outbox message already exists")
)

// Message is an outbox row persisted inside the same storage transaction as the
// state change that produced it. The relay worker publishes pending rows.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// Pending reports whether the row still needs to be relayed.
func (m Message) Pending() bool {
	return m.PublishedAt == nil
}
