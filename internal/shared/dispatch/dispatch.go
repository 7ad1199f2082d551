// Package dispatch is the call ABI between the upgrade proxy and the logic
// providers it forwards to. The proxy never inspects Args or Return; only the
// logic provider knows how to decode them.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ballotproxy/internal/shared/events"
	"ballotproxy/internal/shared/storagelayout"
)

// Call is one inbound operation. Caller is the identity the call runs as.
type Call struct {
	Caller string          `json:"caller"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Event is emitted by a call and persisted to the outbox when the call commits.
type Event struct {
	Type       string `json:"type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Payload    any    `json:"payload"`
}

// Result carries the encoded return value and the events of a successful call.
type Result struct {
	Return json.RawMessage
	Events []Event
}

// Receipt is what the caller of the proxy observes for a committed call.
// Implementation is empty for calls the proxy handled itself.
type Receipt struct {
	Implementation string            `json:"implementation,omitempty"`
	Return         json.RawMessage   `json:"return,omitempty"`
	Events         []events.Envelope `json:"events,omitempty"`
}

// Frame is the execution environment of a forwarded call. Now is fixed for
// the whole call. Storage is the proxy's own storage narrowed to the
// implementation region.
type Frame struct {
	Now     time.Time
	Storage storagelayout.View
	Logger  *slog.Logger
}

// Logic is a pluggable implementation. Invoke must not retain frame or call
// anything outside the frame; it runs inside the proxy's storage transaction.
type Logic interface {
	LayoutVersion() int
	Invoke(ctx context.Context, frame Frame, call Call) (Result, error)
}

// Describer is implemented by logic that can name itself and list the
// methods it answers.
type Describer interface {
	Name() string
	Methods() []string
}

// Encode marshals a return value or argument document.
func Encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
