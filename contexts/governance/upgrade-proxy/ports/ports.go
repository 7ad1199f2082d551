package ports

import (
	"context"
	"time"

	"ballotproxy/internal/shared/dispatch"
	"ballotproxy/internal/shared/events"
	"ballotproxy/internal/shared/outbox"
	"ballotproxy/internal/shared/storagelayout"
)

// StateStore is the proxy's persistent storage.
type StateStore interface {
	storagelayout.Store
	OutboxRepository
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// Registry resolves deployed logic providers by address.
type Registry interface {
	Lookup(ctx context.Context, address string) (dispatch.Logic, bool, error)
}

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for event and outbox ids.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Metrics observes dispatch outcomes. Route is "proxy" or "forwarded".
type Metrics interface {
	ObserveDispatch(route string, outcome string, elapsed time.Duration)
	ObserveUpgrade()
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, events.Envelope) error,
	) error
}
