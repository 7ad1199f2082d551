package workers

import (
	"context"
	"log/slog"

	application "ballotproxy/contexts/governance/upgrade-proxy/application"
	"ballotproxy/contexts/governance/upgrade-proxy/domain/entities"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/shared/events"
)

const defaultEventLogConsumerGroup = "ballotproxy-event-log-cg"

// EventLogConsumer writes every relayed proxy and voting event to the
// structured log, giving operators the event stream without a broker client.
type EventLogConsumer struct {
	Subscriber    ports.EventSubscriber
	Topics        []string
	ConsumerGroup string
	Logger        *slog.Logger
}

// DefaultEventTopics lists the event types the proxy emits itself.
// Implementation event types are appended by the caller.
func DefaultEventTopics() []string {
	return []string{
		entities.EventTypeDeployed,
		entities.EventTypeImplementationUpgraded,
		entities.EventTypeOwnershipTransferred,
	}
}

func (c EventLogConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultEventLogConsumerGroup
	}
	topics := c.Topics
	if len(topics) == 0 {
		topics = DefaultEventTopics()
	}
	for _, topic := range topics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handle); err != nil {
			return err
		}
	}
	return nil
}

func (c EventLogConsumer) handle(_ context.Context, event events.Envelope) error {
	logger := application.ResolveLogger(c.Logger)
	logger.Info("proxy event received",
		"event", "proxy_event_received",
		"module", "governance/upgrade-proxy",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"occurred_at", event.OccurredAt,
		"data", string(event.Data),
	)
	return nil
}
