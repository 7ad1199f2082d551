package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "ballotproxy/contexts/governance/upgrade-proxy/application"
	domainerrors "ballotproxy/contexts/governance/upgrade-proxy/domain/errors"
	"ballotproxy/contexts/governance/upgrade-proxy/ports"
	"ballotproxy/internal/shared/events"
)

// OutboxRelay publishes committed outbox rows to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes one batch of pending rows in commit order. A row is marked
// published only after the bus accepted it, and the cycle stops at the first
// failure so the next cycle resumes from that row. Without a Publisher
// nothing is read and ErrPublisherRequired is returned.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	if r.Publisher == nil {
		logger.Error("proxy outbox relay has no publisher",
			"event", "proxy_outbox_publisher_missing",
			"module", "governance/upgrade-proxy",
			"layer", "worker",
		)
		return 0, domainerrors.ErrPublisherRequired
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("proxy outbox list failed",
			"event", "proxy_outbox_list_failed",
			"module", "governance/upgrade-proxy",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("proxy outbox relay found no pending rows",
			"event", "proxy_outbox_relay_noop",
			"module", "governance/upgrade-proxy",
			"layer", "worker",
			"batch_size", limit,
		)
		return 0, nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	published := 0
	for _, row := range pending {
		var event events.Envelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("proxy outbox decode failed",
				"event", "proxy_outbox_decode_failed",
				"module", "governance/upgrade-proxy",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("proxy outbox publish failed",
				"event", "proxy_outbox_publish_failed",
				"module", "governance/upgrade-proxy",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("proxy outbox mark published failed",
				"event", "proxy_outbox_mark_published_failed",
				"module", "governance/upgrade-proxy",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("proxy outbox relay cycle completed",
		"event", "proxy_outbox_relay_completed",
		"module", "governance/upgrade-proxy",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

// Run repeats RunOnce every interval until ctx is cancelled. Cycle errors are
// logged by RunOnce and retried on the next tick.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_, _ = r.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
