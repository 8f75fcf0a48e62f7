package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "agrivote/contexts/farmer-advisory/question-lifecycle/application"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

// OutboxRelay publishes persisted lifecycle events to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows in creation order.
// A row is marked published only after the bus accepts it, and the cycle
// stops at the first failure so later rows cannot overtake it.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("question outbox list failed",
			"event", "question_outbox_list_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("question outbox relay found no pending rows",
			"event", "question_outbox_relay_noop",
			"module", "farmer-advisory/question-lifecycle",
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
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("question outbox decode failed",
				"event", "question_outbox_decode_failed",
				"module", "farmer-advisory/question-lifecycle",
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
			logger.Error("question outbox publish failed",
				"event", "question_outbox_publish_failed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("question outbox mark published failed",
				"event", "question_outbox_mark_published_failed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("question outbox relay cycle completed",
		"event", "question_outbox_relay_completed",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}

// Run polls the outbox until ctx ends. Cycle errors are logged by RunOnce and
// retried on the next tick.
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
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
