package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	contractsv1 "agrivote/contracts/gen/events/v1"
	application "agrivote/contexts/farmer-advisory/question-lifecycle/application"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

const defaultExpertProfileCG = "question-lifecycle-expert-profile-cg"

// ExpertProfileConsumer keeps the local expert projection in step with the
// expert directory. Expert metrics are never written by this module.
type ExpertProfileConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Experts       ports.ExpertProjectionWriter
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c ExpertProfileConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultExpertProfileCG
	}
	if err := c.Subscriber.Subscribe(ctx, contractsv1.ExpertProfileUpdated, group, c.Handle); err != nil {
		logger.Error("expert profile consumer subscribe failed",
			"event", "question_expert_consumer_subscribe_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "worker",
			"topic", contractsv1.ExpertProfileUpdated,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("expert profile consumer subscription active",
		"event", "question_expert_consumer_started",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle applies one expert.profile.updated event. Replays of an already
// processed event are skipped.
func (c ExpertProfileConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Dedup != nil {
		processed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
		if err != nil {
			return err
		}
		if processed {
			logger.Debug("expert profile replay skipped",
				"event", "question_expert_profile_replayed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
	}

	var payload contractsv1.ExpertProfileData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("expert profile decode failed",
			"event", "question_expert_profile_decode_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	expertID := strings.TrimSpace(payload.ExpertID)
	if payload.Active != nil && !*payload.Active {
		if err := c.Experts.DeactivateExpert(ctx, expertID); err != nil {
			return err
		}
		logger.Info("expert deactivated",
			"event", "question_expert_deactivated",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "worker",
			"expert_id", expertID,
		)
		return nil
	}

	expert := expertFromPayload(payload)
	if err := expert.Validate(); err != nil {
		logger.Warn("expert profile rejected",
			"event", "question_expert_profile_invalid",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "worker",
			"event_id", event.EventID,
			"expert_id", expertID,
			"error", err.Error(),
		)
		return domainerrors.ErrInvalidExpert
	}
	if err := c.Experts.UpsertExpert(ctx, expert); err != nil {
		return err
	}
	logger.Info("expert profile applied",
		"event", "question_expert_profile_applied",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "worker",
		"event_id", event.EventID,
		"expert_id", expertID,
		"specializations", len(expert.Specializations),
	)
	return nil
}

func expertFromPayload(payload contractsv1.ExpertProfileData) entities.Expert {
	specializations := make([]entities.Domain, 0, len(payload.Specializations))
	for _, item := range payload.Specializations {
		specializations = append(specializations, entities.Domain(strings.ToLower(strings.TrimSpace(item))))
	}
	return entities.Expert{
		ExpertID:                 strings.TrimSpace(payload.ExpertID),
		Name:                     strings.TrimSpace(payload.Name),
		Specializations:          specializations,
		AccuracyScore:            payload.AccuracyScore,
		ModeratorAcceptanceRate:  payload.ModeratorAcceptanceRate,
		PeerVotesReceived:        payload.PeerVotesReceived,
		ConsistencyScore:         payload.ConsistencyScore,
		AverageResponseTimeHours: payload.AverageResponseTimeHours,
	}
}

func (c ExpertProfileConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c ExpertProfileConsumer) dedupTTL() time.Duration {
	if c.DedupTTL > 0 {
		return c.DedupTTL
	}
	return 7 * 24 * time.Hour
}
