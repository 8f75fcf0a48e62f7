package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	contractsv1 "agrivote/contracts/gen/events/v1"
	"agrivote/contexts/farmer-advisory/question-lifecycle/adapters/memory"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

type recordingPublisher struct {
	topics []string
	failOn string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failOn != "" && event.EventID == p.failOn {
		return errors.New("bus unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

type capturingSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *capturingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	s.topic = topic
	s.group = consumerGroup
	s.handler = handler
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, eventID string, eventType string, at time.Time) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:      eventID,
		EventType:    eventType,
		OccurredAt:   at,
		PartitionKey: "q-1",
		Data:         json.RawMessage(`{"question_id":"q-1"}`),
	})
	if err != nil {
		t.Fatalf("append outbox failed: %v", err)
	}
}

func TestOutboxRelayPublishesInCreationOrder(t *testing.T) {
	store := memory.NewStore(nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-2", contractsv1.QuestionAllocated, base.Add(time.Second))
	appendEvent(t, store, "evt-1", contractsv1.QuestionSubmitted, base)

	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 10}
	published, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if published != 2 {
		t.Fatalf("expected 2 published rows, got %d", published)
	}
	if len(publisher.topics) != 2 || publisher.topics[0] != contractsv1.QuestionSubmitted {
		t.Fatalf("expected submitted event first, got %v", publisher.topics)
	}
	if pending := store.PendingEventTypes(); len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %v", pending)
	}
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	store := memory.NewStore(nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	appendEvent(t, store, "evt-1", contractsv1.QuestionSubmitted, base)
	appendEvent(t, store, "evt-2", contractsv1.QuestionAllocated, base.Add(time.Second))
	appendEvent(t, store, "evt-3", contractsv1.AnswerSubmitted, base.Add(2*time.Second))

	publisher := &recordingPublisher{failOn: "evt-2"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}
	published, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if published != 1 {
		t.Fatalf("expected 1 published row before failure, got %d", published)
	}
	pending := store.PendingEventTypes()
	if len(pending) != 2 || pending[0] != contractsv1.QuestionAllocated {
		t.Fatalf("expected failed row to stay at head of outbox, got %v", pending)
	}
}

func TestOutboxRelayRunStopsWithContext(t *testing.T) {
	store := memory.NewStore(nil)
	relay := OutboxRelay{Outbox: store, Publisher: &recordingPublisher{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := relay.Run(ctx, 10*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func profileEvent(t *testing.T, eventID string, data contractsv1.ExpertProfileData) ports.EventEnvelope {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal profile failed: %v", err)
	}
	return ports.EventEnvelope{
		EventID:   eventID,
		EventType: contractsv1.ExpertProfileUpdated,
		Data:      payload,
	}
}

func TestExpertProfileConsumerUpsertsAndDeactivates(t *testing.T) {
	store := memory.NewStore(nil)
	subscriber := &capturingSubscriber{}
	consumer := ExpertProfileConsumer{
		Subscriber: subscriber,
		Dedup:      store,
		Experts:    store,
		Clock:      store,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != contractsv1.ExpertProfileUpdated || subscriber.group != defaultExpertProfileCG {
		t.Fatalf("unexpected subscription %s/%s", subscriber.topic, subscriber.group)
	}

	err := subscriber.handler(context.Background(), profileEvent(t, "evt-1", contractsv1.ExpertProfileData{
		ExpertID:                 "e1",
		Name:                     "Asha",
		Specializations:          []string{" Disease ", "pest"},
		AccuracyScore:            90,
		ModeratorAcceptanceRate:  80,
		PeerVotesReceived:        12,
		ConsistencyScore:         70,
		AverageResponseTimeHours: 4,
	}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	expert, err := store.GetExpert(context.Background(), "e1")
	if err != nil {
		t.Fatalf("expected projected expert, got %v", err)
	}
	if !expert.Specializes(entities.DomainDisease) || !expert.Specializes(entities.DomainPest) {
		t.Fatalf("expected normalized specializations, got %v", expert.Specializations)
	}

	inactive := false
	err = subscriber.handler(context.Background(), profileEvent(t, "evt-2", contractsv1.ExpertProfileData{
		ExpertID: "e1",
		Active:   &inactive,
	}))
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := store.GetExpert(context.Background(), "e1"); !errors.Is(err, domainerrors.ErrExpertNotFound) {
		t.Fatalf("expected expert removed, got %v", err)
	}
}

func TestExpertProfileConsumerSkipsReplay(t *testing.T) {
	store := memory.NewStore(nil)
	consumer := ExpertProfileConsumer{Dedup: store, Experts: store, Clock: store}
	event := profileEvent(t, "evt-1", contractsv1.ExpertProfileData{
		ExpertID:        "e1",
		Specializations: []string{"soil"},
		AccuracyScore:   60,
	})
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := store.DeactivateExpert(context.Background(), "e1"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if _, err := store.GetExpert(context.Background(), "e1"); !errors.Is(err, domainerrors.ErrExpertNotFound) {
		t.Fatalf("expected replay to be skipped, got %v", err)
	}
}

func TestExpertProfileConsumerRejectsInvalidProfile(t *testing.T) {
	store := memory.NewStore(nil)
	consumer := ExpertProfileConsumer{Dedup: store, Experts: store, Clock: store}
	err := consumer.Handle(context.Background(), profileEvent(t, "evt-1", contractsv1.ExpertProfileData{
		ExpertID:        "e1",
		Specializations: []string{"disease"},
		AccuracyScore:   140,
	}))
	if !errors.Is(err, domainerrors.ErrInvalidExpert) {
		t.Fatalf("expected invalid expert, got %v", err)
	}
	experts, _ := store.ListExperts(context.Background())
	if len(experts) != 0 {
		t.Fatalf("expected no projected experts, got %d", len(experts))
	}
}
