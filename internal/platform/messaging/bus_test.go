package messaging

import (
	"context"
	"testing"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

func TestBusDeliversToSubscribersOfTopic(t *testing.T) {
	bus := NewBus(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 2)
	handler := func(_ context.Context, event ports.EventEnvelope) error {
		received <- event.EventID
		return nil
	}
	if err := bus.Subscribe(ctx, "question.approved", "cg-a", handler); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, "question.closed", ports.EventEnvelope{EventID: "evt-0"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := bus.Publish(ctx, "question.approved", ports.EventEnvelope{EventID: "evt-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case id := <-received:
		if id != "evt-1" {
			t.Fatalf("expected evt-1, got %s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
	select {
	case id := <-received:
		t.Fatalf("unexpected delivery of %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusUnsubscribesWhenContextEnds(t *testing.T) {
	bus := NewBus(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := bus.Subscribe(ctx, "question.approved", "cg-a", func(context.Context, ports.EventEnvelope) error {
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		bus.mu.RLock()
		remaining := len(bus.subscribers["question.approved"])
		bus.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected subscriber removed after cancel")
}
