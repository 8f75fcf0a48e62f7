package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	contractsv1 "agrivote/contracts/gen/events/v1"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

func TestUpdateQuestionRejectsStaleVersion(t *testing.T) {
	store := NewStore(nil)
	created, err := store.CreateQuestion(context.Background(), entities.Question{
		QuestionID: "q-1",
		FarmerID:   "farmer-1",
		Status:     entities.QuestionStatusPendingAllocation,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	created.Status = entities.QuestionStatusAllocated
	updated, err := store.UpdateQuestion(context.Background(), created, 1)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}

	_, err = store.UpdateQuestion(context.Background(), created, 1)
	if !errors.Is(err, domainerrors.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
	if _, err := store.CreateQuestion(context.Background(), created); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestStoredQuestionsAreIsolatedFromCallers(t *testing.T) {
	store := NewStore(nil)
	store.SeedQuestion(entities.Question{
		QuestionID:       "q-1",
		AllocatedExperts: []string{"e1"},
	})
	fetched, err := store.GetQuestion(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	fetched.AllocatedExperts[0] = "mutated"

	again, _ := store.GetQuestion(context.Background(), "q-1")
	if again.AllocatedExperts[0] != "e1" {
		t.Fatalf("expected stored slate untouched, got %v", again.AllocatedExperts)
	}
}

func TestListQuestionsFilters(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store.SeedQuestion(entities.Question{
		QuestionID: "q-2", FarmerID: "f1", Domain: entities.DomainPest,
		Status: entities.QuestionStatusApproved, SubmittedAt: base.Add(time.Hour),
	})
	store.SeedQuestion(entities.Question{
		QuestionID: "q-1", FarmerID: "f1", Domain: entities.DomainPest,
		Status: entities.QuestionStatusAllocated, SubmittedAt: base,
		AllocatedExperts: []string{"e1"},
	})
	store.SeedQuestion(entities.Question{
		QuestionID: "q-3", FarmerID: "f2", Domain: entities.DomainSoil,
		Status: entities.QuestionStatusApproved, SubmittedAt: base,
	})

	byFarmer, _ := store.ListQuestions(context.Background(), ports.QuestionFilter{FarmerID: "f1"})
	if len(byFarmer) != 2 || byFarmer[0].QuestionID != "q-1" {
		t.Fatalf("expected f1 questions oldest first, got %d", len(byFarmer))
	}
	byExpert, _ := store.ListQuestions(context.Background(), ports.QuestionFilter{ExpertID: "e1"})
	if len(byExpert) != 1 || byExpert[0].QuestionID != "q-1" {
		t.Fatalf("expected q-1 for e1, got %d", len(byExpert))
	}
	approved, _ := store.ListApprovedByDomain(context.Background(), entities.DomainPest)
	if len(approved) != 1 || approved[0].QuestionID != "q-2" {
		t.Fatalf("expected q-2 approved pest question, got %d", len(approved))
	}
	limited, _ := store.ListQuestions(context.Background(), ports.QuestionFilter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestOutboxAppendIsIdempotentPerEventID(t *testing.T) {
	store := NewStore(nil)
	event := ports.EventEnvelope{
		EventID:   "evt-1",
		EventType: contractsv1.QuestionSubmitted,
		Data:      []byte(`{"question_id":"q-1"}`),
	}
	if err := store.AppendOutbox(context.Background(), event); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendOutbox(context.Background(), event); err != nil {
		t.Fatalf("identical append should be accepted, got %v", err)
	}
	event.Data = []byte(`{"question_id":"q-2"}`)
	if err := store.AppendOutbox(context.Background(), event); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if pending := store.PendingEventTypes(); len(pending) != 1 {
		t.Fatalf("expected one pending row, got %v", pending)
	}
}

func TestReserveEventDetectsReplayAndConflict(t *testing.T) {
	store := NewStore(nil)
	expires := time.Now().UTC().Add(time.Hour)
	processed, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || processed {
		t.Fatalf("expected fresh reservation, got %v/%v", processed, err)
	}
	processed, err = store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || !processed {
		t.Fatalf("expected replay, got %v/%v", processed, err)
	}
	if _, err := store.ReserveEvent(context.Background(), "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestExpertProjectionKeepsInsertionOrder(t *testing.T) {
	store := NewStore([]entities.Expert{{ExpertID: "e2"}, {ExpertID: "e1"}})
	if err := store.UpsertExpert(context.Background(), entities.Expert{ExpertID: "e2", Name: "renamed"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	experts, _ := store.ListExperts(context.Background())
	if len(experts) != 2 || experts[0].ExpertID != "e2" || experts[0].Name != "renamed" {
		t.Fatalf("unexpected expert order %+v", experts)
	}
	if err := store.DeactivateExpert(context.Background(), "e2"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := store.GetExpert(context.Background(), "e2"); !errors.Is(err, domainerrors.ErrExpertNotFound) {
		t.Fatalf("expected expert not found, got %v", err)
	}
}

func TestLockerSerializesAndHonorsContext(t *testing.T) {
	locker := NewLocker()
	unlock, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "q-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded while held, got %v", err)
	}

	other, err := locker.Lock(context.Background(), "q-2")
	if err != nil {
		t.Fatalf("independent key should not block: %v", err)
	}
	_ = other(context.Background())

	_ = unlock(context.Background())
	_ = unlock(context.Background())
	again, err := locker.Lock(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	_ = again(context.Background())
}
