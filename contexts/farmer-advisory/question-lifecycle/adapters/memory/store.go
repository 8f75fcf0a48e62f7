package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	seq       int64
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is an in-process implementation of every persistence port. Stored
// questions are deep copies, so callers never share slices with the store.
type Store struct {
	mu sync.RWMutex

	questions   map[string]entities.Question
	experts     map[string]entities.Expert
	expertOrder []string
	outbox      map[string]outboxRecord
	outboxSeq   int64
	eventDedup  map[string]dedupRecord
}

func NewStore(experts []entities.Expert) *Store {
	store := &Store{
		questions:  make(map[string]entities.Question),
		experts:    make(map[string]entities.Expert, len(experts)),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
	for _, expert := range experts {
		store.putExpert(expert)
	}
	return store
}

// SeedQuestion stores a question as-is, bypassing version checks.
func (s *Store) SeedQuestion(question entities.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if question.Version == 0 {
		question.Version = 1
	}
	s.questions[strings.TrimSpace(question.QuestionID)] = question.Clone()
}

func (s *Store) CreateQuestion(_ context.Context, question entities.Question) (entities.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questionID := strings.TrimSpace(question.QuestionID)
	if _, exists := s.questions[questionID]; exists {
		return entities.Question{}, domainerrors.ErrConflict
	}
	stored := question.Clone()
	stored.Version = 1
	s.questions[questionID] = stored
	return stored.Clone(), nil
}

func (s *Store) UpdateQuestion(_ context.Context, question entities.Question, expectedVersion int64) (entities.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questionID := strings.TrimSpace(question.QuestionID)
	existing, ok := s.questions[questionID]
	if !ok {
		return entities.Question{}, domainerrors.ErrQuestionNotFound
	}
	if existing.Version != expectedVersion {
		return entities.Question{}, domainerrors.ErrConcurrentUpdate
	}
	stored := question.Clone()
	stored.Version = expectedVersion + 1
	s.questions[questionID] = stored
	return stored.Clone(), nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (entities.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[strings.TrimSpace(questionID)]
	if !ok {
		return entities.Question{}, domainerrors.ErrQuestionNotFound
	}
	return question.Clone(), nil
}

func (s *Store) ListQuestions(_ context.Context, filter ports.QuestionFilter) ([]entities.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expertID := strings.TrimSpace(filter.ExpertID)
	farmerID := strings.TrimSpace(filter.FarmerID)
	items := make([]entities.Question, 0, len(s.questions))
	for _, question := range s.questions {
		if filter.Status != "" && question.Status != filter.Status {
			continue
		}
		if filter.Domain != "" && question.Domain != filter.Domain {
			continue
		}
		if farmerID != "" && question.FarmerID != farmerID {
			continue
		}
		if expertID != "" && !question.IsAllocated(expertID) {
			continue
		}
		items = append(items, question.Clone())
	}
	sortQuestionsBySubmission(items)
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) ListApprovedByDomain(ctx context.Context, domain entities.Domain) ([]entities.Question, error) {
	return s.ListQuestions(ctx, ports.QuestionFilter{
		Status: entities.QuestionStatusApproved,
		Domain: domain,
	})
}

func (s *Store) ListExperts(_ context.Context) ([]entities.Expert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Expert, 0, len(s.expertOrder))
	for _, id := range s.expertOrder {
		items = append(items, cloneExpert(s.experts[id]))
	}
	return items, nil
}

func (s *Store) GetExpert(_ context.Context, expertID string) (entities.Expert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expert, ok := s.experts[strings.TrimSpace(expertID)]
	if !ok {
		return entities.Expert{}, domainerrors.ErrExpertNotFound
	}
	return cloneExpert(expert), nil
}

func (s *Store) UpsertExpert(_ context.Context, expert entities.Expert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putExpert(expert)
	return nil
}

func (s *Store) DeactivateExpert(_ context.Context, expertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expertID = strings.TrimSpace(expertID)
	if _, ok := s.experts[expertID]; !ok {
		return nil
	}
	delete(s.experts, expertID)
	order := make([]string, 0, len(s.expertOrder))
	for _, id := range s.expertOrder {
		if id != expertID {
			order = append(order, id)
		}
	}
	s.expertOrder = order
	return nil
}

func (s *Store) putExpert(expert entities.Expert) {
	expertID := strings.TrimSpace(expert.ExpertID)
	if _, exists := s.experts[expertID]; !exists {
		s.expertOrder = append(s.expertOrder, expertID)
	}
	s.experts[expertID] = cloneExpert(expert)
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		seq:     s.outboxSeq,
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	// Rows written in the same instant keep their append order.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].message.CreatedAt.Equal(rows[j].message.CreatedAt) {
			return rows[i].seq < rows[j].seq
		}
		return rows[i].message.CreatedAt.Before(rows[j].message.CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

// PendingEventTypes lists unpublished outbox event types in relay order.
func (s *Store) PendingEventTypes() []string {
	items, _ := s.ListPendingOutbox(context.Background(), 1<<30)
	types := make([]string, 0, len(items))
	for _, item := range items {
		types = append(types, item.EventType)
	}
	return types
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortQuestionsBySubmission(items []entities.Question) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].QuestionID < items[j].QuestionID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
}

func cloneExpert(expert entities.Expert) entities.Expert {
	expert.Specializations = append([]entities.Domain(nil), expert.Specializations...)
	return expert
}

var _ ports.QuestionRepository = (*Store)(nil)
var _ ports.ExpertDirectory = (*Store)(nil)
var _ ports.ExpertProjectionWriter = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
