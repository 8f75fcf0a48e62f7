package ports

import (
	"context"
	"time"

	contractsv1 "agrivote/contracts/gen/events/v1"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

// QuestionRepository persists question snapshots. Update is a compare-and-swap
// on Version: it fails with ErrConcurrentUpdate when the stored version is
// not expectedVersion, and bumps the version on success.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question entities.Question) (entities.Question, error)
	UpdateQuestion(ctx context.Context, question entities.Question, expectedVersion int64) (entities.Question, error)
	GetQuestion(ctx context.Context, questionID string) (entities.Question, error)
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]entities.Question, error)
	ListApprovedByDomain(ctx context.Context, domain entities.Domain) ([]entities.Question, error)
}

type QuestionFilter struct {
	Status   entities.QuestionStatus
	Domain   entities.Domain
	FarmerID string
	ExpertID string
	Limit    int
}

// ExpertDirectory is the read side of expert profiles maintained by another
// service.
type ExpertDirectory interface {
	ListExperts(ctx context.Context) ([]entities.Expert, error)
	GetExpert(ctx context.Context, expertID string) (entities.Expert, error)
}

// ExpertProjectionWriter keeps the local expert projection current from
// directory events.
type ExpertProjectionWriter interface {
	UpsertExpert(ctx context.Context, expert entities.Expert) error
	DeactivateExpert(ctx context.Context, expertID string) error
}

// QuestionLocker serializes writers of a single question across processes.
type QuestionLocker interface {
	Lock(ctx context.Context, questionID string) (unlock func(context.Context) error, err error)
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// LifecycleMetrics receives operational signals from the use cases. A nil
// implementation is allowed everywhere it is accepted.
type LifecycleMetrics interface {
	QuestionTransitioned(from entities.QuestionStatus, to entities.QuestionStatus)
	AllocationCompleted(domain entities.Domain, expertCount int)
	AnswerScored(domain entities.Domain, score int)
	CommandFailed(command string, reason string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
