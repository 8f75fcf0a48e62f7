package questionlifecycle

import (
	"log/slog"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/adapters/memory"
	"agrivote/contexts/farmer-advisory/question-lifecycle/application/commands"
	"agrivote/contexts/farmer-advisory/question-lifecycle/application/queries"
	"agrivote/contexts/farmer-advisory/question-lifecycle/application/workers"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

// EventBus is the transport the relay publishes to and the expert consumer
// reads from.
type EventBus interface {
	ports.EventPublisher
	ports.EventSubscriber
}

type Module struct {
	Intake         commands.IntakeUseCase
	Answers        commands.AnswerUseCase
	Voting         commands.VotingUseCase
	Moderation     commands.ModerationUseCase
	Queries        queries.QuestionQueryUseCase
	OutboxRelay    workers.OutboxRelay
	ExpertConsumer workers.ExpertProfileConsumer
	Store          *memory.Store
}

type Dependencies struct {
	Questions       ports.QuestionRepository
	Experts         ports.ExpertDirectory
	ExpertWriter    ports.ExpertProjectionWriter
	Locker          ports.QuestionLocker
	Outbox          ports.OutboxWriter
	OutboxReader    ports.OutboxRepository
	EventDedup      ports.EventDedupStore
	Bus             EventBus
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	Metrics         ports.LifecycleMetrics
	OutboxBatchSize int
	EventDedupTTL   time.Duration
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Intake: commands.IntakeUseCase{
			Questions: deps.Questions,
			Experts:   deps.Experts,
			Outbox:    deps.Outbox,
			Clock:     deps.Clock,
			IDGen:     deps.IDGenerator,
			Metrics:   deps.Metrics,
			Logger:    deps.Logger,
		},
		Answers: commands.AnswerUseCase{
			Questions: deps.Questions,
			Locker:    deps.Locker,
			Outbox:    deps.Outbox,
			Clock:     deps.Clock,
			IDGen:     deps.IDGenerator,
			Metrics:   deps.Metrics,
			Logger:    deps.Logger,
		},
		Voting: commands.VotingUseCase{
			Questions: deps.Questions,
			Locker:    deps.Locker,
			Outbox:    deps.Outbox,
			Clock:     deps.Clock,
			IDGen:     deps.IDGenerator,
			Metrics:   deps.Metrics,
			Logger:    deps.Logger,
		},
		Moderation: commands.ModerationUseCase{
			Questions: deps.Questions,
			Experts:   deps.Experts,
			Locker:    deps.Locker,
			Outbox:    deps.Outbox,
			Clock:     deps.Clock,
			IDGen:     deps.IDGenerator,
			Metrics:   deps.Metrics,
			Logger:    deps.Logger,
		},
		Queries: queries.QuestionQueryUseCase{
			Questions: deps.Questions,
			Experts:   deps.Experts,
			Clock:     deps.Clock,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.OutboxReader,
			Publisher: deps.Bus,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
		ExpertConsumer: workers.ExpertProfileConsumer{
			Subscriber: deps.Bus,
			Dedup:      deps.EventDedup,
			Experts:    deps.ExpertWriter,
			Clock:      deps.Clock,
			DedupTTL:   deps.EventDedupTTL,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to a single memory store and an
// in-process locker.
func NewInMemoryModule(experts []entities.Expert, bus EventBus, metrics ports.LifecycleMetrics, logger *slog.Logger) Module {
	store := memory.NewStore(experts)
	module := NewModule(Dependencies{
		Questions:       store,
		Experts:         store,
		ExpertWriter:    store,
		Locker:          memory.NewLocker(),
		Outbox:          store,
		OutboxReader:    store,
		EventDedup:      store,
		Bus:             bus,
		Clock:           store,
		IDGenerator:     store,
		Metrics:         metrics,
		OutboxBatchSize: 100,
		EventDedupTTL:   7 * 24 * time.Hour,
		Logger:          logger,
	})
	module.Store = store
	return module
}
