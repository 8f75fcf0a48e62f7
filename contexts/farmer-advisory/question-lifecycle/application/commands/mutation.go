package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "agrivote/contexts/farmer-advisory/question-lifecycle/application"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

// questionWriter runs a lock-scoped read-modify-write of one question and
// records the resulting events. Transforms are pure; nothing is written when
// they fail.
type questionWriter struct {
	questions ports.QuestionRepository
	locker    ports.QuestionLocker
	outbox    ports.OutboxWriter
	idGen     ports.IDGenerator
	metrics   ports.LifecycleMetrics
	logger    *slog.Logger
}

type transformFunc func(current entities.Question) (entities.Question, []pendingEvent, error)

func (w questionWriter) apply(
	ctx context.Context,
	command string,
	questionID string,
	now time.Time,
	transform transformFunc,
) (entities.Question, error) {
	logger := application.ResolveLogger(w.logger)
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		w.failed(command, domainerrors.ErrInvalidQuestionInput)
		return entities.Question{}, domainerrors.ErrInvalidQuestionInput
	}

	unlock, err := w.lock(ctx, questionID)
	if err != nil {
		logger.Error("question lock failed",
			"event", "question_lock_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"command", command,
			"question_id", questionID,
			"error", err.Error(),
		)
		w.failed(command, err)
		return entities.Question{}, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("question unlock failed",
				"event", "question_unlock_failed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "application",
				"command", command,
				"question_id", questionID,
				"error", err.Error(),
			)
		}
	}()

	current, err := w.questions.GetQuestion(ctx, questionID)
	if err != nil {
		w.failed(command, err)
		return entities.Question{}, err
	}
	next, events, err := transform(current)
	if err != nil {
		logger.Warn("question command rejected",
			"event", "question_command_rejected",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"command", command,
			"question_id", questionID,
			"status", string(current.Status),
			"error", err.Error(),
		)
		w.failed(command, err)
		return entities.Question{}, err
	}

	saved, err := w.questions.UpdateQuestion(ctx, next, current.Version)
	if err != nil {
		logger.Error("question update failed",
			"event", "question_update_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"command", command,
			"question_id", questionID,
			"expected_version", current.Version,
			"error", err.Error(),
		)
		w.failed(command, err)
		return entities.Question{}, err
	}
	if err := w.appendEvents(ctx, saved.QuestionID, now, events); err != nil {
		w.failed(command, err)
		return entities.Question{}, err
	}
	if saved.Status != current.Status {
		w.transitioned(current.Status, saved.Status)
		logger.Info("question status transitioned",
			"event", "question_status_transitioned",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"command", command,
			"question_id", saved.QuestionID,
			"from_status", string(current.Status),
			"to_status", string(saved.Status),
		)
	}
	return saved, nil
}

func (w questionWriter) lock(ctx context.Context, questionID string) (func(context.Context) error, error) {
	if w.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	return w.locker.Lock(ctx, questionID)
}

func (w questionWriter) appendEvents(ctx context.Context, questionID string, now time.Time, events []pendingEvent) error {
	if w.outbox == nil {
		return nil
	}
	logger := application.ResolveLogger(w.logger)
	for _, event := range events {
		eventID, err := w.idGen.NewID(ctx)
		if err != nil {
			return err
		}
		envelope, err := newQuestionEnvelope(eventID, event.eventType, questionID, now, event.data)
		if err != nil {
			return err
		}
		if err := w.outbox.AppendOutbox(ctx, envelope); err != nil {
			logger.Error("question outbox append failed",
				"event", "question_outbox_append_failed",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "application",
				"question_id", questionID,
				"event_type", event.eventType,
				"error", err.Error(),
			)
			return err
		}
	}
	return nil
}

func (w questionWriter) transitioned(from entities.QuestionStatus, to entities.QuestionStatus) {
	if w.metrics != nil {
		w.metrics.QuestionTransitioned(from, to)
	}
}

func (w questionWriter) allocated(domain entities.Domain, expertCount int) {
	if w.metrics != nil {
		w.metrics.AllocationCompleted(domain, expertCount)
	}
}

func (w questionWriter) scored(domain entities.Domain, score int) {
	if w.metrics != nil {
		w.metrics.AnswerScored(domain, score)
	}
}

func (w questionWriter) failed(command string, err error) {
	if w.metrics != nil {
		w.metrics.CommandFailed(command, failureReason(err))
	}
}

// failureReason keeps metric label values bounded.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrQuestionNotFound), errors.Is(err, domainerrors.ErrAnswerNotFound):
		return "not_found"
	case errors.Is(err, domainerrors.ErrConcurrentUpdate), errors.Is(err, domainerrors.ErrLockNotAcquired):
		return "concurrency"
	case errors.Is(err, domainerrors.ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, domainerrors.ErrInvalidQuestionInput),
		errors.Is(err, domainerrors.ErrInvalidAnswerInput),
		errors.Is(err, domainerrors.ErrFeedbackRequired),
		errors.Is(err, domainerrors.ErrAnswerSelectionRequired),
		errors.Is(err, domainerrors.ErrModeratorRequired),
		errors.Is(err, domainerrors.ErrVoterRequired):
		return "validation"
	case errors.Is(err, domainerrors.ErrAnswerAlreadySubmitted),
		errors.Is(err, domainerrors.ErrExpertNotAllocated),
		errors.Is(err, domainerrors.ErrNotAnswerAuthor),
		errors.Is(err, domainerrors.ErrReviewAlreadyRequested):
		return "invariant"
	default:
		return "internal"
	}
}

// expertPool loads the directory and drops profiles that fail validation.
func expertPool(ctx context.Context, directory ports.ExpertDirectory, logger *slog.Logger) ([]entities.Expert, error) {
	if directory == nil {
		return nil, nil
	}
	experts, err := directory.ListExperts(ctx)
	if err != nil {
		logger.Error("expert directory list failed",
			"event", "question_expert_directory_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"error", err.Error(),
		)
		return nil, err
	}
	pool := make([]entities.Expert, 0, len(experts))
	for _, expert := range experts {
		if err := expert.Validate(); err != nil {
			logger.Warn("expert profile skipped",
				"event", "question_expert_profile_invalid",
				"module", "farmer-advisory/question-lifecycle",
				"layer", "application",
				"expert_id", expert.ExpertID,
				"error", err.Error(),
			)
			continue
		}
		pool = append(pool, expert)
	}
	return pool, nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
