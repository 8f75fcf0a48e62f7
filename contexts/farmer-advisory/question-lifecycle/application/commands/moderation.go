package commands

import (
	"context"
	"log/slog"
	"strings"

	contractsv1 "agrivote/contracts/gen/events/v1"
	application "agrivote/contexts/farmer-advisory/question-lifecycle/application"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/services"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

type ApproveAnswerCommand struct {
	QuestionID  string
	ModeratorID string
	AnswerID    string
	Feedback    string
}

type RejectAnswersCommand struct {
	QuestionID  string
	ModeratorID string
	Feedback    string
}

type ReopenQuestionCommand struct {
	QuestionID  string
	ModeratorID string
}

// ModerationUseCase carries out moderator decisions. The moderator identity is
// always supplied by the caller.
type ModerationUseCase struct {
	Questions ports.QuestionRepository
	Experts   ports.ExpertDirectory
	Locker    ports.QuestionLocker
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.LifecycleMetrics
	Logger    *slog.Logger
}

func (uc ModerationUseCase) ApproveAnswer(ctx context.Context, cmd ApproveAnswerCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	moderatorID := strings.TrimSpace(cmd.ModeratorID)

	question, err := uc.writer().apply(ctx, "approve_answer", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.ApproveAnswer(current, moderatorID, cmd.AnswerID, cmd.Feedback, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		selected, _ := next.SelectedAnswer()
		return next, []pendingEvent{
			questionEvent(contractsv1.QuestionApproved, next).
				withAnswer(selected.AnswerID, selected.ExpertID).
				withActor(moderatorID).
				withReason(next.ModeratorReview.Feedback).
				withPreviousStatus(current.Status),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}

	logger.Info("answer approved",
		"event", "question_answer_approved",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", strings.TrimSpace(cmd.AnswerID),
		"moderator_id", moderatorID,
	)
	return question, nil
}

// RejectAndReallocate rejects every current answer and hands the question to
// experts who have not worked on it in the rejected round.
func (uc ModerationUseCase) RejectAndReallocate(ctx context.Context, cmd RejectAnswersCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	moderatorID := strings.TrimSpace(cmd.ModeratorID)
	writer := uc.writer()
	pool, err := expertPool(ctx, uc.Experts, logger)
	if err != nil {
		writer.failed("reject_and_reallocate", err)
		return entities.Question{}, err
	}

	question, err := writer.apply(ctx, "reject_and_reallocate", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.RejectAndReallocate(current, moderatorID, cmd.Feedback, pool, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		return next, []pendingEvent{
			questionEvent(contractsv1.QuestionReallocated, next).
				withActor(moderatorID).
				withReason(strings.TrimSpace(cmd.Feedback)).
				withPreviousStatus(current.Status),
			allocationEvent(next),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}
	writer.allocated(question.Domain, len(question.AllocatedExperts))

	if len(question.AllocatedExperts) == 0 {
		logger.Warn("reallocation found no eligible experts",
			"event", "question_reallocation_empty",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"question_id", question.QuestionID,
			"domain", string(question.Domain),
			"attempt", len(question.RejectionHistory),
		)
	}
	logger.Info("question rejected and reallocated",
		"event", "question_rejected_reallocated",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"moderator_id", moderatorID,
		"attempt", len(question.RejectionHistory),
		"expert_count", len(question.AllocatedExperts),
	)
	return question, nil
}

// CloseQuestion rejects the question for good. It can only come back through
// ReopenQuestion.
func (uc ModerationUseCase) CloseQuestion(ctx context.Context, cmd RejectAnswersCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	moderatorID := strings.TrimSpace(cmd.ModeratorID)

	question, err := uc.writer().apply(ctx, "close_question", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.CloseQuestion(current, moderatorID, cmd.Feedback, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		return next, []pendingEvent{
			questionEvent(contractsv1.QuestionClosed, next).
				withActor(moderatorID).
				withReason(strings.TrimSpace(cmd.Feedback)).
				withPreviousStatus(current.Status),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}

	logger.Info("question closed",
		"event", "question_closed",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"moderator_id", moderatorID,
	)
	return question, nil
}

func (uc ModerationUseCase) ReopenQuestion(ctx context.Context, cmd ReopenQuestionCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	moderatorID := strings.TrimSpace(cmd.ModeratorID)
	writer := uc.writer()
	pool, err := expertPool(ctx, uc.Experts, logger)
	if err != nil {
		writer.failed("reopen_question", err)
		return entities.Question{}, err
	}

	question, err := writer.apply(ctx, "reopen_question", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.ReopenQuestion(current, moderatorID, pool, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		return next, []pendingEvent{
			questionEvent(contractsv1.QuestionReopened, next).
				withActor(moderatorID).
				withPreviousStatus(current.Status),
			allocationEvent(next),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}
	writer.allocated(question.Domain, len(question.AllocatedExperts))

	logger.Info("question reopened",
		"event", "question_reopened",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"moderator_id", moderatorID,
		"expert_count", len(question.AllocatedExperts),
	)
	return question, nil
}

// RetryAllocation staffs a question that was left without experts. It is an
// explicit operator action; nothing retries automatically.
func (uc ModerationUseCase) RetryAllocation(ctx context.Context, questionID string) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	writer := uc.writer()
	pool, err := expertPool(ctx, uc.Experts, logger)
	if err != nil {
		writer.failed("retry_allocation", err)
		return entities.Question{}, err
	}

	question, err := writer.apply(ctx, "retry_allocation", questionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.RetryAllocation(current, pool, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		return next, []pendingEvent{allocationEvent(next).withPreviousStatus(current.Status)}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}
	writer.allocated(question.Domain, len(question.AllocatedExperts))

	logger.Info("question allocation retried",
		"event", "question_allocation_retried",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"status", string(question.Status),
		"expert_count", len(question.AllocatedExperts),
	)
	return question, nil
}

func (uc ModerationUseCase) writer() questionWriter {
	return questionWriter{
		questions: uc.Questions,
		locker:    uc.Locker,
		outbox:    uc.Outbox,
		idGen:     uc.IDGen,
		metrics:   uc.Metrics,
		logger:    uc.Logger,
	}
}
