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

type SubmitAnswerCommand struct {
	QuestionID string
	ExpertID   string
	Content    string
}

type EditAnswerCommand struct {
	QuestionID string
	AnswerID   string
	ExpertID   string
	Content    string
}

type AnswerUseCase struct {
	Questions ports.QuestionRepository
	Locker    ports.QuestionLocker
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.LifecycleMetrics
	Logger    *slog.Logger
}

// SubmitAnswer stores an allocated expert's answer with its quality score.
func (uc AnswerUseCase) SubmitAnswer(ctx context.Context, cmd SubmitAnswerCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	answerID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Question{}, err
	}

	writer := uc.writer()
	var score int
	question, err := writer.apply(ctx, "submit_answer", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.SubmitAnswer(current, services.AnswerSubmission{
			AnswerID: answerID,
			ExpertID: cmd.ExpertID,
			Content:  cmd.Content,
		}, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		score = next.Answers[next.AnswerIndex(answerID)].QualityScore
		return next, []pendingEvent{
			questionEvent(contractsv1.AnswerSubmitted, next).
				withAnswer(answerID, strings.TrimSpace(cmd.ExpertID)).
				withPreviousStatus(current.Status),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}
	writer.scored(question.Domain, score)

	logger.Info("answer submitted",
		"event", "question_answer_submitted",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", answerID,
		"expert_id", strings.TrimSpace(cmd.ExpertID),
		"quality_score", score,
		"status", string(question.Status),
	)
	return question, nil
}

// EditAnswer lets the author revise an answer while the question is in
// review. The quality score is recomputed.
func (uc AnswerUseCase) EditAnswer(ctx context.Context, cmd EditAnswerCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	writer := uc.writer()
	var score int
	question, err := writer.apply(ctx, "edit_answer", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.EditAnswer(current, cmd.AnswerID, cmd.ExpertID, cmd.Content, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		score = next.Answers[next.AnswerIndex(strings.TrimSpace(cmd.AnswerID))].QualityScore
		return next, []pendingEvent{
			questionEvent(contractsv1.AnswerEdited, next).
				withAnswer(strings.TrimSpace(cmd.AnswerID), strings.TrimSpace(cmd.ExpertID)),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}
	writer.scored(question.Domain, score)

	logger.Info("answer edited",
		"event", "question_answer_edited",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", strings.TrimSpace(cmd.AnswerID),
		"quality_score", score,
	)
	return question, nil
}

func (uc AnswerUseCase) writer() questionWriter {
	return questionWriter{
		questions: uc.Questions,
		locker:    uc.Locker,
		outbox:    uc.Outbox,
		idGen:     uc.IDGen,
		metrics:   uc.Metrics,
		logger:    uc.Logger,
	}
}
