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

type QualityVoteCommand struct {
	QuestionID string
	AnswerID   string
	VoterID    string
}

type BestAnswerVoteCommand struct {
	QuestionID string
	AnswerID   string
	VoterID    string
	Comment    string
}

type ModeratorReviewRequestCommand struct {
	QuestionID string
	AnswerID   string
	ExpertID   string
}

// VotingUseCase applies peer votes and review requests. Each command runs
// under the question lock so concurrent voters cannot lose updates.
type VotingUseCase struct {
	Questions ports.QuestionRepository
	Locker    ports.QuestionLocker
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.LifecycleMetrics
	Logger    *slog.Logger
}

func (uc VotingUseCase) CastQualityVote(ctx context.Context, cmd QualityVoteCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	answerID := strings.TrimSpace(cmd.AnswerID)
	voterID := strings.TrimSpace(cmd.VoterID)

	question, err := uc.writer().apply(ctx, "cast_quality_vote", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.CastQualityVote(current, answerID, voterID, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		answer := next.Answers[next.AnswerIndex(answerID)]
		events := []pendingEvent{
			questionEvent(contractsv1.AnswerQualityVoteToggled, next).
				withAnswer(answer.AnswerID, answer.ExpertID).
				withActor(voterID).
				withVotes(answer.Votes),
		}
		return next, appendEscalation(events, current, next), nil
	})
	if err != nil {
		return entities.Question{}, err
	}

	answer := question.Answers[question.AnswerIndex(answerID)]
	logger.Info("quality vote toggled",
		"event", "question_quality_vote_toggled",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", answerID,
		"voter_id", voterID,
		"votes", answer.Votes,
		"voted", answer.HasQualityVoteFrom(voterID),
	)
	return question, nil
}

func (uc VotingUseCase) CastBestAnswerVote(ctx context.Context, cmd BestAnswerVoteCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	reviewID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Question{}, err
	}
	answerID := strings.TrimSpace(cmd.AnswerID)
	voterID := strings.TrimSpace(cmd.VoterID)

	question, err := uc.writer().apply(ctx, "cast_best_answer_vote", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.CastBestAnswerVote(current, services.BestAnswerVote{
			ReviewID: reviewID,
			AnswerID: answerID,
			VoterID:  voterID,
			Comment:  cmd.Comment,
		}, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		answer := next.Answers[next.AnswerIndex(answerID)]
		return next, []pendingEvent{
			questionEvent(contractsv1.AnswerBestVoteCast, next).
				withAnswer(answer.AnswerID, answer.ExpertID).
				withActor(voterID).
				withVotes(answer.PeerVotes),
		}, nil
	})
	if err != nil {
		return entities.Question{}, err
	}

	logger.Info("best answer vote recorded",
		"event", "question_best_answer_vote_recorded",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", answerID,
		"voter_id", voterID,
		"review_id", reviewID,
	)
	return question, nil
}

func (uc VotingUseCase) RequestModeratorReview(ctx context.Context, cmd ModeratorReviewRequestCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)
	answerID := strings.TrimSpace(cmd.AnswerID)
	expertID := strings.TrimSpace(cmd.ExpertID)

	question, err := uc.writer().apply(ctx, "request_moderator_review", cmd.QuestionID, now, func(current entities.Question) (entities.Question, []pendingEvent, error) {
		next, err := services.RequestModeratorReview(current, answerID, expertID, now)
		if err != nil {
			return entities.Question{}, nil, err
		}
		answer := next.Answers[next.AnswerIndex(answerID)]
		events := []pendingEvent{
			questionEvent(contractsv1.AnswerModeratorReviewRequest, next).
				withAnswer(answerID, expertID).
				withVotes(answer.Votes),
		}
		return next, appendEscalation(events, current, next), nil
	})
	if err != nil {
		return entities.Question{}, err
	}

	logger.Info("moderator review requested",
		"event", "question_moderator_review_requested",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", question.QuestionID,
		"answer_id", answerID,
		"expert_id", expertID,
		"status", string(question.Status),
	)
	return question, nil
}

func appendEscalation(events []pendingEvent, before entities.Question, after entities.Question) []pendingEvent {
	if before.Status == after.Status || after.Status != entities.QuestionStatusReadyForModerator {
		return events
	}
	return append(events, questionEvent(contractsv1.QuestionReadyForModerator, after).withPreviousStatus(before.Status))
}

func (uc VotingUseCase) writer() questionWriter {
	return questionWriter{
		questions: uc.Questions,
		locker:    uc.Locker,
		outbox:    uc.Outbox,
		idGen:     uc.IDGen,
		metrics:   uc.Metrics,
		logger:    uc.Logger,
	}
}
