package commands

import (
	"context"
	"log/slog"
	"strings"

	contractsv1 "agrivote/contracts/gen/events/v1"
	application "agrivote/contexts/farmer-advisory/question-lifecycle/application"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/services"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

type SubmitQuestionCommand struct {
	FarmerID string
	RawText  string
}

// SubmitQuestionResult is the intake preview shown to the farmer before the
// question is created.
type SubmitQuestionResult struct {
	Domain      entities.Domain
	CleanedText string
	Suggestions []string
	Duplicates  []entities.DuplicateMatch
}

type FinalizeSubmissionCommand struct {
	FarmerID               string
	RawText                string
	DuplicatesAcknowledged bool
}

// IntakeUseCase classifies new questions and turns confirmed submissions into
// allocated questions.
type IntakeUseCase struct {
	Questions ports.QuestionRepository
	Experts   ports.ExpertDirectory
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.LifecycleMetrics
	Logger    *slog.Logger
}

// SubmitQuestion previews classification, normalization and duplicate search.
// Nothing is persisted.
func (uc IntakeUseCase) SubmitQuestion(ctx context.Context, cmd SubmitQuestionCommand) (SubmitQuestionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.FarmerID) == "" || strings.TrimSpace(cmd.RawText) == "" {
		logger.Warn("question preview validation failed",
			"event", "question_preview_validation_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"farmer_id", strings.TrimSpace(cmd.FarmerID),
		)
		return SubmitQuestionResult{}, domainerrors.ErrInvalidQuestionInput
	}

	domain := services.Classify(cmd.RawText)
	corpus, err := uc.Questions.ListApprovedByDomain(ctx, domain)
	if err != nil {
		logger.Error("question preview corpus load failed",
			"event", "question_preview_corpus_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"domain", string(domain),
			"error", err.Error(),
		)
		return SubmitQuestionResult{}, err
	}
	intake := services.AnalyzeQuestion(cmd.RawText, corpus)

	logger.Info("question preview computed",
		"event", "question_preview_computed",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"farmer_id", strings.TrimSpace(cmd.FarmerID),
		"domain", string(intake.Domain),
		"suggestion_count", len(intake.Suggestions),
		"duplicate_count", len(intake.Duplicates),
	)
	return SubmitQuestionResult{
		Domain:      intake.Domain,
		CleanedText: intake.CleanedText,
		Suggestions: intake.Suggestions,
		Duplicates:  intake.Duplicates,
	}, nil
}

// FinalizeSubmission creates the question. Duplicate search is repeated
// against the current corpus so a stale preview cannot bypass it.
func (uc IntakeUseCase) FinalizeSubmission(ctx context.Context, cmd FinalizeSubmissionCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	writer := uc.writer()
	now := resolveNow(uc.Clock)

	questionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Question{}, err
	}
	question, err := services.NewQuestion(questionID, cmd.FarmerID, cmd.RawText, now)
	if err != nil {
		logger.Warn("question submission validation failed",
			"event", "question_submission_validation_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"farmer_id", strings.TrimSpace(cmd.FarmerID),
		)
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}

	corpus, err := uc.Questions.ListApprovedByDomain(ctx, question.Domain)
	if err != nil {
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}
	duplicates := services.FindDuplicates(cmd.RawText, question.Domain, corpus)
	pool, err := expertPool(ctx, uc.Experts, logger)
	if err != nil {
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}

	finalized, err := services.FinalizeSubmission(question, duplicates, cmd.DuplicatesAcknowledged, pool, now)
	if err != nil {
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}
	created, err := uc.Questions.CreateQuestion(ctx, finalized)
	if err != nil {
		logger.Error("question create failed",
			"event", "question_create_failed",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"question_id", finalized.QuestionID,
			"error", err.Error(),
		)
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}

	events := []pendingEvent{questionEvent(contractsv1.QuestionSubmitted, created)}
	switch {
	case created.Status == entities.QuestionStatusDuplicate:
		events = append(events, questionEvent(contractsv1.QuestionMarkedDuplicate, created))
	default:
		events = append(events, allocationEvent(created))
		writer.allocated(created.Domain, len(created.AllocatedExperts))
	}
	if err := writer.appendEvents(ctx, created.QuestionID, now, events); err != nil {
		writer.failed("finalize_submission", err)
		return entities.Question{}, err
	}
	if created.Status != question.Status {
		writer.transitioned(question.Status, created.Status)
	}

	if created.Status == entities.QuestionStatusPendingAllocation {
		logger.Warn("question has no eligible experts",
			"event", "question_allocation_empty",
			"module", "farmer-advisory/question-lifecycle",
			"layer", "application",
			"question_id", created.QuestionID,
			"domain", string(created.Domain),
		)
	}
	logger.Info("question submitted",
		"event", "question_submitted",
		"module", "farmer-advisory/question-lifecycle",
		"layer", "application",
		"question_id", created.QuestionID,
		"farmer_id", created.FarmerID,
		"domain", string(created.Domain),
		"status", string(created.Status),
		"expert_count", len(created.AllocatedExperts),
		"duplicate_count", len(duplicates),
	)
	return created, nil
}

func (uc IntakeUseCase) writer() questionWriter {
	return questionWriter{
		questions: uc.Questions,
		outbox:    uc.Outbox,
		idGen:     uc.IDGen,
		metrics:   uc.Metrics,
		logger:    uc.Logger,
	}
}
