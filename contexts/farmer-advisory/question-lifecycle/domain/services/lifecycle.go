package services

import (
	"strings"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
)

const DefaultApprovalFeedback = "Answer approved"

var allowedTransitions = map[entities.QuestionStatus][]entities.QuestionStatus{
	entities.QuestionStatusPendingAllocation: {entities.QuestionStatusAllocated, entities.QuestionStatusDuplicate},
	entities.QuestionStatusAllocated:         {entities.QuestionStatusAllocated, entities.QuestionStatusInReview},
	entities.QuestionStatusInReview:          {entities.QuestionStatusReadyForModerator},
	entities.QuestionStatusReadyForModerator: {
		entities.QuestionStatusApproved,
		entities.QuestionStatusReallocated,
		entities.QuestionStatusRejected,
	},
	entities.QuestionStatusReallocated: {entities.QuestionStatusAllocated},
	entities.QuestionStatusRejected:    {entities.QuestionStatusAllocated},
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from entities.QuestionStatus, to entities.QuestionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transition(question *entities.Question, to entities.QuestionStatus) error {
	if !CanTransition(question.Status, to) {
		return domainerrors.ErrInvalidStatusTransition
	}
	question.Status = to
	return nil
}

type Intake struct {
	Domain      entities.Domain
	CleanedText string
	Suggestions []string
	Duplicates  []entities.DuplicateMatch
}

// AnalyzeQuestion runs classification, normalization and duplicate search
// without creating anything.
func AnalyzeQuestion(rawText string, corpus []entities.Question) Intake {
	domain := Classify(rawText)
	normalized := Normalize(rawText)
	return Intake{
		Domain:      domain,
		CleanedText: normalized.CleanedText,
		Suggestions: normalized.Suggestions,
		Duplicates:  FindDuplicates(rawText, domain, corpus),
	}
}

// NewQuestion builds a pending question from farmer input.
func NewQuestion(questionID string, farmerID string, rawText string, now time.Time) (entities.Question, error) {
	questionID = strings.TrimSpace(questionID)
	farmerID = strings.TrimSpace(farmerID)
	if questionID == "" || farmerID == "" || strings.TrimSpace(rawText) == "" {
		return entities.Question{}, domainerrors.ErrInvalidQuestionInput
	}
	normalized := Normalize(rawText)
	return entities.Question{
		QuestionID:       questionID,
		FarmerID:         farmerID,
		RawText:          rawText,
		CleanedText:      normalized.CleanedText,
		Suggestions:      normalized.Suggestions,
		Domain:           Classify(rawText),
		Status:           entities.QuestionStatusPendingAllocation,
		SubmittedAt:      now.UTC(),
		UpdatedAt:        now.UTC(),
		AllocatedExperts: []string{},
		Answers:          []entities.Answer{},
	}, nil
}

// FinalizeSubmission settles a pending question. Unacknowledged duplicates
// close it as a duplicate; otherwise experts are allocated. When nobody is
// eligible the question stays pending so allocation can be retried.
func FinalizeSubmission(
	question entities.Question,
	duplicates []entities.DuplicateMatch,
	duplicatesAcknowledged bool,
	pool []entities.Expert,
	now time.Time,
) (entities.Question, error) {
	if question.Status != entities.QuestionStatusPendingAllocation {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	out := question.Clone()
	out.UpdatedAt = now.UTC()

	if len(duplicates) > 0 && !duplicatesAcknowledged {
		if err := transition(&out, entities.QuestionStatusDuplicate); err != nil {
			return question, err
		}
		out.IsDuplicate = true
		out.DuplicateOf = duplicates[0].QuestionID
		return out, nil
	}

	experts := Allocate(out.Domain, pool, nil)
	out.AllocatedExperts = experts
	if len(experts) == 0 {
		return out, nil
	}
	if err := transition(&out, entities.QuestionStatusAllocated); err != nil {
		return question, err
	}
	return out, nil
}

// RetryAllocation assigns experts to a question that is still waiting for
// them. Experts from the latest rejection stay excluded.
func RetryAllocation(question entities.Question, pool []entities.Expert, now time.Time) (entities.Question, error) {
	waiting := question.Status == entities.QuestionStatusPendingAllocation ||
		(question.Status == entities.QuestionStatusAllocated && len(question.AllocatedExperts) == 0)
	if !waiting {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	var exclude map[string]struct{}
	if n := len(question.RejectionHistory); n > 0 {
		exclude = ExcludeSet(question.RejectionHistory[n-1].ExpertIDs)
	}
	out := question.Clone()
	out.AllocatedExperts = Allocate(out.Domain, pool, exclude)
	out.UpdatedAt = now.UTC()
	if len(out.AllocatedExperts) == 0 {
		return out, nil
	}
	if err := transition(&out, entities.QuestionStatusAllocated); err != nil {
		return question, err
	}
	return out, nil
}

type AnswerSubmission struct {
	AnswerID string
	ExpertID string
	Content  string
}

// SubmitAnswer appends an allocated expert's answer. The first answer moves
// the question into review.
func SubmitAnswer(question entities.Question, submission AnswerSubmission, now time.Time) (entities.Question, error) {
	expertID := strings.TrimSpace(submission.ExpertID)
	content := strings.TrimSpace(submission.Content)
	if content == "" {
		return question, domainerrors.ErrInvalidAnswerInput
	}
	if !question.Status.AcceptsAnswers() {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	if !question.IsAllocated(expertID) {
		return question, domainerrors.ErrExpertNotAllocated
	}
	if _, exists := question.AnswerByExpert(expertID); exists {
		return question, domainerrors.ErrAnswerAlreadySubmitted
	}

	out := question.Clone()
	out.Answers = append(out.Answers, entities.Answer{
		AnswerID:           strings.TrimSpace(submission.AnswerID),
		QuestionID:         out.QuestionID,
		ExpertID:           expertID,
		Content:            content,
		QualityScore:       ScoreAnswer(content),
		QualitySuggestions: SuggestQualityImprovements(content),
		VotedBy:            []string{},
		BestAnswerVoters:   []string{},
		SubmittedAt:        now.UTC(),
		LastModifiedAt:     now.UTC(),
	})
	if out.Status == entities.QuestionStatusAllocated {
		if err := transition(&out, entities.QuestionStatusInReview); err != nil {
			return question, err
		}
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

// EditAnswer replaces an answer's content and re-scores it. Only the author
// may edit, and only while the question is in review.
func EditAnswer(question entities.Question, answerID string, expertID string, content string, now time.Time) (entities.Question, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return question, domainerrors.ErrInvalidAnswerInput
	}
	if question.Status != entities.QuestionStatusInReview {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	idx := question.AnswerIndex(strings.TrimSpace(answerID))
	if idx < 0 {
		return question, domainerrors.ErrAnswerNotFound
	}
	if question.Answers[idx].ExpertID != strings.TrimSpace(expertID) {
		return question, domainerrors.ErrNotAnswerAuthor
	}

	out := question.Clone()
	answer := &out.Answers[idx]
	answer.Content = content
	answer.QualityScore = ScoreAnswer(content)
	answer.QualitySuggestions = SuggestQualityImprovements(content)
	answer.LastModifiedAt = now.UTC()
	out.UpdatedAt = now.UTC()
	return out, nil
}

// ApproveAnswer closes the question with the moderator's chosen answer.
func ApproveAnswer(question entities.Question, moderatorID string, answerID string, feedback string, now time.Time) (entities.Question, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	answerID = strings.TrimSpace(answerID)
	if moderatorID == "" {
		return question, domainerrors.ErrModeratorRequired
	}
	if answerID == "" {
		return question, domainerrors.ErrAnswerSelectionRequired
	}
	if question.Status != entities.QuestionStatusReadyForModerator {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	if question.AnswerIndex(answerID) < 0 {
		return question, domainerrors.ErrAnswerNotFound
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		feedback = DefaultApprovalFeedback
	}

	out := question.Clone()
	if err := transition(&out, entities.QuestionStatusApproved); err != nil {
		return question, err
	}
	out.ModeratorReview = &entities.ModeratorReview{
		ModeratorID:      moderatorID,
		Decision:         entities.ModeratorDecisionApproved,
		Feedback:         feedback,
		ReviewedAt:       now.UTC(),
		SelectedAnswerID: answerID,
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

// RejectAndReallocate records the rejection, clears the answers and hands the
// question to a fresh expert slate. A pool with nobody left still yields an
// allocated question with no experts.
func RejectAndReallocate(
	question entities.Question,
	moderatorID string,
	feedback string,
	pool []entities.Expert,
	now time.Time,
) (entities.Question, error) {
	out, err := recordRejection(question, moderatorID, feedback, entities.QuestionStatusReallocated, now)
	if err != nil {
		return question, err
	}
	previous := out.RejectionHistory[len(out.RejectionHistory)-1].ExpertIDs
	if err := reallocate(&out, pool, previous); err != nil {
		return question, err
	}
	return out, nil
}

// CloseQuestion rejects the question without reallocating it.
func CloseQuestion(question entities.Question, moderatorID string, feedback string, now time.Time) (entities.Question, error) {
	return recordRejection(question, moderatorID, feedback, entities.QuestionStatusRejected, now)
}

// ReopenQuestion brings a closed question back with experts other than the
// ones whose answers were rejected.
func ReopenQuestion(question entities.Question, moderatorID string, pool []entities.Expert, now time.Time) (entities.Question, error) {
	if strings.TrimSpace(moderatorID) == "" {
		return question, domainerrors.ErrModeratorRequired
	}
	if question.Status != entities.QuestionStatusRejected {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	var previous []string
	if n := len(question.RejectionHistory); n > 0 {
		previous = question.RejectionHistory[n-1].ExpertIDs
	}
	out := question.Clone()
	out.UpdatedAt = now.UTC()
	if err := reallocate(&out, pool, previous); err != nil {
		return question, err
	}
	return out, nil
}

func recordRejection(
	question entities.Question,
	moderatorID string,
	feedback string,
	next entities.QuestionStatus,
	now time.Time,
) (entities.Question, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	feedback = strings.TrimSpace(feedback)
	if moderatorID == "" {
		return question, domainerrors.ErrModeratorRequired
	}
	if feedback == "" {
		return question, domainerrors.ErrFeedbackRequired
	}
	if question.Status != entities.QuestionStatusReadyForModerator {
		return question, domainerrors.ErrInvalidStatusTransition
	}

	out := question.Clone()
	if err := transition(&out, next); err != nil {
		return question, err
	}
	out.RejectionHistory = append(out.RejectionHistory, entities.RejectionHistory{
		Attempt:    len(question.RejectionHistory) + 1,
		ExpertIDs:  append([]string(nil), question.AllocatedExperts...),
		Reason:     feedback,
		RejectedAt: now.UTC(),
		Context:    RejectionContext(question.CleanedText, len(question.Answers), feedback),
	})
	out.ModeratorReview = &entities.ModeratorReview{
		ModeratorID: moderatorID,
		Decision:    entities.ModeratorDecisionRejected,
		Feedback:    feedback,
		ReviewedAt:  now.UTC(),
	}
	out.UpdatedAt = now.UTC()
	return out, nil
}

func reallocate(question *entities.Question, pool []entities.Expert, previous []string) error {
	if err := transition(question, entities.QuestionStatusAllocated); err != nil {
		return err
	}
	question.Answers = []entities.Answer{}
	question.PeerReviews = nil
	question.AllocatedExperts = Allocate(question.Domain, pool, ExcludeSet(previous))
	return nil
}
