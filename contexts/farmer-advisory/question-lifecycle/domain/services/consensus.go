package services

import (
	"strings"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
)

// ModeratorReviewThreshold is the quality-vote count an answer needs before
// its author's review request escalates the question.
const ModeratorReviewThreshold = 5

type BestAnswerVote struct {
	ReviewID string
	AnswerID string
	VoterID  string
	Comment  string
}

// CastQualityVote toggles voterID's quality vote on an answer. Casting the
// same vote twice cancels it.
func CastQualityVote(question entities.Question, answerID string, voterID string, now time.Time) (entities.Question, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return question, domainerrors.ErrVoterRequired
	}
	if !question.Status.AcceptsVotes() {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	idx := question.AnswerIndex(strings.TrimSpace(answerID))
	if idx < 0 {
		return question, domainerrors.ErrAnswerNotFound
	}

	out := question.Clone()
	answer := &out.Answers[idx]
	if answer.HasQualityVoteFrom(voterID) {
		answer.VotedBy = removeString(answer.VotedBy, voterID)
		answer.Votes--
	} else {
		answer.VotedBy = append(answer.VotedBy, voterID)
		answer.Votes++
	}
	out.UpdatedAt = now.UTC()
	escalateIfReady(&out)
	return out, nil
}

// CastBestAnswerVote records voter's single best-answer choice for the
// question. Any earlier choice by the same voter is superseded.
func CastBestAnswerVote(question entities.Question, vote BestAnswerVote, now time.Time) (entities.Question, error) {
	voterID := strings.TrimSpace(vote.VoterID)
	if voterID == "" {
		return question, domainerrors.ErrVoterRequired
	}
	if !question.Status.AcceptsVotes() {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	answerID := strings.TrimSpace(vote.AnswerID)
	if question.AnswerIndex(answerID) < 0 {
		return question, domainerrors.ErrAnswerNotFound
	}

	out := question.Clone()
	for i := range out.PeerReviews {
		if out.PeerReviews[i].ReviewerID == voterID && out.PeerReviews[i].BestAnswerVote {
			out.PeerReviews[i].BestAnswerVote = false
		}
	}
	out.PeerReviews = append(out.PeerReviews, entities.PeerReview{
		ReviewID:       strings.TrimSpace(vote.ReviewID),
		ReviewerID:     voterID,
		AnswerID:       answerID,
		BestAnswerVote: true,
		Comment:        strings.TrimSpace(vote.Comment),
		CreatedAt:      now.UTC(),
	})
	recountBestAnswerVotes(&out)
	out.UpdatedAt = now.UTC()
	return out, nil
}

// RequestModeratorReview flags an answer for moderation on behalf of its
// author. The flag cannot be cleared or set twice.
func RequestModeratorReview(question entities.Question, answerID string, expertID string, now time.Time) (entities.Question, error) {
	if !question.Status.AcceptsVotes() {
		return question, domainerrors.ErrInvalidStatusTransition
	}
	idx := question.AnswerIndex(strings.TrimSpace(answerID))
	if idx < 0 {
		return question, domainerrors.ErrAnswerNotFound
	}
	if question.Answers[idx].ExpertID != strings.TrimSpace(expertID) {
		return question, domainerrors.ErrNotAnswerAuthor
	}
	if question.Answers[idx].RequestedModeratorReview {
		return question, domainerrors.ErrReviewAlreadyRequested
	}

	out := question.Clone()
	out.Answers[idx].RequestedModeratorReview = true
	out.UpdatedAt = now.UTC()
	escalateIfReady(&out)
	return out, nil
}

// ReadyForModerator reports whether some answer has both the author's review
// request and enough quality votes.
func ReadyForModerator(question entities.Question) bool {
	for _, answer := range question.Answers {
		if answer.RequestedModeratorReview && answer.Votes >= ModeratorReviewThreshold {
			return true
		}
	}
	return false
}

func escalateIfReady(question *entities.Question) {
	if question.Status == entities.QuestionStatusInReview && ReadyForModerator(*question) {
		question.Status = entities.QuestionStatusReadyForModerator
	}
}

func recountBestAnswerVotes(question *entities.Question) {
	voters := make(map[string][]string, len(question.Answers))
	for _, review := range question.PeerReviews {
		if review.BestAnswerVote {
			voters[review.AnswerID] = append(voters[review.AnswerID], review.ReviewerID)
		}
	}
	for i := range question.Answers {
		ids := voters[question.Answers[i].AnswerID]
		question.Answers[i].BestAnswerVoters = ids
		question.Answers[i].PeerVotes = len(ids)
	}
}

func removeString(items []string, target string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}
