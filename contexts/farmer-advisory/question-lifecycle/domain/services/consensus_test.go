package services

import (
	"errors"
	"reflect"
	"testing"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
)

func TestCastQualityVoteToggles(t *testing.T) {
	question := inReviewQuestion()
	voted, err := CastQualityVote(question, "a2", "e3", fixtureNow)
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	idx := voted.AnswerIndex("a2")
	if voted.Answers[idx].Votes != 1 || !voted.Answers[idx].HasQualityVoteFrom("e3") {
		t.Fatalf("expected one vote from e3, got %+v", voted.Answers[idx])
	}
	if question.Answers[idx].Votes != 0 {
		t.Fatalf("input snapshot was mutated")
	}

	unvoted, err := CastQualityVote(voted, "a2", "e3", fixtureNow)
	if err != nil {
		t.Fatalf("second vote failed: %v", err)
	}
	if unvoted.Answers[idx].Votes != 0 || unvoted.Answers[idx].HasQualityVoteFrom("e3") {
		t.Fatalf("expected toggle back to zero, got %+v", unvoted.Answers[idx])
	}
}

func TestCastQualityVoteRejectsUnknownAnswer(t *testing.T) {
	question := inReviewQuestion()
	got, err := CastQualityVote(question, "missing", "e3", fixtureNow)
	if !errors.Is(err, domainerrors.ErrAnswerNotFound) {
		t.Fatalf("expected answer not found, got %v", err)
	}
	if !reflect.DeepEqual(got, question) {
		t.Fatalf("expected unchanged question on failure")
	}
}

func TestCastBestAnswerVoteSupersedesPriorChoice(t *testing.T) {
	question := inReviewQuestion()
	first, err := CastBestAnswerVote(question, BestAnswerVote{ReviewID: "r1", AnswerID: "a1", VoterID: "e3", Comment: "clear dosage"}, fixtureNow)
	if err != nil {
		t.Fatalf("first best vote failed: %v", err)
	}
	if first.Answers[first.AnswerIndex("a1")].PeerVotes != 1 {
		t.Fatalf("expected a1 to have one best vote")
	}

	second, err := CastBestAnswerVote(first, BestAnswerVote{ReviewID: "r2", AnswerID: "a2", VoterID: "e3"}, fixtureNow)
	if err != nil {
		t.Fatalf("second best vote failed: %v", err)
	}
	a1 := second.Answers[second.AnswerIndex("a1")]
	a2 := second.Answers[second.AnswerIndex("a2")]
	if a1.PeerVotes != 0 || a2.PeerVotes != 1 {
		t.Fatalf("expected vote moved to a2, got a1=%d a2=%d", a1.PeerVotes, a2.PeerVotes)
	}
	if !reflect.DeepEqual(a2.BestAnswerVoters, []string{"e3"}) {
		t.Fatalf("unexpected voters on a2: %v", a2.BestAnswerVoters)
	}
	active := 0
	for _, review := range second.PeerReviews {
		if review.ReviewerID == "e3" && review.BestAnswerVote {
			active++
		}
	}
	if active != 1 || len(second.PeerReviews) != 2 {
		t.Fatalf("expected one active vote among two reviews, got %d of %d", active, len(second.PeerReviews))
	}
}

func TestVotesAloneDoNotEscalate(t *testing.T) {
	question := inReviewQuestion()
	var err error
	for _, voter := range []string{"v1", "v2", "v3", "v4", "v5", "v6"} {
		question, err = CastQualityVote(question, "a1", voter, fixtureNow)
		if err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	if question.Status != entities.QuestionStatusInReview {
		t.Fatalf("expected in_review without request, got %s", question.Status)
	}
}

func TestReviewRequestBeforeThresholdEscalatesOnFifthVote(t *testing.T) {
	question := inReviewQuestion()
	question, err := RequestModeratorReview(question, "a2", "e2", fixtureNow)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if question.Status != entities.QuestionStatusInReview {
		t.Fatalf("expected in_review below threshold, got %s", question.Status)
	}
	for i, voter := range []string{"v1", "v2", "v3", "v4", "v5"} {
		question, err = CastQualityVote(question, "a2", voter, fixtureNow)
		if err != nil {
			t.Fatalf("vote failed: %v", err)
		}
		if i < 4 && question.Status != entities.QuestionStatusInReview {
			t.Fatalf("escalated early after %d votes", i+1)
		}
	}
	if question.Status != entities.QuestionStatusReadyForModerator {
		t.Fatalf("expected ready_for_moderator, got %s", question.Status)
	}
}

func TestRequestModeratorReviewRules(t *testing.T) {
	question := inReviewQuestion()
	if _, err := RequestModeratorReview(question, "a1", "e2", fixtureNow); !errors.Is(err, domainerrors.ErrNotAnswerAuthor) {
		t.Fatalf("expected not author, got %v", err)
	}
	flagged, err := RequestModeratorReview(question, "a1", "e1", fixtureNow)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := RequestModeratorReview(flagged, "a1", "e1", fixtureNow); !errors.Is(err, domainerrors.ErrReviewAlreadyRequested) {
		t.Fatalf("expected already requested, got %v", err)
	}
}

func TestScenarioYellowWheatReachesModerator(t *testing.T) {
	question := readyQuestion()
	if question.Domain != entities.DomainDisease {
		t.Fatalf("expected disease domain, got %s", question.Domain)
	}
	if len(question.Answers) != 2 {
		t.Fatalf("expected two answers, got %d", len(question.Answers))
	}
	if question.Status != entities.QuestionStatusReadyForModerator {
		t.Fatalf("expected ready_for_moderator, got %s", question.Status)
	}
}
