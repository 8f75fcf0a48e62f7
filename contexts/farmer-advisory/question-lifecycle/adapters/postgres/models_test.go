package postgresadapter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestQuestionModelKeepsNestedState(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	question := entities.Question{
		QuestionID:       "q-1",
		FarmerID:         "farmer-1",
		RawText:          "aphids on mustard",
		CleanedText:      "Aphids on mustard?",
		Domain:           entities.DomainPest,
		Status:           entities.QuestionStatusApproved,
		SubmittedAt:      now,
		UpdatedAt:        now.Add(time.Hour),
		AllocatedExperts: []string{"e4", "e5"},
		Answers: []entities.Answer{{
			AnswerID:                 "a1",
			QuestionID:               "q-1",
			ExpertID:                 "e4",
			Content:                  "Spray neem oil 5 ml per liter.",
			QualityScore:             60,
			Votes:                    5,
			VotedBy:                  []string{"v1", "v2", "v3", "v4", "v5"},
			PeerVotes:                1,
			BestAnswerVoters:         []string{"e5"},
			RequestedModeratorReview: true,
			SubmittedAt:              now,
			LastModifiedAt:           now,
		}},
		PeerReviews: []entities.PeerReview{{
			ReviewID: "r1", ReviewerID: "e5", AnswerID: "a1", BestAnswerVote: true, CreatedAt: now,
		}},
		ModeratorReview: &entities.ModeratorReview{
			ModeratorID:      "mod-1",
			Decision:         entities.ModeratorDecisionApproved,
			Feedback:         "Answer approved",
			ReviewedAt:       now,
			SelectedAnswerID: "a1",
		},
		RejectionHistory: []entities.RejectionHistory{{
			Attempt: 1, ExpertIDs: []string{"e1", "e2"}, Reason: "vague", RejectedAt: now, Context: "briefing",
		}},
		Version: 4,
	}

	row, err := questionModelFromEntity(question)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := row.toEntity()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.Version != 4 || decoded.Status != entities.QuestionStatusApproved {
		t.Fatalf("unexpected scalar fields %+v", decoded)
	}
	if len(decoded.Answers) != 1 || decoded.Answers[0].QuestionID != "q-1" || decoded.Answers[0].Votes != 5 {
		t.Fatalf("unexpected answers %+v", decoded.Answers)
	}
	if !decoded.Answers[0].RequestedModeratorReview || len(decoded.Answers[0].VotedBy) != 5 {
		t.Fatalf("expected review flag and voters to survive, got %+v", decoded.Answers[0])
	}
	selected, ok := decoded.SelectedAnswer()
	if !ok || selected.AnswerID != "a1" {
		t.Fatalf("expected selected answer a1, got %+v", decoded.ModeratorReview)
	}
	if len(decoded.RejectionHistory) != 1 || decoded.RejectionHistory[0].ExpertIDs[1] != "e2" {
		t.Fatalf("unexpected rejection history %+v", decoded.RejectionHistory)
	}
	if len(decoded.PeerReviews) != 1 || !decoded.PeerReviews[0].BestAnswerVote {
		t.Fatalf("unexpected peer reviews %+v", decoded.PeerReviews)
	}
}

func TestQuestionModelWithoutReviewDecodesNil(t *testing.T) {
	row, err := questionModelFromEntity(entities.Question{QuestionID: "q-1", Status: entities.QuestionStatusPendingAllocation})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(row.AllocatedExperts) != "[]" {
		t.Fatalf("expected empty jsonb array, got %s", row.AllocatedExperts)
	}
	decoded, err := row.toEntity()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ModeratorReview != nil {
		t.Fatalf("expected no moderator review, got %+v", decoded.ModeratorReview)
	}
	if decoded.AllocatedExperts == nil || decoded.Answers == nil {
		t.Fatalf("expected empty, non-nil slices")
	}
}

func TestExpertModelMapsSpecializations(t *testing.T) {
	row, err := expertModelFromEntity(entities.Expert{
		ExpertID:        " e1 ",
		Specializations: []entities.Domain{entities.DomainSoil, entities.DomainCrop},
		AccuracyScore:   70,
	}, time.Now())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if row.ExpertID != "e1" || !row.Active {
		t.Fatalf("unexpected row %+v", row)
	}
	expert, err := row.toEntity()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !expert.Specializes(entities.DomainCrop) || len(expert.Specializations) != 2 {
		t.Fatalf("unexpected specializations %v", expert.Specializations)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("expected plain error not to be a unique violation")
	}
}
