package services

import (
	"testing"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

func TestFindDuplicatesMatchesApprovedSameDomainOnly(t *testing.T) {
	reviewedAt := fixtureNow.Add(-24 * time.Hour)
	corpus := []entities.Question{
		approvedQuestion("q-old", entities.DomainPest, "how to control aphids on mustard crop", "Spray neem oil.", reviewedAt),
		approvedQuestion("q-other-domain", entities.DomainDisease, "how to control aphids on mustard crop", "n/a", reviewedAt),
	}
	pending := approvedQuestion("q-open", entities.DomainPest, "how to control aphids on mustard crop", "n/a", reviewedAt)
	pending.Status = entities.QuestionStatusInReview
	corpus = append(corpus, pending)

	query := "how to control aphids on mustard plants"
	if domain := Classify(query); domain != entities.DomainPest {
		t.Fatalf("expected pest classification, got %s", domain)
	}
	matches := FindDuplicates(query, entities.DomainPest, corpus)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	match := matches[0]
	if match.QuestionID != "q-old" || match.Similarity < 40 {
		t.Fatalf("unexpected match: %+v", match)
	}
	if match.Similarity != 43 {
		t.Fatalf("expected rounded similarity 43, got %d", match.Similarity)
	}
	if match.Answer != "Spray neem oil." {
		t.Fatalf("expected selected answer content, got %q", match.Answer)
	}
	if !match.AnsweredAt.Equal(reviewedAt) {
		t.Fatalf("expected answered at review time, got %s", match.AnsweredAt)
	}
}

func TestFindDuplicatesSortsBySimilarityAndIgnoresWeakOverlap(t *testing.T) {
	corpus := []entities.Question{
		approvedQuestion("q-partial", entities.DomainPest, "how to control aphids on mustard plants", "a", fixtureNow),
		approvedQuestion("q-close", entities.DomainPest, "how to control aphids on mustard crop", "b", fixtureNow),
	}
	matches := FindDuplicates("how to control aphids on mustard crop", entities.DomainPest, corpus)
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %d", len(matches))
	}
	if matches[0].QuestionID != "q-close" || matches[0].Similarity != 57 || matches[1].Similarity != 43 {
		t.Fatalf("unexpected ordering: %+v", matches)
	}

	if weak := FindDuplicates("aphids on my mustard", entities.DomainPest, corpus); len(weak) != 0 {
		t.Fatalf("expected no matches below threshold, got %+v", weak)
	}
}

func TestFindDuplicatesWithoutSelectedAnswer(t *testing.T) {
	candidate := approvedQuestion("q-old", entities.DomainSoil, "testing soil salinity before sowing", "x", fixtureNow)
	candidate.ModeratorReview = nil
	matches := FindDuplicates("testing soil salinity before sowing", entities.DomainSoil, []entities.Question{candidate})
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	if matches[0].Answer != AnswerNotAvailable {
		t.Fatalf("expected placeholder answer, got %q", matches[0].Answer)
	}
	if !matches[0].AnsweredAt.Equal(candidate.SubmittedAt) {
		t.Fatalf("expected submission time fallback")
	}
}

func TestFindDuplicatesEmptyCorpus(t *testing.T) {
	matches := FindDuplicates("anything at all", entities.DomainCrop, nil)
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", matches)
	}
}
