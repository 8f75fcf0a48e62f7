package services

import (
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

var fixtureNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func expert(id string, accuracy float64, domains ...entities.Domain) entities.Expert {
	return entities.Expert{
		ExpertID:                 id,
		Name:                     "Expert " + id,
		Specializations:          domains,
		AccuracyScore:            accuracy,
		ModeratorAcceptanceRate:  50,
		PeerVotesReceived:        10,
		ConsistencyScore:         50,
		AverageResponseTimeHours: 5,
	}
}

func approvedQuestion(id string, domain entities.Domain, text string, answer string, reviewedAt time.Time) entities.Question {
	return entities.Question{
		QuestionID:  id,
		FarmerID:    "farmer-old",
		RawText:     text,
		CleanedText: text,
		Domain:      domain,
		Status:      entities.QuestionStatusApproved,
		SubmittedAt: reviewedAt.Add(-48 * time.Hour),
		Answers: []entities.Answer{
			{AnswerID: id + "-a1", QuestionID: id, ExpertID: "e-old", Content: answer},
		},
		ModeratorReview: &entities.ModeratorReview{
			ModeratorID:      "mod-1",
			Decision:         entities.ModeratorDecisionApproved,
			Feedback:         DefaultApprovalFeedback,
			ReviewedAt:       reviewedAt,
			SelectedAnswerID: id + "-a1",
		},
	}
}

// inReviewQuestion returns a disease question allocated to e1..e3 with one
// answer from each of e1 and e2.
func inReviewQuestion() entities.Question {
	question, err := NewQuestion("q-1", "farmer-1", "my wheat crop is turning yellow", fixtureNow)
	if err != nil {
		panic(err)
	}
	pool := []entities.Expert{
		expert("e1", 90, entities.DomainDisease),
		expert("e2", 80, entities.DomainDisease),
		expert("e3", 70, entities.DomainDisease),
	}
	question, err = FinalizeSubmission(question, nil, false, pool, fixtureNow)
	if err != nil {
		panic(err)
	}
	question, err = SubmitAnswer(question, AnswerSubmission{AnswerID: "a1", ExpertID: "e1", Content: "Spray mancozeb 2 g per liter."}, fixtureNow)
	if err != nil {
		panic(err)
	}
	question, err = SubmitAnswer(question, AnswerSubmission{AnswerID: "a2", ExpertID: "e2", Content: "Check for rust pustules first."}, fixtureNow)
	if err != nil {
		panic(err)
	}
	return question
}

func readyQuestion() entities.Question {
	question := inReviewQuestion()
	var err error
	for _, voter := range []string{"v1", "v2", "v3", "v4", "v5"} {
		question, err = CastQualityVote(question, "a1", voter, fixtureNow)
		if err != nil {
			panic(err)
		}
	}
	question, err = RequestModeratorReview(question, "a1", "e1", fixtureNow)
	if err != nil {
		panic(err)
	}
	return question
}
