package queries

import (
	"context"
	"strings"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/services"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

const recentWindow = 7 * 24 * time.Hour

type QuestionQueryUseCase struct {
	Questions ports.QuestionRepository
	Experts   ports.ExpertDirectory
	Clock     ports.Clock
}

// ModeratorQueueItem pairs a question awaiting decision with its answers in
// recommendation order.
type ModeratorQueueItem struct {
	Question      entities.Question
	RankedAnswers []entities.Answer
}

// Recommended is the top-ranked answer, if any.
func (i ModeratorQueueItem) Recommended() (entities.Answer, bool) {
	if len(i.RankedAnswers) == 0 {
		return entities.Answer{}, false
	}
	return i.RankedAnswers[0], true
}

// ExpertWorkload splits an expert's active assignments by whether they have
// answered yet.
type ExpertWorkload struct {
	ExpertID   string
	Unanswered []entities.Question
	Answered   []entities.Question
}

// AssignmentBrief is what an allocated expert sees before answering.
type AssignmentBrief struct {
	Question         entities.Question
	Draft            string
	RejectionContext string
}

type Analytics struct {
	Total           int
	ByStatus        map[entities.QuestionStatus]int
	ByDomain        map[entities.Domain]int
	Duplicates      int
	RecentQuestions int
	Unstaffed       int
}

func (uc QuestionQueryUseCase) GetQuestion(ctx context.Context, questionID string) (entities.Question, error) {
	return uc.Questions.GetQuestion(ctx, strings.TrimSpace(questionID))
}

func (uc QuestionQueryUseCase) ListQuestions(ctx context.Context, filter ports.QuestionFilter) ([]entities.Question, error) {
	return uc.Questions.ListQuestions(ctx, filter)
}

func (uc QuestionQueryUseCase) FarmerQuestions(ctx context.Context, farmerID string) ([]entities.Question, error) {
	return uc.Questions.ListQuestions(ctx, ports.QuestionFilter{FarmerID: strings.TrimSpace(farmerID)})
}

func (uc QuestionQueryUseCase) ModeratorQueue(ctx context.Context) ([]ModeratorQueueItem, error) {
	questions, err := uc.Questions.ListQuestions(ctx, ports.QuestionFilter{
		Status: entities.QuestionStatusReadyForModerator,
	})
	if err != nil {
		return nil, err
	}
	items := make([]ModeratorQueueItem, 0, len(questions))
	for _, question := range questions {
		items = append(items, ModeratorQueueItem{
			Question:      question,
			RankedAnswers: services.RankAnswers(question.Answers),
		})
	}
	return items, nil
}

func (uc QuestionQueryUseCase) ExpertWorkload(ctx context.Context, expertID string) (ExpertWorkload, error) {
	expertID = strings.TrimSpace(expertID)
	questions, err := uc.Questions.ListQuestions(ctx, ports.QuestionFilter{ExpertID: expertID})
	if err != nil {
		return ExpertWorkload{}, err
	}
	workload := ExpertWorkload{ExpertID: expertID}
	for _, question := range questions {
		if !question.Status.AcceptsAnswers() && !question.Status.AcceptsVotes() {
			continue
		}
		if _, answered := question.AnswerByExpert(expertID); answered {
			workload.Answered = append(workload.Answered, question)
			continue
		}
		if question.Status.AcceptsAnswers() {
			workload.Unanswered = append(workload.Unanswered, question)
		}
	}
	return workload, nil
}

// AssignmentBrief returns the draft for the question's domain and, after a
// rejection, the briefing written for the new slate.
func (uc QuestionQueryUseCase) AssignmentBrief(ctx context.Context, questionID string) (AssignmentBrief, error) {
	question, err := uc.Questions.GetQuestion(ctx, strings.TrimSpace(questionID))
	if err != nil {
		return AssignmentBrief{}, err
	}
	brief := AssignmentBrief{
		Question: question,
		Draft:    services.DraftAnswer(question.Domain),
	}
	if n := len(question.RejectionHistory); n > 0 {
		brief.RejectionContext = question.RejectionHistory[n-1].Context
	}
	return brief, nil
}

// ExpertRanking lists eligible experts for a domain in allocation order.
func (uc QuestionQueryUseCase) ExpertRanking(ctx context.Context, domain entities.Domain) ([]services.ScoredExpert, error) {
	experts, err := uc.Experts.ListExperts(ctx)
	if err != nil {
		return nil, err
	}
	valid := make([]entities.Expert, 0, len(experts))
	for _, expert := range experts {
		if expert.Validate() == nil {
			valid = append(valid, expert)
		}
	}
	return services.RankExperts(domain, valid, nil), nil
}

func (uc QuestionQueryUseCase) Analytics(ctx context.Context) (Analytics, error) {
	questions, err := uc.Questions.ListQuestions(ctx, ports.QuestionFilter{})
	if err != nil {
		return Analytics{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	report := Analytics{
		Total:    len(questions),
		ByStatus: make(map[entities.QuestionStatus]int),
		ByDomain: make(map[entities.Domain]int),
	}
	for _, question := range questions {
		report.ByStatus[question.Status]++
		report.ByDomain[question.Domain]++
		if question.IsDuplicate {
			report.Duplicates++
		}
		if now.Sub(question.SubmittedAt) <= recentWindow {
			report.RecentQuestions++
		}
		if unstaffed(question) {
			report.Unstaffed++
		}
	}
	return report, nil
}

func unstaffed(question entities.Question) bool {
	switch question.Status {
	case entities.QuestionStatusPendingAllocation:
		return true
	case entities.QuestionStatusAllocated:
		return len(question.AllocatedExperts) == 0
	default:
		return false
	}
}
