package entities

import "time"

type Domain string

const (
	DomainCrop       Domain = "crop"
	DomainSoil       Domain = "soil"
	DomainIrrigation Domain = "irrigation"
	DomainPest       Domain = "pest"
	DomainDisease    Domain = "disease"
	DomainFertilizer Domain = "fertilizer"
	DomainMachinery  Domain = "machinery"
	DomainSubsidy    Domain = "subsidy"
)

// Domains lists every routing tag in display order.
var Domains = []Domain{
	DomainCrop,
	DomainSoil,
	DomainIrrigation,
	DomainPest,
	DomainDisease,
	DomainFertilizer,
	DomainMachinery,
	DomainSubsidy,
}

func (d Domain) Valid() bool {
	for _, item := range Domains {
		if item == d {
			return true
		}
	}
	return false
}

type QuestionStatus string

const (
	QuestionStatusPendingAllocation QuestionStatus = "pending_allocation"
	QuestionStatusAllocated         QuestionStatus = "allocated"
	QuestionStatusInReview          QuestionStatus = "in_review"
	QuestionStatusReadyForModerator QuestionStatus = "ready_for_moderator"
	QuestionStatusApproved          QuestionStatus = "approved"
	QuestionStatusRejected          QuestionStatus = "rejected"
	QuestionStatusReallocated       QuestionStatus = "reallocated"
	QuestionStatusDuplicate         QuestionStatus = "duplicate"
)

// AcceptsAnswers reports whether allocated experts may still post answers.
func (s QuestionStatus) AcceptsAnswers() bool {
	return s == QuestionStatusAllocated || s == QuestionStatusInReview
}

// AcceptsVotes reports whether peer voting is open.
func (s QuestionStatus) AcceptsVotes() bool {
	return s == QuestionStatusInReview || s == QuestionStatusReadyForModerator
}

func (s QuestionStatus) Terminal() bool {
	return s == QuestionStatusApproved || s == QuestionStatusDuplicate || s == QuestionStatusRejected
}

type ModeratorDecision string

const (
	ModeratorDecisionApproved ModeratorDecision = "approved"
	ModeratorDecisionRejected ModeratorDecision = "rejected"
)

type ModeratorReview struct {
	ModeratorID      string
	Decision         ModeratorDecision
	Feedback         string
	ReviewedAt       time.Time
	SelectedAnswerID string
}

type RejectionHistory struct {
	Attempt    int
	ExpertIDs  []string
	Reason     string
	RejectedAt time.Time
	Context    string
}

type PeerReview struct {
	ReviewID       string
	ReviewerID     string
	AnswerID       string
	BestAnswerVote bool
	Comment        string
	CreatedAt      time.Time
}

// DuplicateMatch is a previously approved question that overlaps a new one.
type DuplicateMatch struct {
	QuestionID string
	Question   string
	Answer     string
	Similarity int
	Domain     Domain
	AnsweredAt time.Time
}

// Question is the aggregate root of the advisory workflow. Answers, peer
// reviews and rejection history are owned by it and are only changed through
// the lifecycle services.
type Question struct {
	QuestionID       string
	FarmerID         string
	RawText          string
	CleanedText      string
	Suggestions      []string
	Domain           Domain
	Status           QuestionStatus
	SubmittedAt      time.Time
	UpdatedAt        time.Time
	AllocatedExperts []string
	Answers          []Answer
	PeerReviews      []PeerReview
	ModeratorReview  *ModeratorReview
	RejectionHistory []RejectionHistory
	IsDuplicate      bool
	DuplicateOf      string
	Version          int64
}

// Clone returns a deep copy so callers can derive a new snapshot without
// sharing slices with the original.
func (q Question) Clone() Question {
	out := q
	out.Suggestions = cloneStrings(q.Suggestions)
	out.AllocatedExperts = cloneStrings(q.AllocatedExperts)
	if q.Answers != nil {
		out.Answers = make([]Answer, 0, len(q.Answers))
		for _, answer := range q.Answers {
			out.Answers = append(out.Answers, answer.Clone())
		}
	}
	if q.PeerReviews != nil {
		out.PeerReviews = append([]PeerReview(nil), q.PeerReviews...)
	}
	if q.ModeratorReview != nil {
		review := *q.ModeratorReview
		out.ModeratorReview = &review
	}
	if q.RejectionHistory != nil {
		out.RejectionHistory = make([]RejectionHistory, 0, len(q.RejectionHistory))
		for _, entry := range q.RejectionHistory {
			entry.ExpertIDs = cloneStrings(entry.ExpertIDs)
			out.RejectionHistory = append(out.RejectionHistory, entry)
		}
	}
	return out
}

func (q Question) IsAllocated(expertID string) bool {
	return containsString(q.AllocatedExperts, expertID)
}

func (q Question) AnswerIndex(answerID string) int {
	for i := range q.Answers {
		if q.Answers[i].AnswerID == answerID {
			return i
		}
	}
	return -1
}

func (q Question) AnswerByExpert(expertID string) (Answer, bool) {
	for _, answer := range q.Answers {
		if answer.ExpertID == expertID {
			return answer, true
		}
	}
	return Answer{}, false
}

// SelectedAnswer returns the answer chosen by the approving moderator.
func (q Question) SelectedAnswer() (Answer, bool) {
	if q.ModeratorReview == nil || q.ModeratorReview.SelectedAnswerID == "" {
		return Answer{}, false
	}
	idx := q.AnswerIndex(q.ModeratorReview.SelectedAnswerID)
	if idx < 0 {
		return Answer{}, false
	}
	return q.Answers[idx], true
}

// ResolvedAt is the moderator review time, falling back to submission time.
func (q Question) ResolvedAt() time.Time {
	if q.ModeratorReview != nil && !q.ModeratorReview.ReviewedAt.IsZero() {
		return q.ModeratorReview.ReviewedAt
	}
	return q.SubmittedAt
}

func cloneStrings(items []string) []string {
	if items == nil {
		return nil
	}
	return append([]string(nil), items...)
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
