package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"

	"gorm.io/datatypes"
)

type questionModel struct {
	ID               string         `gorm:"column:id;primaryKey"`
	FarmerID         string         `gorm:"column:farmer_id"`
	RawText          string         `gorm:"column:raw_text"`
	CleanedText      string         `gorm:"column:cleaned_text"`
	Suggestions      datatypes.JSON `gorm:"column:suggestions;type:jsonb"`
	Domain           string         `gorm:"column:domain"`
	Status           string         `gorm:"column:status"`
	AllocatedExperts datatypes.JSON `gorm:"column:allocated_experts;type:jsonb"`
	Answers          datatypes.JSON `gorm:"column:answers;type:jsonb"`
	PeerReviews      datatypes.JSON `gorm:"column:peer_reviews;type:jsonb"`
	ModeratorReview  datatypes.JSON `gorm:"column:moderator_review;type:jsonb"`
	RejectionHistory datatypes.JSON `gorm:"column:rejection_history;type:jsonb"`
	IsDuplicate      bool           `gorm:"column:is_duplicate"`
	DuplicateOf      string         `gorm:"column:duplicate_of"`
	Version          int64          `gorm:"column:version"`
	SubmittedAt      time.Time      `gorm:"column:submitted_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
}

func (questionModel) TableName() string {
	return "questions"
}

type answerRecord struct {
	AnswerID                 string    `json:"answer_id"`
	ExpertID                 string    `json:"expert_id"`
	Content                  string    `json:"content"`
	QualityScore             int       `json:"quality_score"`
	QualitySuggestions       []string  `json:"quality_suggestions"`
	Votes                    int       `json:"votes"`
	VotedBy                  []string  `json:"voted_by"`
	PeerVotes                int       `json:"peer_votes"`
	BestAnswerVoters         []string  `json:"best_answer_voters"`
	RequestedModeratorReview bool      `json:"requested_moderator_review"`
	SubmittedAt              time.Time `json:"submitted_at"`
	LastModifiedAt           time.Time `json:"last_modified_at"`
}

type peerReviewRecord struct {
	ReviewID       string    `json:"review_id"`
	ReviewerID     string    `json:"reviewer_id"`
	AnswerID       string    `json:"answer_id"`
	BestAnswerVote bool      `json:"best_answer_vote"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type moderatorReviewRecord struct {
	ModeratorID      string    `json:"moderator_id"`
	Decision         string    `json:"decision"`
	Feedback         string    `json:"feedback"`
	ReviewedAt       time.Time `json:"reviewed_at"`
	SelectedAnswerID string    `json:"selected_answer_id,omitempty"`
}

type rejectionRecord struct {
	Attempt    int       `json:"attempt"`
	ExpertIDs  []string  `json:"expert_ids"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
	Context    string    `json:"context"`
}

func questionModelFromEntity(question entities.Question) (questionModel, error) {
	row := questionModel{
		ID:          strings.TrimSpace(question.QuestionID),
		FarmerID:    strings.TrimSpace(question.FarmerID),
		RawText:     question.RawText,
		CleanedText: question.CleanedText,
		Domain:      string(question.Domain),
		Status:      string(question.Status),
		IsDuplicate: question.IsDuplicate,
		DuplicateOf: strings.TrimSpace(question.DuplicateOf),
		Version:     question.Version,
		SubmittedAt: question.SubmittedAt.UTC(),
		UpdatedAt:   question.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.SubmittedAt
	}

	answers := make([]answerRecord, 0, len(question.Answers))
	for _, answer := range question.Answers {
		answers = append(answers, answerRecord{
			AnswerID:                 answer.AnswerID,
			ExpertID:                 answer.ExpertID,
			Content:                  answer.Content,
			QualityScore:             answer.QualityScore,
			QualitySuggestions:       nonNilStrings(answer.QualitySuggestions),
			Votes:                    answer.Votes,
			VotedBy:                  nonNilStrings(answer.VotedBy),
			PeerVotes:                answer.PeerVotes,
			BestAnswerVoters:         nonNilStrings(answer.BestAnswerVoters),
			RequestedModeratorReview: answer.RequestedModeratorReview,
			SubmittedAt:              answer.SubmittedAt.UTC(),
			LastModifiedAt:           answer.LastModifiedAt.UTC(),
		})
	}
	reviews := make([]peerReviewRecord, 0, len(question.PeerReviews))
	for _, review := range question.PeerReviews {
		reviews = append(reviews, peerReviewRecord{
			ReviewID:       review.ReviewID,
			ReviewerID:     review.ReviewerID,
			AnswerID:       review.AnswerID,
			BestAnswerVote: review.BestAnswerVote,
			Comment:        review.Comment,
			CreatedAt:      review.CreatedAt.UTC(),
		})
	}
	history := make([]rejectionRecord, 0, len(question.RejectionHistory))
	for _, item := range question.RejectionHistory {
		history = append(history, rejectionRecord{
			Attempt:    item.Attempt,
			ExpertIDs:  nonNilStrings(item.ExpertIDs),
			Reason:     item.Reason,
			RejectedAt: item.RejectedAt.UTC(),
			Context:    item.Context,
		})
	}

	var err error
	if row.Suggestions, err = encodeJSON(nonNilStrings(question.Suggestions)); err != nil {
		return questionModel{}, err
	}
	if row.AllocatedExperts, err = encodeJSON(nonNilStrings(question.AllocatedExperts)); err != nil {
		return questionModel{}, err
	}
	if row.Answers, err = encodeJSON(answers); err != nil {
		return questionModel{}, err
	}
	if row.PeerReviews, err = encodeJSON(reviews); err != nil {
		return questionModel{}, err
	}
	if row.RejectionHistory, err = encodeJSON(history); err != nil {
		return questionModel{}, err
	}
	if review := question.ModeratorReview; review != nil {
		row.ModeratorReview, err = encodeJSON(moderatorReviewRecord{
			ModeratorID:      review.ModeratorID,
			Decision:         string(review.Decision),
			Feedback:         review.Feedback,
			ReviewedAt:       review.ReviewedAt.UTC(),
			SelectedAnswerID: review.SelectedAnswerID,
		})
		if err != nil {
			return questionModel{}, err
		}
	}
	return row, nil
}

func (m questionModel) toEntity() (entities.Question, error) {
	question := entities.Question{
		QuestionID:  m.ID,
		FarmerID:    m.FarmerID,
		RawText:     m.RawText,
		CleanedText: m.CleanedText,
		Domain:      entities.Domain(m.Domain),
		Status:      entities.QuestionStatus(m.Status),
		IsDuplicate: m.IsDuplicate,
		DuplicateOf: m.DuplicateOf,
		Version:     m.Version,
		SubmittedAt: m.SubmittedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}

	var (
		answers []answerRecord
		reviews []peerReviewRecord
		history []rejectionRecord
	)
	if err := decodeJSON(m.Suggestions, &question.Suggestions); err != nil {
		return entities.Question{}, err
	}
	if err := decodeJSON(m.AllocatedExperts, &question.AllocatedExperts); err != nil {
		return entities.Question{}, err
	}
	if err := decodeJSON(m.Answers, &answers); err != nil {
		return entities.Question{}, err
	}
	if err := decodeJSON(m.PeerReviews, &reviews); err != nil {
		return entities.Question{}, err
	}
	if err := decodeJSON(m.RejectionHistory, &history); err != nil {
		return entities.Question{}, err
	}
	if len(m.ModeratorReview) > 0 && string(m.ModeratorReview) != "null" {
		var review moderatorReviewRecord
		if err := json.Unmarshal(m.ModeratorReview, &review); err != nil {
			return entities.Question{}, err
		}
		question.ModeratorReview = &entities.ModeratorReview{
			ModeratorID:      review.ModeratorID,
			Decision:         entities.ModeratorDecision(review.Decision),
			Feedback:         review.Feedback,
			ReviewedAt:       review.ReviewedAt.UTC(),
			SelectedAnswerID: review.SelectedAnswerID,
		}
	}

	question.AllocatedExperts = nonNilStrings(question.AllocatedExperts)
	question.Answers = make([]entities.Answer, 0, len(answers))
	for _, answer := range answers {
		question.Answers = append(question.Answers, entities.Answer{
			AnswerID:                 answer.AnswerID,
			QuestionID:               m.ID,
			ExpertID:                 answer.ExpertID,
			Content:                  answer.Content,
			QualityScore:             answer.QualityScore,
			QualitySuggestions:       answer.QualitySuggestions,
			Votes:                    answer.Votes,
			VotedBy:                  nonNilStrings(answer.VotedBy),
			PeerVotes:                answer.PeerVotes,
			BestAnswerVoters:         nonNilStrings(answer.BestAnswerVoters),
			RequestedModeratorReview: answer.RequestedModeratorReview,
			SubmittedAt:              answer.SubmittedAt.UTC(),
			LastModifiedAt:           answer.LastModifiedAt.UTC(),
		})
	}
	for _, review := range reviews {
		question.PeerReviews = append(question.PeerReviews, entities.PeerReview{
			ReviewID:       review.ReviewID,
			ReviewerID:     review.ReviewerID,
			AnswerID:       review.AnswerID,
			BestAnswerVote: review.BestAnswerVote,
			Comment:        review.Comment,
			CreatedAt:      review.CreatedAt.UTC(),
		})
	}
	for _, item := range history {
		question.RejectionHistory = append(question.RejectionHistory, entities.RejectionHistory{
			Attempt:    item.Attempt,
			ExpertIDs:  item.ExpertIDs,
			Reason:     item.Reason,
			RejectedAt: item.RejectedAt.UTC(),
			Context:    item.Context,
		})
	}
	return question, nil
}

type expertModel struct {
	ExpertID                 string         `gorm:"column:expert_id;primaryKey"`
	Name                     string         `gorm:"column:name"`
	Specializations          datatypes.JSON `gorm:"column:specializations;type:jsonb"`
	AccuracyScore            float64        `gorm:"column:accuracy_score"`
	ModeratorAcceptanceRate  float64        `gorm:"column:moderator_acceptance_rate"`
	PeerVotesReceived        int            `gorm:"column:peer_votes_received"`
	ConsistencyScore         float64        `gorm:"column:consistency_score"`
	AverageResponseTimeHours float64        `gorm:"column:average_response_time_hours"`
	Active                   bool           `gorm:"column:active"`
	CreatedAt                time.Time      `gorm:"column:created_at"`
	UpdatedAt                time.Time      `gorm:"column:updated_at"`
}

func (expertModel) TableName() string {
	return "expert_profiles"
}

func expertModelFromEntity(expert entities.Expert, now time.Time) (expertModel, error) {
	specializations := make([]string, 0, len(expert.Specializations))
	for _, item := range expert.Specializations {
		specializations = append(specializations, string(item))
	}
	encoded, err := encodeJSON(specializations)
	if err != nil {
		return expertModel{}, err
	}
	return expertModel{
		ExpertID:                 strings.TrimSpace(expert.ExpertID),
		Name:                     strings.TrimSpace(expert.Name),
		Specializations:          encoded,
		AccuracyScore:            expert.AccuracyScore,
		ModeratorAcceptanceRate:  expert.ModeratorAcceptanceRate,
		PeerVotesReceived:        expert.PeerVotesReceived,
		ConsistencyScore:         expert.ConsistencyScore,
		AverageResponseTimeHours: expert.AverageResponseTimeHours,
		Active:                   true,
		CreatedAt:                now.UTC(),
		UpdatedAt:                now.UTC(),
	}, nil
}

func (m expertModel) toEntity() (entities.Expert, error) {
	var specializations []string
	if err := decodeJSON(m.Specializations, &specializations); err != nil {
		return entities.Expert{}, err
	}
	domains := make([]entities.Domain, 0, len(specializations))
	for _, item := range specializations {
		domains = append(domains, entities.Domain(item))
	}
	return entities.Expert{
		ExpertID:                 m.ExpertID,
		Name:                     m.Name,
		Specializations:          domains,
		AccuracyScore:            m.AccuracyScore,
		ModeratorAcceptanceRate:  m.ModeratorAcceptanceRate,
		PeerVotesReceived:        m.PeerVotesReceived,
		ConsistencyScore:         m.ConsistencyScore,
		AverageResponseTimeHours: m.AverageResponseTimeHours,
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	Seq          int64      `gorm:"column:seq;autoIncrement"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "question_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "question_event_dedup"
}

func encodeJSON(value any) (datatypes.JSON, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

func decodeJSON(raw datatypes.JSON, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, target)
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return append([]string(nil), items...)
}
