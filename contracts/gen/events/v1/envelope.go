package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event envelope shared by producers and consumers.
// Fields may be added but never renamed or removed.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Question lifecycle topics. Events are partitioned by question_id.
const (
	QuestionSubmitted            = "question.submitted"
	QuestionMarkedDuplicate      = "question.marked_duplicate"
	QuestionAllocated            = "question.allocated"
	QuestionAllocationEmpty      = "question.allocation_empty"
	AnswerSubmitted              = "answer.submitted"
	AnswerEdited                 = "answer.edited"
	AnswerQualityVoteToggled     = "answer.quality_vote_toggled"
	AnswerBestVoteCast           = "answer.best_vote_cast"
	AnswerModeratorReviewRequest = "answer.moderator_review_requested"
	QuestionReadyForModerator    = "question.ready_for_moderator"
	QuestionApproved             = "question.approved"
	QuestionReallocated          = "question.reallocated"
	QuestionClosed               = "question.closed"
	QuestionReopened             = "question.reopened"
)

// Expert directory topic consumed by the question lifecycle.
const ExpertProfileUpdated = "expert.profile.updated"

// QuestionEventData is the payload carried by every question.* and answer.*
// event.
type QuestionEventData struct {
	QuestionID       string   `json:"question_id"`
	FarmerID         string   `json:"farmer_id"`
	Domain           string   `json:"domain"`
	Status           string   `json:"status"`
	PreviousStatus   string   `json:"previous_status,omitempty"`
	AllocatedExperts []string `json:"allocated_experts,omitempty"`
	AnswerID         string   `json:"answer_id,omitempty"`
	ExpertID         string   `json:"expert_id,omitempty"`
	ActorID          string   `json:"actor_id,omitempty"`
	Votes            *int     `json:"votes,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	DuplicateOf      string   `json:"duplicate_of,omitempty"`
}

// ExpertProfileData is the payload of expert.profile.updated.
type ExpertProfileData struct {
	ExpertID                 string   `json:"expert_id"`
	Name                     string   `json:"name"`
	Specializations          []string `json:"specializations"`
	AccuracyScore            float64  `json:"accuracy_score"`
	ModeratorAcceptanceRate  float64  `json:"moderator_acceptance_rate"`
	PeerVotesReceived        int      `json:"peer_votes_received"`
	ConsistencyScore         float64  `json:"consistency_score"`
	AverageResponseTimeHours float64  `json:"average_response_time_hours"`
	Active                   *bool    `json:"active,omitempty"`
}
