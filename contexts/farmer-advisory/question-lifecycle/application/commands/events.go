package commands

import (
	"encoding/json"
	"time"

	contractsv1 "agrivote/contracts/gen/events/v1"
	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"
)

const sourceService = "question-lifecycle"

type pendingEvent struct {
	eventType string
	data      contractsv1.QuestionEventData
}

func newQuestionEnvelope(
	eventID string,
	eventType string,
	questionID string,
	occurredAt time.Time,
	data contractsv1.QuestionEventData,
) (ports.EventEnvelope, error) {
	// Partitioned by question so consumers see one question's events in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "question_id",
		PartitionKey:     questionID,
		Data:             payload,
	}, nil
}

func questionEvent(eventType string, question entities.Question) pendingEvent {
	return pendingEvent{
		eventType: eventType,
		data: contractsv1.QuestionEventData{
			QuestionID:       question.QuestionID,
			FarmerID:         question.FarmerID,
			Domain:           string(question.Domain),
			Status:           string(question.Status),
			AllocatedExperts: append([]string(nil), question.AllocatedExperts...),
			DuplicateOf:      question.DuplicateOf,
		},
	}
}

func (e pendingEvent) withAnswer(answerID string, expertID string) pendingEvent {
	e.data.AnswerID = answerID
	e.data.ExpertID = expertID
	return e
}

func (e pendingEvent) withActor(actorID string) pendingEvent {
	e.data.ActorID = actorID
	return e
}

func (e pendingEvent) withReason(reason string) pendingEvent {
	e.data.Reason = reason
	return e
}

func (e pendingEvent) withVotes(votes int) pendingEvent {
	e.data.Votes = &votes
	return e
}

func (e pendingEvent) withPreviousStatus(status entities.QuestionStatus) pendingEvent {
	e.data.PreviousStatus = string(status)
	return e
}

// allocationEvent reports the result of an allocation round, including the
// empty slate that needs human follow-up.
func allocationEvent(question entities.Question) pendingEvent {
	if len(question.AllocatedExperts) == 0 {
		return questionEvent(contractsv1.QuestionAllocationEmpty, question)
	}
	return questionEvent(contractsv1.QuestionAllocated, question)
}
