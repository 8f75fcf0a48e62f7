package errors

import "errors"

var (
	ErrInvalidQuestionInput    = errors.New("invalid question input")
	ErrInvalidAnswerInput      = errors.New("answer content is required")
	ErrQuestionNotFound        = errors.New("question not found")
	ErrAnswerNotFound          = errors.New("answer not found")
	ErrAnswerAlreadySubmitted  = errors.New("expert already answered this question")
	ErrExpertNotAllocated      = errors.New("expert is not allocated to this question")
	ErrNotAnswerAuthor         = errors.New("only the answer author can perform this action")
	ErrReviewAlreadyRequested  = errors.New("moderator review already requested for answer")
	ErrInvalidStatusTransition = errors.New("invalid question status transition")
	ErrFeedbackRequired        = errors.New("moderator feedback is required")
	ErrAnswerSelectionRequired = errors.New("an answer must be selected for approval")
	ErrModeratorRequired       = errors.New("moderator id is required")
	ErrVoterRequired           = errors.New("voter id is required")
	ErrInvalidExpert           = errors.New("invalid expert profile")
	ErrExpertNotFound          = errors.New("expert not found")
	ErrConcurrentUpdate        = errors.New("question was modified concurrently")
	ErrLockNotAcquired         = errors.New("question lock not acquired")
	ErrConflict                = errors.New("question conflict")
)
