package entities

import "time"

type Answer struct {
	AnswerID                 string
	QuestionID               string
	ExpertID                 string
	Content                  string
	QualityScore             int
	QualitySuggestions       []string
	Votes                    int
	VotedBy                  []string
	PeerVotes                int
	BestAnswerVoters         []string
	RequestedModeratorReview bool
	SubmittedAt              time.Time
	LastModifiedAt           time.Time
}

func (a Answer) Clone() Answer {
	out := a
	out.QualitySuggestions = cloneStrings(a.QualitySuggestions)
	out.VotedBy = cloneStrings(a.VotedBy)
	out.BestAnswerVoters = cloneStrings(a.BestAnswerVoters)
	return out
}

func (a Answer) HasQualityVoteFrom(expertID string) bool {
	return containsString(a.VotedBy, expertID)
}
