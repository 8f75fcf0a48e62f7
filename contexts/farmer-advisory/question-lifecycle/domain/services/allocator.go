package services

import (
	"sort"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

// MaxAllocatedExperts caps how many experts answer a single question.
const MaxAllocatedExperts = 3

const (
	weightAccuracy     = 0.30
	weightAcceptance   = 0.25
	weightPeerVotes    = 0.20
	weightConsistency  = 0.15
	weightResponseTime = 0.10

	responseTimeBaselineHours = 10.0
)

// ScoreExpert ranks an expert for allocation. The response-time term goes
// negative for experts slower than the baseline and is intentionally left
// unclamped.
func ScoreExpert(expert entities.Expert) float64 {
	return expert.AccuracyScore*weightAccuracy +
		expert.ModeratorAcceptanceRate*weightAcceptance +
		(float64(expert.PeerVotesReceived)/2)*weightPeerVotes +
		expert.ConsistencyScore*weightConsistency +
		(responseTimeBaselineHours-expert.AverageResponseTimeHours)*2*weightResponseTime
}

type ScoredExpert struct {
	Expert entities.Expert
	Score  float64
}

// RankExperts returns every eligible expert for domain, best first. Equal
// scores keep pool order.
func RankExperts(domain entities.Domain, pool []entities.Expert, exclude map[string]struct{}) []ScoredExpert {
	ranked := make([]ScoredExpert, 0, len(pool))
	for _, expert := range pool {
		if !expert.Specializes(domain) {
			continue
		}
		if _, excluded := exclude[expert.ExpertID]; excluded {
			continue
		}
		ranked = append(ranked, ScoredExpert{Expert: expert, Score: ScoreExpert(expert)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Allocate picks up to MaxAllocatedExperts expert ids for domain. An empty
// result means nobody is available and must be handled by the caller.
func Allocate(domain entities.Domain, pool []entities.Expert, exclude map[string]struct{}) []string {
	ranked := RankExperts(domain, pool, exclude)
	if len(ranked) > MaxAllocatedExperts {
		ranked = ranked[:MaxAllocatedExperts]
	}
	ids := make([]string, 0, len(ranked))
	for _, item := range ranked {
		ids = append(ids, item.Expert.ExpertID)
	}
	return ids
}

// ExcludeSet builds an exclusion set from expert ids.
func ExcludeSet(ids ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range ids {
		for _, id := range group {
			set[id] = struct{}{}
		}
	}
	return set
}
