package services

import (
	"sort"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

// RankAnswers orders answers for the moderator: quality score first, then
// quality votes. The input slice is not modified.
func RankAnswers(answers []entities.Answer) []entities.Answer {
	ranked := make([]entities.Answer, 0, len(answers))
	for _, answer := range answers {
		ranked = append(ranked, answer.Clone())
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QualityScore != ranked[j].QualityScore {
			return ranked[i].QualityScore > ranked[j].QualityScore
		}
		return ranked[i].Votes > ranked[j].Votes
	})
	return ranked
}
