package services

import (
	"math"
	"sort"
	"strings"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

const (
	// DuplicateSimilarityThreshold is the exclusive lower bound, in percent,
	// for a corpus question to be reported as a duplicate.
	DuplicateSimilarityThreshold = 40.0
	// DuplicateMinTokenLength excludes short function words from overlap.
	DuplicateMinTokenLength = 3

	AnswerNotAvailable = "Answer not available"
)

// FindDuplicates returns approved questions in the same domain whose token
// overlap with text exceeds the similarity threshold, most similar first.
func FindDuplicates(text string, domain entities.Domain, corpus []entities.Question) []entities.DuplicateMatch {
	queryTokens := tokenize(text)
	if len(queryTokens) == 0 {
		return []entities.DuplicateMatch{}
	}

	matches := make([]entities.DuplicateMatch, 0)
	for _, candidate := range corpus {
		if candidate.Status != entities.QuestionStatusApproved || candidate.Domain != domain {
			continue
		}
		candidateText := candidate.CleanedText
		if strings.TrimSpace(candidateText) == "" {
			candidateText = candidate.RawText
		}
		similarity := tokenSimilarity(queryTokens, tokenize(candidateText))
		if similarity <= DuplicateSimilarityThreshold {
			continue
		}
		answer := AnswerNotAvailable
		if selected, ok := candidate.SelectedAnswer(); ok {
			answer = selected.Content
		}
		matches = append(matches, entities.DuplicateMatch{
			QuestionID: candidate.QuestionID,
			Question:   candidateText,
			Answer:     answer,
			Similarity: int(math.Round(similarity)),
			Domain:     candidate.Domain,
			AnsweredAt: candidate.ResolvedAt(),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func tokenSimilarity(query []string, candidate []string) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(candidate))
	for _, token := range candidate {
		present[token] = struct{}{}
	}
	common := 0
	for _, token := range query {
		if len(token) <= DuplicateMinTokenLength {
			continue
		}
		if _, ok := present[token]; ok {
			common++
		}
	}
	longest := len(query)
	if len(candidate) > longest {
		longest = len(candidate)
	}
	return float64(common) / float64(longest) * 100
}
