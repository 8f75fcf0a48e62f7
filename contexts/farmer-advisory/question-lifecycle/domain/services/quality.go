package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	baseQualityScore = 50
	maxQualityScore  = 100

	QualitySuggestionExpand    = "Consider expanding your answer with more details"
	QualitySuggestionMeasure   = "Add specific measurements, dosages, or timeframes where applicable"
	QualitySuggestionStructure = "Structure your answer in clear steps for easy implementation"
	QualitySuggestionSafety    = "Include safety precautions or important warnings if relevant"
	QualitySuggestionSentences = "Break down complex information into multiple sentences"
)

var (
	measurementPattern   = regexp.MustCompile(`(?i)\d+\s*(kg|gram|liter|ml|hectare|meter|day|week|month|%)`)
	stepPattern          = regexp.MustCompile(`(?i)step|first|second|1\.|2\.|3\.`)
	cautionPattern       = regexp.MustCompile(`(?i)caution|warning|avoid|ensure|important|note:`)
	alternativePattern   = regexp.MustCompile(`(?i)\b(alternatively|or|also|additionally)\b`)
	digitPattern         = regexp.MustCompile(`\d`)
	structureHintPattern = regexp.MustCompile(`(?i)step|first|second|then|finally|:|1|2|3`)
	safetyHintPattern    = regexp.MustCompile(`(?i)caution|warning|note|avoid|ensure|important`)
)

// ScoreAnswer rates answer text from 0 to 100. Every signal only adds
// points, so extending an answer never lowers its score.
func ScoreAnswer(text string) int {
	score := baseQualityScore
	length := utf8.RuneCountInString(text)
	switch {
	case length > 200:
		score += 15
	case length > 100:
		score += 10
	case length > 50:
		score += 5
	}
	if measurementPattern.MatchString(text) {
		score += 10
	}
	if stepPattern.MatchString(text) {
		score += 10
	}
	if cautionPattern.MatchString(text) {
		score += 8
	}
	if alternativePattern.MatchString(text) {
		score += 7
	}
	if score > maxQualityScore {
		score = maxQualityScore
	}
	return score
}

func SuggestQualityImprovements(text string) []string {
	suggestions := make([]string, 0, 5)
	if utf8.RuneCountInString(text) < 100 {
		suggestions = append(suggestions, QualitySuggestionExpand)
	}
	if !digitPattern.MatchString(text) {
		suggestions = append(suggestions, QualitySuggestionMeasure)
	}
	if !structureHintPattern.MatchString(text) {
		suggestions = append(suggestions, QualitySuggestionStructure)
	}
	if !safetyHintPattern.MatchString(text) {
		suggestions = append(suggestions, QualitySuggestionSafety)
	}
	if len(strings.Split(text, ".")) < 3 {
		suggestions = append(suggestions, QualitySuggestionSentences)
	}
	return suggestions
}
