package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	SuggestionLocation = "Consider adding: Your location or region for more specific advice"
	SuggestionCropAge  = "Consider adding: Age of the crop (e.g., 30 days old, 2 months after sowing)"
	SuggestionOnset    = "Consider adding: When did this problem start?"
	SuggestionDetail   = "Consider adding: More details about the symptoms or situation"

	minDetailedQuestionLength = 50
)

var (
	locationPattern  = regexp.MustCompile(`(?i)location|region|state|district|village`)
	cropPattern      = regexp.MustCompile(`(?i)crop|plant`)
	cropAgePattern   = regexp.MustCompile(`(?i)age|month|day|week|year`)
	symptomPattern   = regexp.MustCompile(`(?i)yellow|wilt|spot|problem`)
	onsetPattern     = regexp.MustCompile(`(?i)when|how long|start`)
	urgencyPattern   = regexp.MustCompile(`(?i)urgent|emergency|immediate`)
	whitespaceRunsRe = regexp.MustCompile(`\s+`)
)

type NormalizedQuestion struct {
	CleanedText string
	Suggestions []string
}

// Normalize cleans farmer input for display and lists the details that would
// make the question easier to answer. Running it on its own output leaves the
// cleaned text unchanged.
func Normalize(raw string) NormalizedQuestion {
	collapsed := whitespaceRunsRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	return NormalizedQuestion{
		CleanedText: punctuate(capitalizeFirst(collapsed)),
		Suggestions: questionSuggestions(collapsed),
	}
}

func capitalizeFirst(text string) string {
	first, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	return string(unicode.ToUpper(first)) + text[size:]
}

func punctuate(text string) string {
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!") {
		return text
	}
	return text + "?"
}

func questionSuggestions(text string) []string {
	suggestions := make([]string, 0, 4)
	if !locationPattern.MatchString(text) {
		suggestions = append(suggestions, SuggestionLocation)
	}
	if cropPattern.MatchString(text) && !cropAgePattern.MatchString(text) {
		suggestions = append(suggestions, SuggestionCropAge)
	}
	if symptomPattern.MatchString(text) && !onsetPattern.MatchString(text) {
		suggestions = append(suggestions, SuggestionOnset)
	}
	if !urgencyPattern.MatchString(text) && utf8.RuneCountInString(text) < minDetailedQuestionLength {
		suggestions = append(suggestions, SuggestionDetail)
	}
	return suggestions
}
