package services

import (
	"regexp"
	"strings"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

type classificationRule struct {
	domain  entities.Domain
	pattern *regexp.Regexp
}

// Rule order matters: a question mentioning both "water" and "pest" is a pest
// question because pest is evaluated first.
var classificationRules = []classificationRule{
	{entities.DomainPest, regexp.MustCompile(`pest|insect|bug|worm|locust|aphid`)},
	{entities.DomainDisease, regexp.MustCompile(`disease|fungus|rot|blight|wilt|yellow|brown spot`)},
	{entities.DomainIrrigation, regexp.MustCompile(`water|irrigat|drip|sprinkler|flood|drain`)},
	{entities.DomainFertilizer, regexp.MustCompile(`fertilizer|nutrient|npk|urea|compost|manure`)},
	{entities.DomainSoil, regexp.MustCompile(`soil|clay|sandy|ph|testing|erosion`)},
	{entities.DomainMachinery, regexp.MustCompile(`tractor|machine|equipment|tool|pump|harvester`)},
	{entities.DomainSubsidy, regexp.MustCompile(`subsidy|scheme|loan|government|assistance|support`)},
}

// Classify maps free question text to a routing domain. Text that matches no
// rule is a general crop question.
func Classify(text string) entities.Domain {
	lower := strings.ToLower(text)
	for _, rule := range classificationRules {
		if rule.pattern.MatchString(lower) {
			return rule.domain
		}
	}
	return entities.DomainCrop
}
