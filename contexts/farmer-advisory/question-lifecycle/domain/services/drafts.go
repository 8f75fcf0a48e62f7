package services

import (
	"fmt"
	"strings"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
)

var answerDrafts = map[entities.Domain]string{
	entities.DomainCrop:       "Based on your question about crop management, consider the following: 1) Assess the current growth stage of your crop, 2) Check soil moisture and nutrient levels, 3) Ensure proper spacing and sunlight exposure. Please provide more specific details about your crop type and symptoms for targeted advice.",
	entities.DomainSoil:       "For soil-related concerns: 1) Conduct a soil pH test (ideal range is 6.0-7.5 for most crops), 2) Check for proper drainage, 3) Consider adding organic matter like compost to improve soil structure. Soil testing labs can provide detailed nutrient analysis.",
	entities.DomainIrrigation: "Regarding irrigation: 1) Assess your current water source and availability, 2) Consider drip irrigation for water efficiency, 3) Water during early morning or late evening to reduce evaporation. Adjust frequency based on crop type, soil type, and weather conditions.",
	entities.DomainPest:       "For pest management: 1) Identify the specific pest (check for visible insects, damage patterns), 2) Use integrated pest management (IPM) - start with cultural and biological controls, 3) If necessary, apply appropriate pesticides following recommended dosages. Regular monitoring is key.",
	entities.DomainDisease:    "For disease management: 1) Identify symptoms (leaf spots, wilting, discoloration), 2) Remove and destroy infected plant parts, 3) Improve air circulation and reduce moisture on leaves, 4) Apply appropriate fungicides if needed. Prevention through crop rotation and resistant varieties is important.",
	entities.DomainFertilizer: "Regarding fertilizer application: 1) Conduct soil testing to determine nutrient deficiencies, 2) Apply balanced NPK based on crop requirements, 3) Consider organic options like compost or vermicompost, 4) Follow recommended dosages and timing. Avoid over-fertilization which can harm crops.",
	entities.DomainMachinery:  "For machinery and equipment: 1) Ensure regular maintenance and servicing, 2) Check for proper functioning of all parts, 3) Follow manufacturer guidelines for operation, 4) Consider local mechanics or service centers for repairs. Proper storage extends equipment life.",
	entities.DomainSubsidy:    "Regarding subsidies and schemes: 1) Check with your local agriculture office for available programs, 2) Ensure you have necessary documents (land records, Aadhaar, bank details), 3) Apply within specified deadlines, 4) Follow up regularly on application status. Many schemes are available for small and marginal farmers.",
}

// DraftAnswer returns the starter text offered to experts for a domain.
// Unknown domains get the general crop draft.
func DraftAnswer(domain entities.Domain) string {
	if draft, ok := answerDrafts[domain]; ok {
		return draft
	}
	return answerDrafts[entities.DomainCrop]
}

type rejectionReason struct {
	keywords []string
	analysis string
}

var rejectionReasons = []rejectionReason{
	{[]string{"incomplete", "missing"}, "- Previous answer lacked sufficient detail or missed key aspects"},
	{[]string{"inaccurate", "incorrect"}, "- Previous answer contained factual errors or outdated information"},
	{[]string{"vague", "unclear"}, "- Previous answer was not specific enough or lacked clear guidance"},
	{[]string{"safety", "risk"}, "- Previous answer did not adequately address safety concerns"},
}

const defaultRejectionAnalysis = "- Previous answer did not meet quality standards"

// AnalyzeRejection maps moderator feedback to a short diagnosis line.
func AnalyzeRejection(feedback string) string {
	lower := strings.ToLower(feedback)
	for _, reason := range rejectionReasons {
		for _, keyword := range reason.keywords {
			if strings.Contains(lower, keyword) {
				return reason.analysis
			}
		}
	}
	return defaultRejectionAnalysis
}

// RejectionContext is the briefing handed to the next expert slate after a
// moderator rejection.
func RejectionContext(question string, answerCount int, feedback string) string {
	var b strings.Builder
	b.WriteString("CONTEXT FOR NEW EXPERT ASSIGNMENT:\n\n")
	fmt.Fprintf(&b, "Original Question: %s\n\n", question)
	b.WriteString("Previous Attempt Summary:\n")
	fmt.Fprintf(&b, "- %d expert(s) provided answers\n", answerCount)
	fmt.Fprintf(&b, "- Moderator rejected with feedback: \"%s\"\n\n", feedback)
	b.WriteString("What went wrong:\n")
	b.WriteString(AnalyzeRejection(feedback))
	b.WriteString("\n\nWhat the new answer needs:\n")
	b.WriteString("- Address the moderator's concerns directly\n")
	b.WriteString("- Provide more specific, actionable advice\n")
	b.WriteString("- Include proper measurements and timeframes\n")
	b.WriteString("- Ensure accuracy and safety considerations\n")
	b.WriteString("- Be comprehensive yet practical\n\n")
	b.WriteString("This is your opportunity to provide the best possible answer to help the farmer.")
	return b.String()
}
