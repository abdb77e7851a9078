package questionnaire

import "github.com/tejxv/PULSE/internal/domain/reports"

// MaxFollowUpQuestions caps the single follow-up round.
const MaxFollowUpQuestions = 5

// Catalog returns the fixed initial question set. Clients render the form
// from this so the server stays the source of truth for question texts.
func Catalog() []reports.QnACategory {
	return []reports.QnACategory{
		{
			Category: "General",
			Items: []reports.QnAItem{
				{Question: "Purpose of Visit"},
				{Question: "What is your age and Sex?"},
				{Question: "What are your main symptoms and for how long have you been experiencing them?"},
				{Question: "Are you currently taking any medications? If so, what are they?"},
				{Question: "Are there any hereditary conditions in your family?"},
				{Question: "Do you have any known allergies?"},
			},
		},
	}
}
