package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FollowUpSystemPrompt asks for the follow-up round as strict JSON.
func FollowUpSystemPrompt() string {
	return `You are a clinical intake assistant. Given a patient's questionnaire answers and the department they selected, produce at most 5 short follow-up questions that would help a doctor in that department. You must produce one valid JSON object only (no markdown, no commentary):

{"followup_questions": ["<string>", ...]}

Return an empty array when the answers already cover everything relevant. Never ask for personally identifying information.`
}

// FollowUpUserPrompt serialises the answers for the model.
func FollowUpUserPrompt(qna map[string]string, department string) string {
	return fmt.Sprintf("Department: %s\nAnswers:\n%s", department, formatQnA(qna))
}

// SummarySystemPrompt fixes the markdown shape the report views parse.
func SummarySystemPrompt() string {
	return `You are a clinical intake assistant preparing a pre-consultation summary for a doctor. Respond with markdown in exactly this shape and nothing else:

## Patient of <age> years old, <gender>
- **Symptoms:**
- <item>
- **Medications:**
- <item>
- **Family History:**
- <item>
- **Allergies:**
- <item>
- **Assumption based upon past cases:**
- <one-line assumption>
- Differential diagnoses:
- <diagnosis>
- <diagnosis>

Omit a section when the answers say nothing about it. Use "Unknown" for age or gender you cannot infer. This is intake triage, not a diagnosis; keep assumptions conservative.`
}

// SummaryUserPrompt serialises the combined answer rounds for the model.
func SummaryUserPrompt(qna map[string]string, department string) string {
	return fmt.Sprintf("Department: %s\nCombined questionnaire answers:\n%s", department, formatQnA(qna))
}

func formatQnA(qna map[string]string) string {
	b, err := json.MarshalIndent(qna, "", "  ")
	if err != nil {
		var sb strings.Builder
		for q, a := range qna {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", q, a)
		}
		return sb.String()
	}
	return string(b)
}
