package reports

import (
	"fmt"
	"strings"
)

// QnAItem is one answered question. Empty answers are allowed and pass
// through uninterpreted.
type QnAItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QnACategory groups questions the way the questionnaire presents them.
type QnACategory struct {
	Category string    `json:"category"`
	Items    []QnAItem `json:"items"`
}

// ValidateQnA rejects malformed answer sets at the service boundary instead
// of trusting the wire shape: every category needs a name, every item needs
// question text, and question texts must be unique across all categories.
func ValidateQnA(categories []QnACategory) error {
	if len(categories) == 0 {
		return fmt.Errorf("qna: no categories")
	}
	seen := make(map[string]bool)
	for _, cat := range categories {
		if strings.TrimSpace(cat.Category) == "" {
			return fmt.Errorf("qna: category with empty name")
		}
		for _, item := range cat.Items {
			q := strings.TrimSpace(item.Question)
			if q == "" {
				return fmt.Errorf("qna: empty question in category %q", cat.Category)
			}
			if seen[q] {
				return fmt.Errorf("qna: duplicate question %q", q)
			}
			seen[q] = true
		}
	}
	return nil
}

// FlattenQnA collapses the categorised answers into the flat
// question -> answer mapping the analysis backend expects.
func FlattenQnA(categories []QnACategory) map[string]string {
	out := make(map[string]string)
	for _, cat := range categories {
		for _, item := range cat.Items {
			out[item.Question] = item.Answer
		}
	}
	return out
}

// MergeQnA adds extra entries into base without overwriting existing keys.
// Question texts are distinct between the initial set and the follow-up
// round, so nothing is dropped in practice; on a collision the earlier
// answer wins.
func MergeQnA(base map[string]string, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for q, a := range base {
		out[q] = a
	}
	for q, a := range extra {
		if _, exists := out[q]; !exists {
			out[q] = a
		}
	}
	return out
}
