package analysis

import "context"

// SummaryRequest carries everything the backend needs to produce the final
// analysis text.
type SummaryRequest struct {
	UserID     string
	QnA        map[string]string
	DocIDs     []string
	Department string
}

// Backend is the port to the external analysis service. Calls block until a
// response or failure arrives; no retry happens at this layer.
type Backend interface {
	// FollowUpQuestions returns the follow-up round for the given answers.
	// An empty slice is a valid answer meaning the backend has nothing to ask.
	FollowUpQuestions(ctx context.Context, qna map[string]string, department string) ([]string, error)

	// Summarize returns the analysis markdown for the combined answers.
	Summarize(ctx context.Context, req SummaryRequest) (string, error)

	// DoctorMapping resolves the doctor assignment for a visit.
	DoctorMapping(ctx context.Context, visitID string) (map[string]any, error)
}
