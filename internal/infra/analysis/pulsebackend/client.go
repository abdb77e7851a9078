package pulsebackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tejxv/PULSE/internal/domain/analysis"
)

// Client speaks JSON over HTTP to the hosted analysis API. Requests carry
// no client-side timeout: a call either resolves or the caller goes away
// with its context.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// FollowUpQuestions implements analysis.Backend.
// POST /get_followup_questions {qna, department} -> {success, followup_questions}
func (c *Client) FollowUpQuestions(ctx context.Context, qna map[string]string, department string) ([]string, error) {
	body := struct {
		QnA        map[string]string `json:"qna"`
		Department string            `json:"department"`
	}{QnA: qna, Department: department}

	var resp struct {
		Success           *bool     `json:"success"`
		FollowUpQuestions *[]string `json:"followup_questions"`
	}
	if err := c.post(ctx, "/get_followup_questions", body, &resp); err != nil {
		return nil, err
	}
	// The questions array missing (not merely empty) is a malformed response
	if resp.Success == nil || !*resp.Success || resp.FollowUpQuestions == nil {
		return nil, fmt.Errorf("%w: get_followup_questions", analysis.ErrBadResponse)
	}
	return *resp.FollowUpQuestions, nil
}

// Summarize implements analysis.Backend.
// POST /get_summary {user_id, qna, doc_id, department} -> {analysis}
func (c *Client) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	docIDs := req.DocIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	body := struct {
		UserID     string            `json:"user_id"`
		QnA        map[string]string `json:"qna"`
		DocID      []string          `json:"doc_id"`
		Department string            `json:"department"`
	}{UserID: req.UserID, QnA: req.QnA, DocID: docIDs, Department: req.Department}

	var resp struct {
		Analysis *string `json:"analysis"`
	}
	if err := c.post(ctx, "/get_summary", body, &resp); err != nil {
		return "", err
	}
	if resp.Analysis == nil {
		return "", fmt.Errorf("%w: get_summary", analysis.ErrBadResponse)
	}
	return *resp.Analysis, nil
}

// DoctorMapping implements analysis.Backend.
// POST /get_doctor_mapping {visit_id} -> {success, doctor_mapping}
func (c *Client) DoctorMapping(ctx context.Context, visitID string) (map[string]any, error) {
	body := struct {
		VisitID string `json:"visit_id"`
	}{VisitID: visitID}

	var resp struct {
		Success       *bool          `json:"success"`
		DoctorMapping map[string]any `json:"doctor_mapping"`
	}
	if err := c.post(ctx, "/get_doctor_mapping", body, &resp); err != nil {
		return nil, err
	}
	if resp.Success == nil || !*resp.Success || resp.DoctorMapping == nil {
		return nil, fmt.Errorf("%w: get_doctor_mapping", analysis.ErrBadResponse)
	}
	return resp.DoctorMapping, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("calling %s: unexpected status %d", path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", analysis.ErrBadResponse, path, err)
	}
	return nil
}
