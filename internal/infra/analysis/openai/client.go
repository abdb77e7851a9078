package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/infra/analysis/prompt"
)

const maxTokens = 2048

// Client serves the analysis backend port directly from OpenAI, for
// deployments that run without the hosted analysis API.
type Client struct {
	*openai.Client
	Model  string
	logger *zap.Logger
}

func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{Client: openai.NewClient(apiKey), Model: model, logger: logger}
}

// FollowUpQuestions implements analysis.Backend.
func (c *Client) FollowUpQuestions(ctx context.Context, qna map[string]string, department string) ([]string, error) {
	content, err := c.complete(ctx, true,
		prompt.FollowUpSystemPrompt(),
		prompt.FollowUpUserPrompt(qna, department),
	)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		FollowUpQuestions *[]string `json:"followup_questions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBadResponse, err)
	}
	if parsed.FollowUpQuestions == nil {
		return nil, fmt.Errorf("%w: followup_questions missing", analysis.ErrBadResponse)
	}
	return *parsed.FollowUpQuestions, nil
}

// Summarize implements analysis.Backend. Uploaded documents are not read:
// chat completions only see the questionnaire answers, so doc ids are
// logged and skipped.
func (c *Client) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	if len(req.DocIDs) > 0 {
		c.logger.Warn("attachments ignored by openai provider",
			zap.String("user_id", req.UserID),
			zap.Int("doc_count", len(req.DocIDs)))
	}
	return c.complete(ctx, false,
		prompt.SummarySystemPrompt(),
		prompt.SummaryUserPrompt(req.QnA, req.Department),
	)
}

// DoctorMapping implements analysis.Backend. Doctor assignment lives in the
// hosted backend only.
func (c *Client) DoctorMapping(ctx context.Context, visitID string) (map[string]any, error) {
	return nil, analysis.ErrUnsupported
}

func (c *Client) complete(ctx context.Context, jsonMode bool, system, user string) (string, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", analysis.ErrBadResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
