package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/domain/ai"
	"github.com/bryanwahyu/creditlens/internal/infra/ai/prompt"
)

const (
	maxTokens       = 4096
	defaultModel    = "gpt-4o-mini"
	defaultVisionMd = "gpt-4o"
)

// Client wraps the OpenAI chat completion API behind the domain ai.Client
// port. Failures come back classified; transient kinds are retried with
// exponential backoff before surfacing.
type Client struct {
	api            completionAPI
	sdk            *openai.Client
	model          string
	visionModel    string
	maxAttempts    int
	initialBackoff time.Duration
	logger         *zap.Logger
}

// completionAPI is the slice of the SDK the client uses; tests substitute it.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds a Client from an API key. Empty model names fall back to
// the defaults.
func NewClient(apiKey, model, visionModel string, logger *zap.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if visionModel == "" {
		visionModel = defaultVisionMd
	}
	sdk := openai.NewClient(apiKey)
	return &Client{
		api:            sdk,
		sdk:            sdk,
		model:          model,
		visionModel:    visionModel,
		maxAttempts:    3,
		initialBackoff: 500 * time.Millisecond,
		logger:         logger,
	}
}

// Ping verifies credentials and connectivity by listing models. Used by the
// health surface.
func (c *Client) Ping(ctx context.Context) error {
	if c.sdk == nil {
		return nil
	}
	_, err := c.sdk.ListModels(ctx)
	if err != nil {
		return Classify(err)
	}
	return nil
}

// AnalyzeText sends extracted report text for structured analysis.
func (c *Client) AnalyzeText(ctx context.Context, text string) (ai.Result, error) {
	req := c.baseRequest(c.model)
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(text)},
	}
	return c.complete(ctx, req)
}

// AnalyzeImage forwards raw image bytes for OCR + analysis in one request.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (ai.Result, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	req := c.baseRequest(c.visionModel)
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt.GetVisionPrompt()},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		},
	}
	return c.complete(ctx, req)
}

// Chat answers a follow-up question grounded on a stored analysis result.
func (c *Client) Chat(ctx context.Context, resultJSON, question string) (ai.Result, error) {
	req := c.baseRequest(c.model)
	req.ResponseFormat = nil // chat answers are plain text
	req.Messages = []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.GetChatSystemPrompt(resultJSON)},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
	return c.complete(ctx, req)
}

func (c *Client) baseRequest(model string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

// complete runs the request with retry. Only retryable kinds are attempted
// again; authentication and quota failures surface immediately. Context
// cancellation stops retries.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (ai.Result, error) {
	start := time.Now()

	var lastErr *ai.Error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				lastErr = ai.NewError(ai.KindUnknown, fmt.Errorf("provider returned no choices"))
				break
			}
			return ai.Result{
				Raw: resp.Choices[0].Message.Content,
				Metrics: ai.Metrics{
					Model:            req.Model,
					LatencyMS:        time.Since(start).Milliseconds(),
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					Attempts:         attempt,
				},
			}, nil
		}

		lastErr = Classify(err)
		if ctx.Err() != nil || !lastErr.Kind.Retryable() || attempt == c.maxAttempts {
			break
		}

		if c.logger != nil {
			c.logger.Warn("retrying ai call",
				zap.String("model", req.Model),
				zap.Int("attempt", attempt),
				zap.String("kind", string(lastErr.Kind)),
				zap.Error(err))
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ai.Result{}, ai.NewError(ai.KindTimeout, ctx.Err())
		case <-timer.C:
		}
	}

	return ai.Result{}, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.initialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
