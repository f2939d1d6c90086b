package openai

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/creditlens/internal/domain/ai"
)

// fakeAPI returns queued responses/errors in order.
type fakeAPI struct {
	calls     int
	responses []fakeCall
}

type fakeCall struct {
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	call := f.responses[f.calls]
	f.calls++
	return call.resp, call.err
}

func testClient(api completionAPI) *Client {
	return &Client{
		api:            api,
		model:          defaultModel,
		visionModel:    defaultVisionMd,
		maxAttempts:    3,
		initialBackoff: time.Millisecond,
		logger:         zap.NewNop(),
	}
}

func okResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
		Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 45},
	}
}

func TestAnalyzeTextSuccess(t *testing.T) {
	api := &fakeAPI{responses: []fakeCall{{resp: okResponse(`{"overview":{}}`)}}}
	c := testClient(api)

	res, err := c.AnalyzeText(context.Background(), "report text")
	require.NoError(t, err)
	assert.Equal(t, `{"overview":{}}`, res.Raw)
	assert.Equal(t, defaultModel, res.Metrics.Model)
	assert.Equal(t, 120, res.Metrics.PromptTokens)
	assert.Equal(t, 45, res.Metrics.CompletionTokens)
	assert.Equal(t, 1, res.Metrics.Attempts)
}

func TestRetryOnRateLimitThenSuccess(t *testing.T) {
	rateLimited := &openai.APIError{HTTPStatusCode: 429}
	api := &fakeAPI{responses: []fakeCall{
		{err: rateLimited},
		{resp: okResponse("ok")},
	}}
	c := testClient(api)

	res, err := c.AnalyzeText(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
	assert.Equal(t, 2, res.Metrics.Attempts)
}

func TestAuthenticationFailsWithoutRetry(t *testing.T) {
	api := &fakeAPI{responses: []fakeCall{
		{err: &openai.APIError{HTTPStatusCode: 401}},
	}}
	c := testClient(api)

	_, err := c.AnalyzeText(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, ai.KindAuthentication, ai.KindOf(err))
	assert.Equal(t, 1, api.calls, "authentication failures are not retried")
}

func TestQuotaFailsWithoutRetry(t *testing.T) {
	api := &fakeAPI{responses: []fakeCall{
		{err: &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}},
	}}
	c := testClient(api)

	_, err := c.AnalyzeText(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, ai.KindQuotaExceeded, ai.KindOf(err))
	assert.Equal(t, 1, api.calls)
}

func TestRetriesExhausted(t *testing.T) {
	serverErr := &openai.APIError{HTTPStatusCode: 500}
	api := &fakeAPI{responses: []fakeCall{
		{err: serverErr}, {err: serverErr}, {err: serverErr},
	}}
	c := testClient(api)

	_, err := c.AnalyzeText(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, ai.KindServer, ai.KindOf(err))
	assert.Equal(t, 3, api.calls)
}

func TestContextTimeoutReportsTimeoutKind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	api := &fakeAPI{responses: []fakeCall{{err: ctx.Err()}}}
	c := testClient(api)

	_, err := c.AnalyzeText(ctx, "text")
	require.Error(t, err)
	assert.Equal(t, ai.KindTimeout, ai.KindOf(err))
	assert.Equal(t, 1, api.calls, "no retries after the context is done")
}

func TestChatDisablesJSONFormat(t *testing.T) {
	var captured openai.ChatCompletionRequest
	api := captureAPI{captured: &captured}
	c := testClient(api)

	_, err := c.Chat(context.Background(), `{"overview":{}}`, "what hurts my score?")
	require.NoError(t, err)
	assert.Nil(t, captured.ResponseFormat)
}

type captureAPI struct {
	captured *openai.ChatCompletionRequest
}

func (a captureAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	*a.captured = req
	return okResponse("answer"), nil
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind ai.ErrorKind
	}{
		{"api 401", &openai.APIError{HTTPStatusCode: 401}, ai.KindAuthentication},
		{"api 403", &openai.APIError{HTTPStatusCode: 403}, ai.KindAuthentication},
		{"api 429", &openai.APIError{HTTPStatusCode: 429}, ai.KindRateLimit},
		{"api 429 quota code", &openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota"}, ai.KindQuotaExceeded},
		{"quota type", &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, ai.KindQuotaExceeded},
		{"api 408", &openai.APIError{HTTPStatusCode: 408}, ai.KindTimeout},
		{"api 504", &openai.APIError{HTTPStatusCode: 504}, ai.KindTimeout},
		{"api 500", &openai.APIError{HTTPStatusCode: 500}, ai.KindServer},
		{"api 503", &openai.APIError{HTTPStatusCode: 503}, ai.KindServer},
		{"request error 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, ai.KindServer},
		{"deadline", context.DeadlineExceeded, ai.KindTimeout},
		{"canceled", context.Canceled, ai.KindTimeout},
		{"conn refused", syscall.ECONNREFUSED, ai.KindConnection},
		{"conn reset", syscall.ECONNRESET, ai.KindConnection},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("down")}, ai.KindConnection},
		{"plain error", errors.New("mystery"), ai.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.kind, got.Kind)
		})
	}
}

func TestClassifyPassesThroughClassified(t *testing.T) {
	orig := ai.NewError(ai.KindRateLimit, errors.New("limited"))
	got := Classify(orig)
	assert.Same(t, orig, got)
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, ai.KindRateLimit.Retryable())
	assert.True(t, ai.KindTimeout.Retryable())
	assert.True(t, ai.KindConnection.Retryable())
	assert.True(t, ai.KindServer.Retryable())
	assert.False(t, ai.KindAuthentication.Retryable())
	assert.False(t, ai.KindQuotaExceeded.Retryable())
	assert.False(t, ai.KindUnknown.Retryable())
}
