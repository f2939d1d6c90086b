package ai

import "context"

// Metrics describes a completed provider call, returned to the caller for
// persistence. The client never writes to the database itself.
type Metrics struct {
	Model            string `json:"model"`
	LatencyMS        int64  `json:"latency_ms"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Attempts         int    `json:"attempts"`
}

// Result carries the raw model output plus call metrics.
type Result struct {
	Raw     string  `json:"raw"`
	Metrics Metrics `json:"metrics"`
}

// Client is the port to the AI provider. Implementations classify failures
// into *Error values so callers can branch on ErrorKind.
type Client interface {
	// AnalyzeText sends extracted report text for structured analysis.
	AnalyzeText(ctx context.Context, text string) (Result, error)

	// AnalyzeImage sends raw image bytes for vision OCR + analysis in a
	// single request. mimeType selects the data URL prefix.
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (Result, error)

	// Chat answers a follow-up question grounded on a prior analysis result.
	Chat(ctx context.Context, resultJSON, question string) (Result, error)
}
