package ailog

import "time"

// CallLog records one AI provider call for auditing and cost tracking.
type CallLog struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	AnalysisID       string    `json:"analysis_id,omitempty"`
	Operation        string    `json:"operation"` // analyze | vision | chat
	Model            string    `json:"model"`
	LatencyMS        int64     `json:"latency_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Attempts         int       `json:"attempts"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
