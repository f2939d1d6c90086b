package analysis

import (
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Status enum
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Source enum describes what kind of input started the analysis.
type Source string

const (
	SourceText  Source = "text"
	SourcePDF   Source = "pdf"
	SourceImage Source = "image"
)

// Aggregate Root: Analysis. One user-submitted credit-report processing
// attempt. Created in processing state; exactly one terminal transition per
// run to completed (result attached) or error (message attached). Retry
// re-enters processing and overwrites the prior result on next completion.
type Analysis struct {
	ID           AnalysisID `json:"id"`
	UserID       string     `json:"user_id"`
	Status       Status     `json:"status"`
	Source       Source     `json:"source"`
	OCRText      string     `json:"ocr_text,omitempty"`
	Result       *Result    `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	DocumentURL  string     `json:"document_url,omitempty"`
	PageCount    int        `json:"page_count,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// CreditScore is a standalone score-history entry, written only when a
// completed analysis carries a valid score.
type CreditScore struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	AnalysisID string    `json:"analysis_id"`
	Score      int       `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}
