package proclog

import "time"

// Entry is one append-only record of a document extraction attempt,
// keyed by a generated processing identifier for operational inspection.
type Entry struct {
	ID           int64     `json:"id"`
	ProcessingID string    `json:"processing_id"`
	AnalysisID   string    `json:"analysis_id,omitempty"`
	Stage        string    `json:"stage"`  // start | primary | fallback | done
	Status       string    `json:"status"` // ok | failed
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
