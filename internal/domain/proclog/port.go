package proclog

import "context"

// Repository is the append-only processing log. Append failures must never
// abort the extraction that produced them.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*Entry, error)
}
