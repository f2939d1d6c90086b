package analysis

import (
	"context"
	"time"
)

// Repository port (interface for persistence)
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, userID string, id AnalysisID) (*Analysis, error)
	Paginate(ctx context.Context, userID string, page, pageSize int) (PaginatedResult, error)
	UpdateStatus(ctx context.Context, userID string, id AnalysisID, status Status) error
	MarkCompleted(ctx context.Context, userID string, id AnalysisID, result *Result, completedAt time.Time) error
	MarkError(ctx context.Context, userID string, id AnalysisID, kind, message string) error
	Delete(ctx context.Context, id AnalysisID) error
}

// ScoreRepository persists the standalone credit score history.
type ScoreRepository interface {
	Record(ctx context.Context, s *CreditScore) error
	History(ctx context.Context, userID string, limit int) ([]*CreditScore, error)
}

// DocumentStore keeps the original uploaded report bytes for retry/audit.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
