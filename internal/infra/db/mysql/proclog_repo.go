package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/proclog"
)

type ProcessingLogRepository struct {
	db *sql.DB
}

func NewProcessingLogRepository(db *sql.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

// Append writes one stage record. Callers treat failures as best-effort.
func (r *ProcessingLogRepository) Append(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO pdf_processing_logs (processing_id, analysis_id, stage, status, message, created_at)
VALUES (?,?,?,?,?,?);
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ProcessingID, e.AnalysisID, e.Stage, e.Status, e.Message, created)
	return err
}

// ListByAnalysis returns stage records in append order.
func (r *ProcessingLogRepository) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, processing_id, analysis_id, stage, status, message, created_at
FROM pdf_processing_logs
WHERE analysis_id=?
ORDER BY id ASC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, analysisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.ProcessingID, &e.AnalysisID, &e.Stage, &e.Status, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
