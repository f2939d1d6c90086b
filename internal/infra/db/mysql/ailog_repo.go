package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/ailog"
)

type AICallLogRepository struct {
	db *sql.DB
}

func NewAICallLogRepository(db *sql.DB) *AICallLogRepository {
	return &AICallLogRepository{db: db}
}

// Save inserts one provider-call record.
func (r *AICallLogRepository) Save(ctx context.Context, l *domain.CallLog) error {
	const q = `
INSERT INTO openai_logs
  (user_id, analysis_id, operation, model, latency_ms,
   prompt_tokens, completion_tokens, attempts, error_kind, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?);
`
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(l.UserID), l.AnalysisID, l.Operation, l.Model, l.LatencyMS,
		l.PromptTokens, l.CompletionTokens, l.Attempts, l.ErrorKind, created)
	return err
}

// Paginate returns call logs for one user, newest first.
func (r *AICallLogRepository) Paginate(ctx context.Context, userID string, page, pageSize int) ([]*domain.CallLog, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, user_id, analysis_id, operation, model, latency_ms,
       prompt_tokens, completion_tokens, attempts, error_kind, created_at
FROM openai_logs
WHERE user_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CallLog
	for rows.Next() {
		var l domain.CallLog
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.AnalysisID, &l.Operation, &l.Model, &l.LatencyMS,
			&l.PromptTokens, &l.CompletionTokens, &l.Attempts, &l.ErrorKind, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
