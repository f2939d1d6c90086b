package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
)

type ScoreRepository struct {
	db *sql.DB
}

func NewScoreRepository(db *sql.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Record appends one score-history entry.
func (r *ScoreRepository) Record(ctx context.Context, s *domain.CreditScore) error {
	const q = `
INSERT INTO credit_scores (user_id, analysis_id, score, recorded_at)
VALUES (?,?,?,?);
`
	recorded := s.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, stringOrDash(s.UserID), s.AnalysisID, s.Score, recorded)
	return err
}

// History returns recent scores, newest first.
func (r *ScoreRepository) History(ctx context.Context, userID string, limit int) ([]*domain.CreditScore, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, user_id, analysis_id, score, recorded_at
FROM credit_scores
WHERE user_id=?
ORDER BY recorded_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CreditScore
	for rows.Next() {
		var s domain.CreditScore
		if err := rows.Scan(&s.ID, &s.UserID, &s.AnalysisID, &s.Score, &s.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
