package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/chat"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append stores one message.
func (r *ChatRepository) Append(ctx context.Context, m *domain.Message) error {
	const q = `
INSERT INTO chat_messages (analysis_id, user_id, role, content, created_at)
VALUES (?,?,?,?,?);
`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		m.AnalysisID, stringOrDash(m.UserID), string(m.Role), m.Content, created)
	return err
}

// ListByAnalysis returns messages in creation order.
func (r *ChatRepository) ListByAnalysis(ctx context.Context, userID, analysisID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, analysis_id, user_id, role, content, created_at
FROM chat_messages
WHERE user_id=? AND analysis_id=?
ORDER BY created_at ASC, id ASC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, analysisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.AnalysisID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
