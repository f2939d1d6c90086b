package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/notification"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Save inserts a notification.
func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	const q = `
INSERT INTO notifications (id, user_id, type, title, message, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);
`
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		n.ID, stringOrDash(n.UserID), string(n.Type), n.Title, n.Message, n.Read, created)
	return err
}

// List returns notifications newest first, optionally unread only.
func (r *NotificationRepository) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
SELECT id, user_id, type, title, message, is_read, created_at
FROM notifications
WHERE user_id=$1`
	if unreadOnly {
		q += ` AND is_read=false`
	}
	q += `
ORDER BY created_at DESC, id DESC
LIMIT $2;`

	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag; the only mutation notifications ever get.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	const q = `UPDATE notifications SET is_read=true WHERE user_id=$1 AND id=$2;`
	_, err := r.db.ExecContext(ctx, q, userID, id)
	return err
}
