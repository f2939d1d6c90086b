package notification

import "context"

// Repository defines persistence for notifications
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
