package ailog

import "context"

// Repository port for persisting and querying AI call logs
type Repository interface {
	Save(ctx context.Context, l *CallLog) error
	Paginate(ctx context.Context, userID string, page, pageSize int) ([]*CallLog, error)
}
