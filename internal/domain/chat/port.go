package chat

import "context"

// Repository defines persistence for chat messages
type Repository interface {
	Append(ctx context.Context, m *Message) error
	ListByAnalysis(ctx context.Context, userID, analysisID string, limit int) ([]*Message, error)
}
