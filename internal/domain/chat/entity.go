package chat

import "time"

// Role enum
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message belongs to exactly one analysis and one user, ordered by creation.
type Message struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
