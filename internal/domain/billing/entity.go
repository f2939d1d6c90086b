package billing

import "time"

// Entitlement is a user's paid-feature flag, flipped by the payment
// provider's capture webhook.
type Entitlement struct {
	UserID    string    `json:"user_id"`
	Premium   bool      `json:"premium"`
	OrderID   string    `json:"order_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
