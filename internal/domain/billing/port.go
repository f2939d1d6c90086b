package billing

import "context"

// Repository defines persistence for entitlements
type Repository interface {
	Upsert(ctx context.Context, e *Entitlement) error
	Get(ctx context.Context, userID string) (*Entitlement, error)
}
