package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/creditlens/internal/domain/billing"
)

type EntitlementRepository struct {
	db *sql.DB
}

func NewEntitlementRepository(db *sql.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// Upsert creates or replaces the user's entitlement row.
func (r *EntitlementRepository) Upsert(ctx context.Context, e *domain.Entitlement) error {
	const q = `
INSERT INTO user_entitlements (user_id, premium, order_id, updated_at)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE
  premium=VALUES(premium),
  order_id=VALUES(order_id),
  updated_at=VALUES(updated_at);
`
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, stringOrDash(e.UserID), e.Premium, e.OrderID, updated)
	return err
}

// Get returns the entitlement, or a zero-value one when the user has none.
func (r *EntitlementRepository) Get(ctx context.Context, userID string) (*domain.Entitlement, error) {
	const q = `
SELECT user_id, premium, order_id, updated_at
FROM user_entitlements
WHERE user_id=? LIMIT 1;
`
	var e domain.Entitlement
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&e.UserID, &e.Premium, &e.OrderID, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return &domain.Entitlement{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
