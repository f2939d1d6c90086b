package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/creditlens/internal/domain/billing"
	"github.com/bryanwahyu/creditlens/internal/domain/notification"
)

// Clock abstraction so the service is testable with a fixed time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service flips entitlements from payment provider webhooks.
type Service struct {
	Repo   domain.Repository
	Notifs notification.Repository
	Logger *zap.Logger
	Clock  Clock
}

// HandleCapture marks the user premium after a completed payment capture.
func (s *Service) HandleCapture(ctx context.Context, userID, orderID string) error {
	err := s.Repo.Upsert(ctx, &domain.Entitlement{
		UserID:    userID,
		Premium:   true,
		OrderID:   orderID,
		UpdatedAt: s.Clock.Now(),
	})
	if err != nil {
		return err
	}

	if s.Notifs != nil {
		nerr := s.Notifs.Save(ctx, &notification.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      notification.TypeSuccess,
			Title:     "Premium activated",
			Message:   "Your payment was received and premium features are now active.",
			CreatedAt: s.Clock.Now(),
		})
		if nerr != nil && s.Logger != nil {
			s.Logger.Warn("saving premium notification failed",
				zap.String("user_id", userID), zap.Error(nerr))
		}
	}
	return nil
}

// Entitlement returns the user's current entitlement.
func (s *Service) Entitlement(ctx context.Context, userID string) (*domain.Entitlement, error) {
	return s.Repo.Get(ctx, userID)
}
