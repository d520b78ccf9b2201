package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
)

type SubscriptionService interface {
	Upsert(ctx context.Context, userID uuid.UUID, plan model.SubscriptionPlan) (*model.Subscription, error)
	Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
}

type subscriptionService struct {
	subRepo repository.SubscriptionRepository
	now     func() time.Time
}

func NewSubscriptionService(subRepo repository.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{subRepo: subRepo, now: time.Now}
}

// Upsert activates plan for the user starting now with a one month period.
func (s *subscriptionService) Upsert(ctx context.Context, userID uuid.UUID, plan model.SubscriptionPlan) (*model.Subscription, error) {
	now := s.now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	return s.subRepo.Upsert(ctx, &model.Subscription{
		UserID:              userID,
		Plan:                plan,
		Status:              model.SubscriptionActive,
		StartedAt:           now,
		CurrentPeriodEndsAt: &periodEnd,
	})
}

// Current returns nil without error when the user never subscribed.
func (s *subscriptionService) Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}
