package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"essay-tutor-backend/internal/model"
)

type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Upsert keeps a single subscription row per user, replacing plan, status and
// billing period on conflict.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "started_at", "current_period_ends_at", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return r.GetByUserID(ctx, sub.UserID)
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}
