package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/testutil"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	grade := "國中二年級"
	user := &model.User{Email: "student@example.com", PasswordHash: "h", FullName: "王小明", GradeLevel: &grade}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "王小明", byID.FullName)

	exists, err := repo.EmailExists(ctx, "student@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &model.User{Email: "student@example.com", PasswordHash: "h", FullName: "copy"}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), ErrDuplicate)
}

func TestUserRepo_ProfileIncludesSubscription(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	subs := NewSubscriptionRepository(db)
	user := testutil.SeedUser(t, ctx, db, "p@example.com")

	profile, err := users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.Subscription)

	_, err = subs.Upsert(ctx, &model.Subscription{UserID: user.ID, Plan: model.PlanPro, Status: model.SubscriptionActive, StartedAt: time.Now()})
	require.NoError(t, err)

	profile, err = users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Subscription)
	assert.Equal(t, model.PlanPro, profile.Subscription.Plan)
}

func TestSubscriptionRepo_UpsertKeepsOneRowPerUser(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewSubscriptionRepository(db)
	user := testutil.SeedUser(t, ctx, db, "s@example.com")

	_, err := repo.GetByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Now().UTC().Truncate(time.Second)
	first, err := repo.Upsert(ctx, &model.Subscription{UserID: user.ID, Plan: model.PlanFree, Status: model.SubscriptionActive, StartedAt: start})
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, first.Plan)

	end := start.AddDate(0, 1, 0)
	second, err := repo.Upsert(ctx, &model.Subscription{UserID: user.ID, Plan: model.PlanTeam, Status: model.SubscriptionActive, StartedAt: start, CurrentPeriodEndsAt: &end})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.PlanTeam, second.Plan)
	require.NotNil(t, second.CurrentPeriodEndsAt)
	assert.True(t, end.Equal(second.CurrentPeriodEndsAt.UTC()))

	var count int64
	require.NoError(t, db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
