package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/testutil"
)

func studentReview(rating int, feedback string) MutateFunc {
	return func(e *model.Essay, _ int) (*model.Revision, error) {
		e.StudentRating = &rating
		e.Status = model.EssayStatusReviewing
		return &model.Revision{Reviewer: model.ReviewerStudent, Feedback: feedback, Rating: &rating}, nil
	}
}

func TestEssayRepo_CreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")

	draft := "draft"
	essay := &model.Essay{
		UserID:      owner.ID,
		GradeLevel:  "五",
		EssayType:   "記敘文",
		Prompt:      "p",
		AIDraft:     draft,
		CurrentText: draft,
		Status:      model.EssayStatusDraft,
		Revisions:   []model.Revision{{Reviewer: model.ReviewerAI, Feedback: "init", RevisedText: &draft}},
	}
	require.NoError(t, repo.CreateEssay(ctx, essay))
	assert.NotEqual(t, uuid.Nil, essay.ID)
	assert.Equal(t, 1, essay.RevisionCount)

	got, err := repo.GetOwnedEssay(ctx, essay.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, got.Revisions, 1)
	assert.Equal(t, 0, got.Revisions[0].Iteration)
	assert.Equal(t, essay.ID, got.Revisions[0].EssayID)

	_, err = repo.GetOwnedEssay(ctx, essay.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetOwnedEssay(ctx, uuid.New(), owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEssayRepo_ListIsOwnedAndNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "a@example.com")
	other := testutil.SeedUser(t, ctx, db, "b@example.com")

	first := testutil.SeedEssay(t, ctx, db, owner.ID, "first")
	second := testutil.SeedEssay(t, ctx, db, owner.ID, "second")
	testutil.SeedEssay(t, ctx, db, other.ID, "not mine")
	require.NoError(t, db.Model(first).UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	list, err := repo.ListEssaysByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, model.EssayStatusDraft, list[0].Status)

	empty, err := repo.ListEssaysByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEssayRepo_AppendRevision(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	essay := testutil.SeedEssay(t, ctx, db, owner.ID, "p")

	var seen int
	updated, err := repo.AppendRevision(ctx, essay.ID, owner.ID, func(e *model.Essay, iteration int) (*model.Revision, error) {
		seen = iteration
		return studentReview(80, "ok")(e, iteration)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, model.EssayStatusReviewing, updated.Status)
	require.NotNil(t, updated.StudentRating)
	assert.Equal(t, 80, *updated.StudentRating)
	require.Len(t, updated.Revisions, 2)
	assert.Equal(t, 1, updated.Revisions[1].Iteration)
	assert.Equal(t, model.ReviewerStudent, updated.Revisions[1].Reviewer)
	assert.Equal(t, essay.CurrentText, updated.CurrentText)
}

func TestEssayRepo_AppendRevision_NotOwned(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	intruder := testutil.SeedUser(t, ctx, db, "intruder@example.com")
	essay := testutil.SeedEssay(t, ctx, db, owner.ID, "p")

	called := false
	_, err := repo.AppendRevision(ctx, essay.ID, intruder.ID, func(e *model.Essay, i int) (*model.Revision, error) {
		called = true
		return studentReview(1, "x")(e, i)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, called)

	got, err := repo.GetOwnedEssay(ctx, essay.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, got.Revisions, 1)
	assert.Equal(t, 1, got.RevisionCount)
}

func TestEssayRepo_AppendRevision_ApplyErrorRollsBack(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	essay := testutil.SeedEssay(t, ctx, db, owner.ID, "p")

	boom := errors.New("boom")
	_, err := repo.AppendRevision(ctx, essay.ID, owner.ID, func(*model.Essay, int) (*model.Revision, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetOwnedEssay(ctx, essay.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RevisionCount)
	assert.Len(t, got.Revisions, 1)
}

func TestEssayRepo_ConcurrentAppendsGetDistinctIterations(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEssayRepository(db)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	essay := testutil.SeedEssay(t, ctx, db, owner.ID, "p")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := repo.AppendRevision(ctx, essay.ID, owner.ID, studentReview(rating, "concurrent"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetOwnedEssay(ctx, essay.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, got.Revisions, writers+1)
	seen := make(map[int]bool)
	for _, rev := range got.Revisions {
		assert.False(t, seen[rev.Iteration], "duplicate iteration %d", rev.Iteration)
		seen[rev.Iteration] = true
	}
	for i := 0; i <= writers; i++ {
		assert.True(t, seen[i], "missing iteration %d", i)
	}
	assert.Equal(t, writers+1, got.RevisionCount)
}
