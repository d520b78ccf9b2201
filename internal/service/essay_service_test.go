package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"essay-tutor-backend/internal/apierr"
	"essay-tutor-backend/internal/llm"
	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
	"essay-tutor-backend/internal/testutil"
	"essay-tutor-backend/utilities"
)

var sampleInput = CreateEssayInput{
	GradeLevel:   "國中二",
	EssayType:    "記敘文",
	Requirements: "描寫一次難忘的經驗",
	Prompt:       "我的暑假",
}

func newEssayService(t *testing.T) (EssayService, *gorm.DB, *utilities.EventBus) {
	t.Helper()
	conn := testutil.DB(t)
	bus := utilities.NewEventBus()
	svc := NewEssayService(repository.NewEssayRepository(conn), llm.NewHeuristicWriter(42), bus)
	return svc, conn, bus
}

func requireAPIError(t *testing.T, err error, status int) *apierr.Error {
	t.Helper()
	apiErr, ok := apierr.As(err)
	require.True(t, ok, "expected api error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	return apiErr
}

func assertIterationsMatchIndex(t *testing.T, essay *model.Essay) {
	t.Helper()
	for i, rev := range essay.Revisions {
		assert.Equal(t, i, rev.Iteration, "revision %d", i)
	}
}

func TestEssayService_Create(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	essay, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)

	assert.Equal(t, model.EssayStatusDraft, essay.Status)
	assert.Equal(t, essay.AIDraft, essay.CurrentText)
	assert.Contains(t, essay.AIDraft, "「我的暑假」")
	assert.Nil(t, essay.StudentRating)
	assert.Nil(t, essay.AIRating)
	require.Len(t, essay.Revisions, 1)

	first := essay.Revisions[0]
	assert.Equal(t, model.ReviewerAI, first.Reviewer)
	assert.Equal(t, 0, first.Iteration)
	assert.Equal(t, initialDraftFeedback, first.Feedback)
	require.NotNil(t, first.RevisedText)
	assert.Equal(t, essay.AIDraft, *first.RevisedText)
}

func TestEssayService_Lifecycle(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	created, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, created.ID, user.ID, 70, "第二段太長")
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusReviewing, reviewed.Status)
	assert.Equal(t, created.CurrentText, reviewed.CurrentText)
	require.NotNil(t, reviewed.StudentRating)
	assert.Equal(t, 70, *reviewed.StudentRating)
	require.Len(t, reviewed.Revisions, 2)
	studentRev := reviewed.Revisions[1]
	assert.Equal(t, model.ReviewerStudent, studentRev.Reviewer)
	assert.Equal(t, "第二段太長", studentRev.Feedback)
	require.NotNil(t, studentRev.Rating)
	assert.Equal(t, 70, *studentRev.Rating)
	assert.Nil(t, studentRev.RevisedText)

	revised, err := svc.Revise(ctx, created.ID, user.ID, "加強結尾")
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusReviewing, revised.Status)
	assert.NotEqual(t, reviewed.CurrentText, revised.CurrentText)
	assert.True(t, strings.HasPrefix(revised.CurrentText, "根據老師的新指示：「加強結尾」"))
	require.Len(t, revised.Revisions, 3)
	aiRev := revised.Revisions[2]
	assert.Equal(t, model.ReviewerAI, aiRev.Reviewer)
	assert.Equal(t, "根據學生的指示進行修訂：加強結尾", aiRev.Feedback)
	require.NotNil(t, aiRev.RevisedText)
	assert.Equal(t, revised.CurrentText, *aiRev.RevisedText)
	paragraphs := strings.Split(revised.CurrentText, "\n\n")
	assert.True(t, strings.HasPrefix(paragraphs[len(paragraphs)-1], "我特別記錄了這些重點："))

	finalized, err := svc.Finalize(ctx, created.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusCompleted, finalized.Status)
	assert.Equal(t, revised.CurrentText, finalized.CurrentText)
	require.NotNil(t, finalized.AIRating)
	require.NotNil(t, finalized.AICommentary)
	require.Len(t, finalized.Revisions, 4)
	evalRev := finalized.Revisions[3]
	assert.Equal(t, model.ReviewerAI, evalRev.Reviewer)
	require.NotNil(t, evalRev.Rating)
	assert.Equal(t, *finalized.AIRating, *evalRev.Rating)
	assert.Regexp(t, `^AI 評語（編號 [A-Za-z0-9]{8}）：\n`, evalRev.Feedback)
	assert.True(t, strings.HasSuffix(evalRev.Feedback, *finalized.AICommentary))

	base := llm.BaseScore(finalized.CurrentText)
	assert.InDelta(t, base, float64(*finalized.AIRating), 5.5)

	got, err := svc.Get(ctx, created.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, got.Revisions, 4)
	assertIterationsMatchIndex(t, got)
}

func TestEssayService_AllowsWorkAfterCompletion(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	essay, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, essay.ID, user.ID)
	require.NoError(t, err)

	revised, err := svc.Revise(ctx, essay.ID, user.ID, "再精簡一些")
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusCompleted, revised.Status)

	again, err := svc.Finalize(ctx, essay.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusCompleted, again.Status)
	require.Len(t, again.Revisions, 4)
	assertIterationsMatchIndex(t, again)

	reviewed, err := svc.Review(ctx, essay.ID, user.ID, 90, "好多了")
	require.NoError(t, err)
	assert.Equal(t, model.EssayStatusReviewing, reviewed.Status)
}

func TestEssayService_OwnershipIsolation(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, conn, "owner@example.com")
	intruder := testutil.SeedUser(t, ctx, conn, "intruder@example.com")

	essay, err := svc.Create(ctx, owner.ID, sampleInput)
	require.NoError(t, err)

	_, err = svc.Get(ctx, essay.ID, intruder.ID)
	apiErr := requireAPIError(t, err, http.StatusNotFound)
	assert.Equal(t, "Essay not found", apiErr.Error())

	_, err = svc.Review(ctx, essay.ID, intruder.ID, 10, "壞")
	requireAPIError(t, err, http.StatusNotFound)
	_, err = svc.Revise(ctx, essay.ID, intruder.ID, "刪掉")
	requireAPIError(t, err, http.StatusNotFound)
	_, err = svc.Finalize(ctx, essay.ID, intruder.ID)
	requireAPIError(t, err, http.StatusNotFound)

	_, err = svc.Get(ctx, uuid.New(), owner.ID)
	requireAPIError(t, err, http.StatusNotFound)

	list, err := svc.List(ctx, intruder.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	untouched, err := svc.Get(ctx, essay.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, untouched.Revisions, 1)
	assert.Equal(t, model.EssayStatusDraft, untouched.Status)
}

func TestEssayService_List(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	first, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)
	second, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)
	_, err = svc.Review(ctx, first.ID, user.ID, 55, "普通")
	require.NoError(t, err)

	list, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, model.EssayStatusReviewing, list[1].Status)
	require.NotNil(t, list[1].StudentRating)
	assert.Equal(t, 55, *list[1].StudentRating)
}

func TestEssayService_PublishesEvents(t *testing.T) {
	svc, conn, bus := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	var mu sync.Mutex
	seen := map[string][]EssayEvent{}
	for _, name := range []string{EventEssayCreated, EventEssayReviewed, EventEssayRevised, EventEssayFinalized} {
		event := name
		bus.Subscribe(event, func(data interface{}) {
			mu.Lock()
			defer mu.Unlock()
			seen[event] = append(seen[event], data.(EssayEvent))
		})
	}
	InitAuditListeners(bus, utilities.NewNopLogger())

	essay, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)
	_, err = svc.Review(ctx, essay.ID, user.ID, 80, "好")
	require.NoError(t, err)
	_, err = svc.Revise(ctx, essay.ID, user.ID, "加油")
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, essay.ID, user.ID)
	require.NoError(t, err)

	// a rejected mutation publishes nothing
	_, err = svc.Finalize(ctx, uuid.New(), user.ID)
	require.Error(t, err)

	bus.Wait()
	mu.Lock()
	defer mu.Unlock()

	require.Len(t, seen[EventEssayCreated], 1)
	require.Len(t, seen[EventEssayReviewed], 1)
	require.Len(t, seen[EventEssayRevised], 1)
	require.Len(t, seen[EventEssayFinalized], 1)

	assert.Equal(t, essay.ID, seen[EventEssayCreated][0].EssayID)
	assert.Equal(t, user.ID, seen[EventEssayCreated][0].UserID)
	assert.Equal(t, 1, seen[EventEssayReviewed][0].Iteration)
	assert.Equal(t, 2, seen[EventEssayRevised][0].Iteration)
	final := seen[EventEssayFinalized][0]
	assert.Equal(t, 3, final.Iteration)
	assert.Equal(t, model.EssayStatusCompleted, final.Status)
	assert.NotNil(t, final.AIRating)
}

func TestEssayService_ConcurrentReviewsKeepIterationsUnique(t *testing.T) {
	svc, conn, _ := newEssayService(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, conn, "writer@example.com")

	essay, err := svc.Create(ctx, user.ID, sampleInput)
	require.NoError(t, err)

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.Review(ctx, essay.ID, user.ID, rating, "並行")
			errs <- err
		}(i * 10)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, essay.ID, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Revisions, n+1)
	assertIterationsMatchIndex(t, got)
}
