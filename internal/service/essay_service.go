package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"essay-tutor-backend/internal/apierr"
	"essay-tutor-backend/internal/llm"
	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
	"essay-tutor-backend/utilities"
)

const (
	initialDraftFeedback = "初始 AI 草稿，包含常見語病與結構問題，請學生進行批改。"
	essayNotFound        = "Essay not found"
)

type CreateEssayInput struct {
	GradeLevel   string
	EssayType    string
	Requirements string
	Prompt       string
}

type EssayService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateEssayInput) (*model.Essay, error)
	Get(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.EssaySummary, error)
	Review(ctx context.Context, essayID, userID uuid.UUID, rating int, feedback string) (*model.Essay, error)
	Revise(ctx context.Context, essayID, userID uuid.UUID, instructions string) (*model.Essay, error)
	Finalize(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error)
}

type essayService struct {
	essayRepo repository.EssayRepository
	writer    llm.EssayWriter
	events    *utilities.EventBus
}

func NewEssayService(essayRepo repository.EssayRepository, writer llm.EssayWriter, events *utilities.EventBus) EssayService {
	return &essayService{essayRepo: essayRepo, writer: writer, events: events}
}

// Create stores a fresh AI draft together with its iteration-0 revision.
func (s *essayService) Create(ctx context.Context, userID uuid.UUID, in CreateEssayInput) (*model.Essay, error) {
	draft := s.writer.Draft(llm.DraftInput{
		GradeLevel:   in.GradeLevel,
		EssayType:    in.EssayType,
		Requirements: in.Requirements,
		Prompt:       in.Prompt,
	})

	essay := &model.Essay{
		UserID:       userID,
		GradeLevel:   in.GradeLevel,
		EssayType:    in.EssayType,
		Requirements: in.Requirements,
		Prompt:       in.Prompt,
		AIDraft:      draft,
		CurrentText:  draft,
		Status:       model.EssayStatusDraft,
		Revisions: []model.Revision{{
			Reviewer:    model.ReviewerAI,
			Iteration:   0,
			Feedback:    initialDraftFeedback,
			RevisedText: &draft,
		}},
	}
	if err := s.essayRepo.CreateEssay(ctx, essay); err != nil {
		return nil, err
	}
	s.publish(EventEssayCreated, essay, 0)
	return essay, nil
}

func (s *essayService) Get(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error) {
	essay, err := s.essayRepo.GetOwnedEssay(ctx, essayID, userID)
	return essay, mapEssayErr(err)
}

func (s *essayService) List(ctx context.Context, userID uuid.UUID) ([]model.EssaySummary, error) {
	return s.essayRepo.ListEssaysByUser(ctx, userID)
}

// Review records the student's rating. The essay text is left alone.
func (s *essayService) Review(ctx context.Context, essayID, userID uuid.UUID, rating int, feedback string) (*model.Essay, error) {
	essay, err := s.essayRepo.AppendRevision(ctx, essayID, userID, func(e *model.Essay, _ int) (*model.Revision, error) {
		e.StudentRating = &rating
		e.Status = model.EssayStatusReviewing
		return &model.Revision{
			Reviewer: model.ReviewerStudent,
			Feedback: feedback,
			Rating:   &rating,
		}, nil
	})
	if err != nil {
		return nil, mapEssayErr(err)
	}
	s.publish(EventEssayReviewed, essay, lastIteration(essay))
	return essay, nil
}

// Revise rewrites the current text following the instructions. Status
// is not touched, so a completed essay can keep being revised.
func (s *essayService) Revise(ctx context.Context, essayID, userID uuid.UUID, instructions string) (*model.Essay, error) {
	essay, err := s.essayRepo.AppendRevision(ctx, essayID, userID, func(e *model.Essay, iteration int) (*model.Revision, error) {
		revised := s.writer.Revise(llm.RevisionInput{
			DraftInput: llm.DraftInput{
				GradeLevel:   e.GradeLevel,
				EssayType:    e.EssayType,
				Requirements: e.Requirements,
				Prompt:       e.Prompt,
			},
			PreviousText: e.CurrentText,
			Instructions: instructions,
			Iteration:    iteration,
		})
		e.CurrentText = revised
		return &model.Revision{
			Reviewer:    model.ReviewerAI,
			Feedback:    "根據學生的指示進行修訂：" + instructions,
			RevisedText: &revised,
		}, nil
	})
	if err != nil {
		return nil, mapEssayErr(err)
	}
	s.publish(EventEssayRevised, essay, lastIteration(essay))
	return essay, nil
}

// Finalize scores the current text and completes the essay. Calling it
// again re-scores and appends another evaluation.
func (s *essayService) Finalize(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error) {
	essay, err := s.essayRepo.AppendRevision(ctx, essayID, userID, func(e *model.Essay, _ int) (*model.Revision, error) {
		ev := s.writer.Evaluate(e.CurrentText)
		score, commentary := ev.Score, ev.Commentary
		e.AIRating = &score
		e.AICommentary = &commentary
		e.Status = model.EssayStatusCompleted
		return &model.Revision{
			Reviewer: model.ReviewerAI,
			Feedback: fmt.Sprintf("AI 評語（編號 %s）：\n%s", ev.ReferenceID, ev.Commentary),
			Rating:   &score,
		}, nil
	})
	if err != nil {
		return nil, mapEssayErr(err)
	}
	s.publish(EventEssayFinalized, essay, lastIteration(essay))
	return essay, nil
}

func (s *essayService) publish(event string, essay *model.Essay, iteration int) {
	if s.events == nil {
		return
	}
	s.events.Publish(event, EssayEvent{
		EssayID:   essay.ID,
		UserID:    essay.UserID,
		Status:    essay.Status,
		Iteration: iteration,
		AIRating:  essay.AIRating,
	})
}

func lastIteration(essay *model.Essay) int {
	if n := len(essay.Revisions); n > 0 {
		return essay.Revisions[n-1].Iteration
	}
	return 0
}

func mapEssayErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierr.NotFound(essayNotFound)
	}
	return err
}
