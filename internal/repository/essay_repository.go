package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"essay-tutor-backend/internal/model"
)

// MutateFunc applies one lifecycle step to a locked essay. iteration is the
// slot reserved for the revision it returns.
type MutateFunc func(essay *model.Essay, iteration int) (*model.Revision, error)

type EssayRepository interface {
	CreateEssay(ctx context.Context, essay *model.Essay) error
	GetOwnedEssay(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error)
	ListEssaysByUser(ctx context.Context, userID uuid.UUID) ([]model.EssaySummary, error)
	AppendRevision(ctx context.Context, essayID, userID uuid.UUID, apply MutateFunc) (*model.Essay, error)
}

type essayRepository struct {
	db *gorm.DB
}

func NewEssayRepository(db *gorm.DB) EssayRepository {
	return &essayRepository{db: db}
}

// CreateEssay inserts the essay and its initial revisions in one statement
// group; the revision counter starts at the number of revisions supplied.
func (r *essayRepository) CreateEssay(ctx context.Context, essay *model.Essay) error {
	essay.RevisionCount = len(essay.Revisions)
	for i := range essay.Revisions {
		essay.Revisions[i].Iteration = i
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(essay).Error; err != nil {
			return fmt.Errorf("create essay: %w", err)
		}
		return nil
	})
}

func (r *essayRepository) GetOwnedEssay(ctx context.Context, essayID, userID uuid.UUID) (*model.Essay, error) {
	return loadOwned(r.db.WithContext(ctx), essayID, userID)
}

func (r *essayRepository) ListEssaysByUser(ctx context.Context, userID uuid.UUID) ([]model.EssaySummary, error) {
	summaries := []model.EssaySummary{}
	err := r.db.WithContext(ctx).
		Model(&model.Essay{}).
		Select("id", "grade_level", "essay_type", "status", "student_rating", "ai_rating", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("list essays: %w", err)
	}
	return summaries, nil
}

// AppendRevision runs apply inside a transaction. Bumping revision_count with
// the ownership predicate both checks ownership and takes the row lock, so
// concurrent writers to one essay get distinct, gap-free iterations.
func (r *essayRepository) AppendRevision(ctx context.Context, essayID, userID uuid.UUID, apply MutateFunc) (*model.Essay, error) {
	var out *model.Essay
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Essay{}).
			Where("id = ? AND user_id = ?", essayID, userID).
			UpdateColumn("revision_count", gorm.Expr("revision_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("reserve iteration: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var essay model.Essay
		if err := tx.Where("id = ?", essayID).First(&essay).Error; err != nil {
			return fmt.Errorf("load essay: %w", err)
		}
		iteration := essay.RevisionCount - 1

		rev, err := apply(&essay, iteration)
		if err != nil {
			return err
		}
		rev.EssayID = essay.ID
		rev.Iteration = iteration

		err = tx.Model(&essay).
			Select("current_text", "status", "student_rating", "ai_rating", "ai_commentary", "updated_at").
			Updates(&essay).Error
		if err != nil {
			return fmt.Errorf("update essay: %w", err)
		}
		if err := tx.Create(rev).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return fmt.Errorf("append revision: %w", err)
		}

		out, err = loadOwned(tx, essayID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadOwned(db *gorm.DB, essayID, userID uuid.UUID) (*model.Essay, error) {
	var essay model.Essay
	err := db.Preload("Revisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("iteration ASC")
	}).Where("id = ? AND user_id = ?", essayID, userID).First(&essay).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get essay: %w", err)
	}
	return &essay, nil
}
