package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"essay-tutor-backend/internal/config"
	"essay-tutor-backend/internal/db"
	"essay-tutor-backend/internal/model"
)

// DB returns a migrated in-memory SQLite database private to the test.
// A single connection keeps every statement on the same memory database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	conn, err := db.Open(config.DBConfig{
		Driver: "sqlite",
		DSN:    "file::memory:",
		Pool:   config.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close(conn) })
	return conn
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *model.User {
	tb.Helper()
	u := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FullName:     "測試學生",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedEssay(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, prompt string) *model.Essay {
	tb.Helper()
	draft := "草稿內容"
	e := &model.Essay{
		UserID:        userID,
		GradeLevel:    "國中二年級",
		EssayType:     "敘事文",
		Requirements:  "描寫細節",
		Prompt:        prompt,
		AIDraft:       draft,
		CurrentText:   draft,
		Status:        model.EssayStatusDraft,
		RevisionCount: 1,
		Revisions: []model.Revision{{
			Reviewer:    model.ReviewerAI,
			Iteration:   0,
			Feedback:    "initial",
			RevisedText: &draft,
		}},
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed essay: %v", err)
	}
	return e
}
