package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EssayStatus string

const (
	EssayStatusDraft     EssayStatus = "DRAFT"
	EssayStatusReviewing EssayStatus = "REVIEWING"
	EssayStatusCompleted EssayStatus = "COMPLETED"
)

type ReviewerType string

const (
	ReviewerStudent ReviewerType = "STUDENT"
	ReviewerAI      ReviewerType = "AI"
)

type SubscriptionPlan string

const (
	PlanFree SubscriptionPlan = "FREE"
	PlanPro  SubscriptionPlan = "PRO"
	PlanTeam SubscriptionPlan = "TEAM"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionInactive SubscriptionStatus = "INACTIVE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

type User struct {
	ID           uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string        `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash string        `json:"-" gorm:"not null"` // never serialized
	FullName     string        `json:"fullName" gorm:"not null"`
	GradeLevel   *string       `json:"gradeLevel"`
	Subscription *Subscription `json:"subscription,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Subscription struct {
	ID                  uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	UserID              uuid.UUID          `json:"userId" gorm:"type:uuid;not null;uniqueIndex"`
	Plan                SubscriptionPlan   `json:"plan" gorm:"not null;default:'FREE'"`
	Status              SubscriptionStatus `json:"status" gorm:"not null;default:'ACTIVE'"`
	StartedAt           time.Time          `json:"startedAt"`
	CurrentPeriodEndsAt *time.Time         `json:"currentPeriodEndsAt"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Essay is one practice writing exercise. CurrentText only ever changes
// through an AI revision; RevisionCount is the next iteration to assign.
type Essay struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID   `json:"userId" gorm:"type:uuid;not null;index"`
	GradeLevel    string      `json:"gradeLevel" gorm:"not null"`
	EssayType     string      `json:"essayType" gorm:"not null"`
	Requirements  string      `json:"requirements" gorm:"not null"`
	Prompt        string      `json:"prompt" gorm:"not null"`
	AIDraft       string      `json:"aiDraft" gorm:"column:ai_draft;not null"`
	CurrentText   string      `json:"currentText" gorm:"not null"`
	Status        EssayStatus `json:"status" gorm:"not null;default:'DRAFT'"`
	StudentRating *int        `json:"studentRating"`
	AIRating      *int        `json:"aiRating" gorm:"column:ai_rating"`
	AICommentary  *string     `json:"aiCommentary" gorm:"column:ai_commentary"`
	RevisionCount int         `json:"-" gorm:"not null;default:0"`
	Revisions     []Revision  `json:"revisions" gorm:"foreignKey:EssayID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (e *Essay) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Revision is an append-only log entry. (EssayID, Iteration) is unique.
type Revision struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	EssayID     uuid.UUID    `json:"essayId" gorm:"type:uuid;not null;uniqueIndex:idx_revision_essay_iteration"`
	Reviewer    ReviewerType `json:"reviewer" gorm:"not null"`
	Iteration   int          `json:"iteration" gorm:"not null;uniqueIndex:idx_revision_essay_iteration"`
	Feedback    string       `json:"feedback" gorm:"not null"`
	Rating      *int         `json:"rating"`
	RevisedText *string      `json:"revisedText"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (r *Revision) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// EssaySummary is the list projection of an essay; it carries no text.
type EssaySummary struct {
	ID            uuid.UUID   `json:"id"`
	GradeLevel    string      `json:"gradeLevel"`
	EssayType     string      `json:"essayType"`
	Status        EssayStatus `json:"status"`
	StudentRating *int        `json:"studentRating"`
	AIRating      *int        `json:"aiRating" gorm:"column:ai_rating"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Models lists every table for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&User{}, &Subscription{}, &Essay{}, &Revision{}}
}
