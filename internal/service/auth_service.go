package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"essay-tutor-backend/internal/apierr"
	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/repository"
)

// bcrypt hashes at most 72 bytes of a password; longer input is truncated.
const maxPasswordBytes = 72

const (
	emailTaken         = "此電子郵件已完成註冊"
	invalidCredentials = "帳號或密碼錯誤"
)

type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	GradeLevel *string
}

// AuthService interface
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	hashCost int
}

// NewAuthService initializes authentication service. hashCost is the bcrypt
// work factor; values below bcrypt.MinCost fall back to the default.
func NewAuthService(userRepo repository.UserRepository, hashCost int) AuthService {
	if hashCost < bcrypt.MinCost {
		hashCost = bcrypt.DefaultCost
	}
	return &authService{userRepo: userRepo, hashCost: hashCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := normalizeEmail(in.Email)

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apierr.Conflict(emailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword(passwordBytes(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		GradeLevel:   in.GradeLevel,
	}
	// A concurrent registration can still win the unique index.
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierr.Conflict(emailTaken)
		}
		return nil, err
	}
	return user, nil
}

// Login never says which of email or password was wrong.
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordBytes(password)); err != nil {
		return nil, apierr.Unauthorized(invalidCredentials)
	}
	return user, nil
}

func (s *authService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("User not found")
	}
	return user, err
}
