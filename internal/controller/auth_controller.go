package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/service"
	"essay-tutor-backend/utilities"
)

type registerRequest struct {
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	FullName   string  `json:"fullName" binding:"required,min=1"`
	GradeLevel *string `json:"gradeLevel"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=1"`
}

type publicUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	GradeLevel *string   `json:"gradeLevel"`
}

type profileUser struct {
	publicUser
	CreatedAt    time.Time           `json:"createdAt"`
	Subscription *model.Subscription `json:"subscription"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  publicUser `json:"user"`
}

func toPublicUser(u *model.User) publicUser {
	return publicUser{ID: u.ID, Email: u.Email, FullName: u.FullName, GradeLevel: u.GradeLevel}
}

type AuthController struct {
	AuthService service.AuthService
	Tokens      *utilities.TokenIssuer
	Log         *utilities.Logger
}

func NewAuthController(authService service.AuthService, tokens *utilities.TokenIssuer, log *utilities.Logger) *AuthController {
	return &AuthController{AuthService: authService, Tokens: tokens, Log: log}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	user, err := ac.AuthService.Register(c.Request.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		GradeLevel: req.GradeLevel,
	})
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	ac.respondWithToken(c, http.StatusCreated, user)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	user, err := ac.AuthService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	ac.respondWithToken(c, http.StatusOK, user)
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, ok := utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	user, err := ac.AuthService.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileUser{
		publicUser:   toPublicUser(user),
		CreatedAt:    user.CreatedAt,
		Subscription: user.Subscription,
	}})
}

func (ac *AuthController) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := ac.Tokens.GenerateToken(user.ID)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(status, authResponse{Token: token, User: toPublicUser(user)})
}
