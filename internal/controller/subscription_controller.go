package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/internal/service"
	"essay-tutor-backend/utilities"
)

type updateSubscriptionRequest struct {
	Plan string `json:"plan" binding:"required,oneof=FREE PRO TEAM"`
}

type SubscriptionController struct {
	SubscriptionService service.SubscriptionService
	Log                 *utilities.Logger
}

func NewSubscriptionController(subscriptionService service.SubscriptionService, log *utilities.Logger) *SubscriptionController {
	return &SubscriptionController{SubscriptionService: subscriptionService, Log: log}
}

func (sc *SubscriptionController) Update(c *gin.Context) {
	userID, ok := utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err)
		return
	}

	sub, err := sc.SubscriptionService.Upsert(c.Request.Context(), userID, model.SubscriptionPlan(req.Plan))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (sc *SubscriptionController) Current(c *gin.Context) {
	userID, ok := utilities.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	sub, err := sc.SubscriptionService.Current(c.Request.Context(), userID)
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
