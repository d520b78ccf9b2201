package controller

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all route groups and their endpoints.
// requireAuth guards every route except health, register and login;
// authLimit throttles the /auth group.
func RegisterRoutes(r *gin.Engine,
	requireAuth gin.HandlerFunc,
	authLimit gin.HandlerFunc,
	authCtrl *AuthController,
	essayCtrl *EssayController,
	subscriptionCtrl *SubscriptionController,
) {
	healthCtrl := NewHealthController()
	r.GET("/health", healthCtrl.Health)

	authRoutes := r.Group("/auth", authLimit)
	{
		authRoutes.POST("/register", authCtrl.Register)
		authRoutes.POST("/login", authCtrl.Login)
		authRoutes.GET("/me", requireAuth, authCtrl.Me)
	}

	essayRoutes := r.Group("/essays", requireAuth)
	{
		essayRoutes.GET("", essayCtrl.List)
		essayRoutes.POST("/generate", essayCtrl.Generate)
		essayRoutes.GET("/:essayId", essayCtrl.Get)
		essayRoutes.POST("/:essayId/review", essayCtrl.Review)
		essayRoutes.POST("/:essayId/revise", essayCtrl.Revise)
		essayRoutes.POST("/:essayId/finalize", essayCtrl.Finalize)
		essayRoutes.GET("/:essayId/export", essayCtrl.Export)
	}

	subscriptionRoutes := r.Group("/subscriptions", requireAuth)
	{
		subscriptionRoutes.POST("/update", subscriptionCtrl.Update)
		subscriptionRoutes.GET("/current", subscriptionCtrl.Current)
	}
}
