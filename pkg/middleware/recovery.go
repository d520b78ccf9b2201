package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"essay-tutor-backend/utilities"
)

// Recovery turns a panicking handler into a plain 500.
func Recovery(log *utilities.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	})
}
