package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/middleware/requestid"
)

// ErrorLog captures failed requests into the persistent error trail.
func ErrorLog(errorLogs *service.ErrorLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if errorLogs == nil || status < 500 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			userID = &user.UserID
		}

		message := ""
		if len(c.Errors) > 0 {
			message = c.Errors.Last().Error()
		}

		errorLogs.Record(c.Request.Context(), &models.ErrorLog{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			StatusCode: status,
			Message:    message,
			RequestID:  requestid.Value(c),
			UserID:     userID,
		})
	}
}
