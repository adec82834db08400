package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery converts panics into a 500 response instead of killing the
// process, logging the stack for the incident trail.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					response.ErrorResponse{Error: "internal_error"})
			}
		}()
		c.Next()
	}
}
