package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nl2flow/internal/logger"
	"nl2flow/internal/model"
)

// Recovery 恢复 panic 的中间件；响应保持 AutomationResponse 结构
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context()).Error("panic recovered", "err", err, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.AutomationResponse{
					Success: false,
					Message: "internal server error",
					Details: map[string]any{},
				})
			}
		}()
		c.Next()
	}
}
