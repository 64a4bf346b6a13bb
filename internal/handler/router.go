package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nl2flow/internal/middleware"
)

// Router 注册路由与中间件；metricsHandler 为 nil 时不暴露 /metrics
func Router(svc AutomationService, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger())

	h := NewAutomationHandler(svc)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/automations", h.Create)
	}
	r.POST("/api/nl2flow", h.Create)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	return r
}
