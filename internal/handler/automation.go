package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nl2flow/internal/model"
)

// AutomationService 处理器依赖的核心边界（service.AutomationService 实现）
type AutomationService interface {
	Handle(ctx context.Context, req model.AutomationRequest) model.AutomationResponse
}

// AutomationHandler 处理自动化请求
type AutomationHandler struct {
	svc AutomationService
}

// NewAutomationHandler 创建处理器
func NewAutomationHandler(svc AutomationService) *AutomationHandler {
	return &AutomationHandler{svc: svc}
}

// Create 接收自由文本并创建/执行自动化；业务失败以 success=false 返回 200
// POST /api/v1/automations
// POST /api/nl2flow
func (h *AutomationHandler) Create(c *gin.Context) {
	var req model.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.AutomationResponse{
			Success: false,
			Message: "invalid request: " + err.Error(),
			Details: map[string]any{},
		})
		return
	}
	c.JSON(http.StatusOK, h.svc.Handle(c.Request.Context(), req))
}
