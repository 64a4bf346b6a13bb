package model

// AutomationRequest 调用方传入的自由文本请求
type AutomationRequest struct {
	// Prompt 用户输入，如 "summarize my gmail every day at 9am"
	Prompt string `json:"prompt" binding:"required"`
}

// AutomationResponse 处理结果；Details 只放路径、任务 ID 等可展示信息，不放任何密钥
type AutomationResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
