package model

import "errors"

var (
	ErrConfigurationMissing = errors.New("workflow platform configuration missing")
	ErrPlatformUnreachable  = errors.New("workflow platform unreachable")
	ErrPlatformRejected     = errors.New("workflow platform rejected request")
	ErrAlreadyExists        = errors.New("resource already exists")
	ErrPlanInvalid          = errors.New("workflow plan invalid")
	ErrLLMUnavailable       = errors.New("llm service unavailable")
)

// ErrorKind 将错误归类为对外暴露的失败类型名（用于 ExecutionReport）
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPlatformUnreachable):
		return "PlatformUnreachable"
	case errors.Is(err, ErrPlatformRejected):
		return "PlatformRejected"
	case errors.Is(err, ErrPlanInvalid):
		return "PlanInvalid"
	case errors.Is(err, ErrConfigurationMissing):
		return "ConfigurationMissing"
	default:
		return "PlatformUnreachable"
	}
}
