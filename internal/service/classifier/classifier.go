package classifier

import (
	"context"

	"nl2flow/config"
	"nl2flow/internal/model"
)

// Classifier 将自由文本转为结构化意图；全函数，不返回错误
type Classifier interface {
	Classify(ctx context.Context, prompt string) model.AutomationIntent
}

// New 按配置在构造时选择实现：配置了 API key 且提供了 completer 时使用 LLM，否则使用规则
func New(cfg config.LLMConfig, completer Completer, recorder FallbackRecorder) Classifier {
	rules := NewRuleBased()
	if cfg.APIKey == "" || completer == nil {
		return rules
	}
	return NewLanguageModelAssisted(completer, rules, recorder)
}
