package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"

	"nl2flow/internal/logger"
	"nl2flow/internal/model"
)

// Completer 大模型补全能力（由 client/llm.Client 实现），测试中可替换
type Completer interface {
	Chat(ctx context.Context, systemPrompt, userContent string) (string, error)
}

// FallbackRecorder 记录回退次数（metrics.Metrics 实现）
type FallbackRecorder interface {
	LLMFallback()
}

// LanguageModelAssisted 借助大模型提升分类准确率；任何失败都回退到规则结果
type LanguageModelAssisted struct {
	fallback  *RuleBased
	completer Completer
	recorder  FallbackRecorder
}

// NewLanguageModelAssisted 创建 LLM 分类器
func NewLanguageModelAssisted(completer Completer, fallback *RuleBased, recorder FallbackRecorder) *LanguageModelAssisted {
	if fallback == nil {
		fallback = NewRuleBased()
	}
	return &LanguageModelAssisted{fallback: fallback, completer: completer, recorder: recorder}
}

// 系统提示：要求大模型只返回与 AutomationIntent 同结构的 JSON
const systemPrompt = `You classify workflow automation requests. Output ONLY one JSON object, no markdown, no explanation.

Format:
{
  "kind": "schedule" | "webhook" | "run_now" | "chat" | "unknown",
  "action": "summarize" | "send" | null,
  "source": "gmail" | "airtable" | "slack" | "webhook" | null,
  "target": "slack" | "email" | null,
  "cron_expression": "0 <hour> * * *" | null,
  "immediate_target_name": "<script name>" | null
}

RULES:
- "schedule" only when the user says: every day, daily, every hour, schedule. Minute is always 0; default hour is 9.
- "webhook" when something should happen "when" an external event arrives.
- "run_now" when the user asks to run something; immediate_target_name is the word after "run", default "gmail_summary".
- "chat" for greetings such as hi or hello.
- "unknown" for anything else.

Examples:
- "summarize my gmail every day at 9am" -> {"kind":"schedule","action":"summarize","source":"gmail","cron_expression":"0 9 * * *"}
- "when webhook received, send to slack" -> {"kind":"webhook","action":"send","source":"webhook","target":"slack"}
- "run sales report now" -> {"kind":"run_now","immediate_target_name":"sales"}
- "hi" -> {"kind":"chat"}`

type llmIntent struct {
	Kind                string `json:"kind"`
	Action              string `json:"action"`
	Source              string `json:"source"`
	Target              string `json:"target"`
	CronExpression      string `json:"cron_expression"`
	ImmediateTargetName string `json:"immediate_target_name"`
}

// Classify 调大模型解析；API 错误或解析失败时使用规则结果
func (c *LanguageModelAssisted) Classify(ctx context.Context, prompt string) model.AutomationIntent {
	ruled := c.fallback.Classify(ctx, prompt)
	log := logger.FromContext(ctx)

	raw, err := c.completer.Chat(ctx, systemPrompt, "Request: "+prompt)
	if err != nil {
		log.Warn("llm classify failed, using rules", "err", err)
		c.fellBack()
		return ruled
	}
	intent, err := parseIntent(raw)
	if err != nil {
		log.Warn("llm output rejected, using rules", "err", err)
		c.fellBack()
		return ruled
	}
	return reconcile(intent, ruled)
}

func (c *LanguageModelAssisted) fellBack() {
	if c.recorder != nil {
		c.recorder.LLMFallback()
	}
}

func parseIntent(raw string) (model.AutomationIntent, error) {
	raw = ExtractJSON(raw)
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return model.AutomationIntent{}, fmt.Errorf("parse llm output: not a json object")
	}
	var out llmIntent
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.AutomationIntent{}, fmt.Errorf("parse llm output: %w", err)
	}
	return model.AutomationIntent{
		Kind:                model.ParseIntentKind(out.Kind),
		Action:              clean(out.Action),
		Source:              clean(out.Source),
		Target:              clean(out.Target),
		CronExpression:      strings.TrimSpace(out.CronExpression),
		ImmediateTargetName: strings.TrimSpace(out.ImmediateTargetName),
	}, nil
}

// reconcile 补齐大模型遗漏或非法的字段，保证与 Kind 一致；规则已识别的次要字段不会丢失
func reconcile(intent, ruled model.AutomationIntent) model.AutomationIntent {
	if intent.Action == "" {
		intent.Action = ruled.Action
	}
	if intent.Source == "" {
		intent.Source = ruled.Source
	}
	if intent.Target == "" {
		intent.Target = ruled.Target
	}
	switch intent.Kind {
	case model.IntentSchedule:
		if _, err := cron.ParseStandard(intent.CronExpression); intent.CronExpression == "" || err != nil {
			intent.CronExpression = ruled.CronExpression
			if intent.CronExpression == "" {
				intent.CronExpression = model.DefaultCron
			}
		}
	case model.IntentRunNow:
		if intent.ImmediateTargetName == "" {
			intent.ImmediateTargetName = ruled.ImmediateTargetName
		}
	}
	return intent.Normalize()
}

func clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "null" || s == "none" {
		return ""
	}
	return s
}

// ExtractJSON 从回复中提取 JSON（大模型可能带 markdown 代码块）
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	return s
}
