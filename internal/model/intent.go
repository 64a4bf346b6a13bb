package model

import "strings"

// IntentKind 自动化请求的意图类别，五选一
type IntentKind string

const (
	IntentSchedule IntentKind = "schedule"
	IntentWebhook  IntentKind = "webhook"
	IntentRunNow   IntentKind = "run_now"
	IntentChat     IntentKind = "chat"
	IntentUnknown  IntentKind = "unknown"
)

// DefaultCron 未解析到时间时的定时表达式（每天 9 点）
const DefaultCron = "0 9 * * *"

// DefaultImmediateTarget run 之后未解析到目标名时使用的默认脚本名
const DefaultImmediateTarget = "gmail_summary"

// ParseIntentKind 将任意字符串收敛到五个合法值之一，无法识别的一律视为 unknown
func ParseIntentKind(s string) IntentKind {
	switch IntentKind(strings.ToLower(strings.TrimSpace(s))) {
	case IntentSchedule:
		return IntentSchedule
	case IntentWebhook:
		return IntentWebhook
	case IntentRunNow, "runnow", "run-now", "immediate":
		return IntentRunNow
	case IntentChat:
		return IntentChat
	default:
		return IntentUnknown
	}
}

// AutomationIntent 分类器输出：从自由文本中提取的结构化意图
type AutomationIntent struct {
	Kind   IntentKind `json:"kind"`
	Action string     `json:"action,omitempty"` // summarize, send ...
	Source string     `json:"source,omitempty"` // gmail, airtable, webhook ...
	Target string     `json:"target,omitempty"` // slack, email ...
	// CronExpression 仅 Kind=schedule 时有值
	CronExpression string `json:"cron_expression,omitempty"`
	// ImmediateTargetName 仅 Kind=run_now 时有值
	ImmediateTargetName string `json:"immediate_target_name,omitempty"`
}

// Normalize 保证 CronExpression / ImmediateTargetName 与 Kind 一致
func (i AutomationIntent) Normalize() AutomationIntent {
	i.Kind = ParseIntentKind(string(i.Kind))
	switch i.Kind {
	case IntentSchedule:
		i.ImmediateTargetName = ""
		if i.CronExpression == "" {
			i.CronExpression = DefaultCron
		}
	case IntentRunNow:
		i.CronExpression = ""
		if i.ImmediateTargetName == "" {
			i.ImmediateTargetName = DefaultImmediateTarget
		}
	default:
		i.CronExpression = ""
		i.ImmediateTargetName = ""
	}
	return i
}
