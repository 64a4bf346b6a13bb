package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nl2flow/internal/model"
)

// RuleBased 基于关键词的确定性分类器，始终可用
type RuleBased struct{}

// NewRuleBased 创建规则分类器
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

var (
	scheduleKeywords = []string{"every day", "daily", "every hour", "schedule"}
	webhookSources   = []string{"airtable", "slack", "gmail", "webhook"}

	timeRE     = regexp.MustCompile(`at (\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)
	runWordRE  = regexp.MustCompile(`\brun\b`)
	runNameRE  = regexp.MustCompile(`run\s+(?:the\s+)?(\S+)`)
	greetingRE = regexp.MustCompile(`\b(hi|hello)\b`)
)

// defaultHour 未解析到时间时的小时
const defaultHour = 9

// Classify 全函数：任何输入都返回一个意图，无法理解时为 unknown
func (r *RuleBased) Classify(_ context.Context, prompt string) model.AutomationIntent {
	return Rules(prompt)
}

// Rules 规则分类的纯函数形式
func Rules(prompt string) model.AutomationIntent {
	text := strings.ToLower(prompt)
	intent := model.AutomationIntent{Kind: model.IntentUnknown}

	switch {
	case containsAny(text, scheduleKeywords):
		intent.Kind = model.IntentSchedule
		intent.CronExpression = CronForHour(ParseHour(text))
	case strings.Contains(text, "when"):
		intent.Kind = model.IntentWebhook
		intent.Source = earliest(text, webhookSources)
	case runWordRE.MatchString(text):
		intent.Kind = model.IntentRunNow
		intent.ImmediateTargetName = RunTarget(text)
	case greetingRE.MatchString(text):
		intent.Kind = model.IntentChat
	}

	// 次要字段与分支无关：schedule 也需要 action/source 来选择脚本模板
	if strings.Contains(text, "summarize") {
		intent.Action = "summarize"
		if strings.Contains(text, "gmail") || strings.Contains(text, "email") {
			intent.Source = "gmail"
		}
	}
	if strings.Contains(text, "send") {
		if intent.Action == "" {
			intent.Action = "send"
		}
		switch {
		case strings.Contains(text, "slack"):
			intent.Target = "slack"
		case strings.Contains(text, "email"):
			intent.Target = "email"
		}
	}
	return intent.Normalize()
}

// ParseHour 解析 "at hh[:mm] [am|pm]"，返回 0-23；无法解析返回 9
func ParseHour(text string) int {
	m := timeRE.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return defaultHour
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultHour
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour < 0 || hour > 23 {
		return defaultHour
	}
	return hour
}

// CronForHour 分钟固定为 0
func CronForHour(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// RunTarget 取 run 之后的第一个词（可跳过 the）。多词目标会被截断，如 "sales report" -> "sales"
func RunTarget(text string) string {
	m := runNameRE.FindStringSubmatch(strings.ToLower(text))
	if m == nil || m[1] == "now" {
		return model.DefaultImmediateTarget
	}
	return m[1]
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// earliest 返回在文本中最先出现的候选词
func earliest(text string, words []string) string {
	best, bestPos := "", -1
	for _, w := range words {
		if pos := strings.Index(text, w); pos >= 0 && (bestPos < 0 || pos < bestPos) {
			best, bestPos = w, pos
		}
	}
	return best
}
