package compiler

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"

	"nl2flow/config"
	"nl2flow/internal/client/windmill"
	"nl2flow/internal/model"
)

// 资源绑定与常量
const (
	gmailResourcePath = "u/user/gmail"
	slackResourcePath = "u/user/slack"
	gmailResource     = "$res:" + gmailResourcePath
	slackResource     = "$res:" + slackResourcePath
	// 占位凭据，真实 token 由平台侧替换
	placeholderToken = "mock_token"

	defaultChannel  = "#general"
	webhookMessage  = `flow_input.webhook_body.message || "New webhook received"`
	stepSummaryExpr = "results.step_0.summary"
)

// 提示文案
const (
	chatHelp = "Hi! I can help you:\n" +
		"• Summarize emails daily: 'summarize my gmail every day at 9am'\n" +
		"• React to events: 'when webhook received, send to slack'\n" +
		"• Run something now: 'run gmail_latest'"
	unknownHelp = "I couldn't understand that request. Try: 'summarize my gmail every day at 9am' " +
		"or 'when webhook received, send slack message'"
	scheduleHelp = "I can only schedule Gmail summaries for now. Try: 'summarize my gmail every day at 9am'"
)

// Options 路径前缀与平台信息
type Options struct {
	Folder          string
	ScheduleFolder  string
	InstantFolder   string
	Timezone        string
	PlatformBaseURL string
	Workspace       string
	// EnsureResources 在计划中加入 flow 绑定资源的检查/创建步骤
	EnsureResources bool
}

// OptionsFromConfig 由全局配置组装编译选项
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Folder:          cfg.Compiler.Folder,
		ScheduleFolder:  cfg.Compiler.ScheduleFolder,
		InstantFolder:   cfg.Compiler.InstantFolder,
		Timezone:        cfg.Compiler.Timezone,
		PlatformBaseURL: cfg.Windmill.Host,
		Workspace:       cfg.Windmill.Workspace,
		EnsureResources: cfg.Compiler.EnsureResources,
	}
}

// Compiler 意图 -> 计划的纯函数转换，不做任何 I/O
type Compiler struct {
	opts Options
}

// New 创建编译器，空字段取默认值
func New(opts Options) *Compiler {
	if opts.Folder == "" {
		opts.Folder = "f/automations"
	}
	if opts.ScheduleFolder == "" {
		opts.ScheduleFolder = "f/schedules"
	}
	if opts.InstantFolder == "" {
		opts.InstantFolder = "f/instant"
	}
	if opts.Timezone == "" {
		opts.Timezone = "America/New_York"
	}
	if opts.Workspace == "" {
		opts.Workspace = "main"
	}
	return &Compiler{opts: opts}
}

// Compile 同一意图总是得到同一计划；只在计划自身不一致时返回 ErrPlanInvalid
func (c *Compiler) Compile(intent model.AutomationIntent) (model.WorkflowPlan, error) {
	intent = intent.Normalize()
	switch intent.Kind {
	case model.IntentSchedule:
		return c.compileSchedule(intent)
	case model.IntentWebhook:
		return c.compileWebhook(intent)
	case model.IntentRunNow:
		return c.compileRunNow(intent)
	case model.IntentChat:
		return model.NewPlanBuilder().SetMessage(chatHelp).Build()
	default:
		return model.NewPlanBuilder().SetMessage(unknownHelp).Build()
	}
}

func (c *Compiler) compileSchedule(intent model.AutomationIntent) (model.WorkflowPlan, error) {
	if intent.Action != "summarize" || intent.Source != "gmail" {
		return model.NewPlanBuilder().SetMessage(scheduleHelp).Build()
	}
	if _, err := cron.ParseStandard(intent.CronExpression); err != nil {
		return model.WorkflowPlan{}, fmt.Errorf("%w: cron %q: %v", model.ErrPlanInvalid, intent.CronExpression, err)
	}

	summaryPath := c.path(c.opts.Folder, "gmail_summary")
	flowPath := c.path(c.opts.Folder, "gmail_daily_summary")

	b := model.NewPlanBuilder().AddScript(model.ScriptSpec{
		Path:        summaryPath,
		Language:    scriptLanguage,
		Content:     gmailSummaryScript,
		Description: "Fetch and summarize Gmail emails",
	})
	modules := []model.FlowModule{{
		ID:         "step_0",
		Kind:       model.ModuleScript,
		ScriptPath: summaryPath,
		Inputs:     []model.InputBinding{{Name: "gmail", Static: gmailResource}},
	}}
	c.addResource(b, gmailResourcePath, "gmail", "Gmail OAuth resource")
	summary := "Gmail Daily Summary"
	if intent.Target == "slack" {
		notifyPath := c.path(c.opts.Folder, "slack_notify")
		b.AddScript(notifySpec(notifyPath))
		c.addResource(b, slackResourcePath, "slack", "Slack bot resource")
		modules = append(modules, model.FlowModule{
			ID:         "step_1",
			Kind:       model.ModuleScript,
			ScriptPath: notifyPath,
			Inputs: []model.InputBinding{
				{Name: "message", Expr: stepSummaryExpr},
				{Name: "channel", Static: defaultChannel},
				{Name: "slack", Static: slackResource},
			},
		})
		summary = "Gmail Daily Summary to Slack"
	}

	return b.
		SetFlow(model.FlowSpec{Path: flowPath, Summary: summary, Modules: modules}).
		SetSchedule(model.ScheduleSpec{
			Path:           c.path(c.opts.ScheduleFolder, "gmail_daily_summary"),
			Cron:           intent.CronExpression,
			TargetFlowPath: flowPath,
			Timezone:       c.opts.Timezone,
			Enabled:        true,
			Summary:        summary,
		}).
		SetMessage(fmt.Sprintf("✅ Set up daily Gmail summary at %s:00", cronHour(intent.CronExpression))).
		Build()
}

// compileWebhook 目前只有 Slack 通知脚本，target 缺省或为其他值时都落到 Slack
func (c *Compiler) compileWebhook(intent model.AutomationIntent) (model.WorkflowPlan, error) {
	source := intent.Source
	if source == "" {
		source = "webhook"
	}
	notifyPath := c.path(c.opts.Folder, "slack_notify")
	flowPath := c.path(c.opts.Folder, source+"_to_slack")

	b := model.NewPlanBuilder()
	c.addResource(b, slackResourcePath, "slack", "Slack bot resource")
	return b.
		AddScript(notifySpec(notifyPath)).
		SetFlow(model.FlowSpec{
			Path:    flowPath,
			Summary: "Webhook to Slack",
			Modules: []model.FlowModule{
				{
					ID:       "webhook_trigger",
					Kind:     model.ModuleTrigger,
					Language: scriptLanguage,
					Content:  webhookTriggerScript,
				},
				{
					ID:         "step_1",
					Kind:       model.ModuleScript,
					ScriptPath: notifyPath,
					Inputs: []model.InputBinding{
						{Name: "message", Expr: webhookMessage},
						{Name: "channel", Static: defaultChannel},
						{Name: "slack", Static: slackResource},
					},
				},
			},
		}).
		SetWebhookURL(windmill.WebhookURL(c.opts.PlatformBaseURL, c.opts.Workspace, flowPath)).
		SetMessage("✅ Created webhook → Slack automation").
		Build()
}

func (c *Compiler) compileRunNow(intent model.AutomationIntent) (model.WorkflowPlan, error) {
	name := segment(intent.ImmediateTargetName)
	if name == "" {
		name = model.DefaultImmediateTarget
	}
	content, desc := instantTemplate(name)
	path := c.path(c.opts.InstantFolder, name)
	return model.NewPlanBuilder().
		AddScript(model.ScriptSpec{Path: path, Language: scriptLanguage, Content: content, Description: desc}).
		SetMessage(fmt.Sprintf("▶️ Running %s", path)).
		Build()
}

// instantTemplate 按目标名选择脚本内容
func instantTemplate(name string) (content, description string) {
	switch {
	case strings.Contains(name, "latest") || strings.Contains(name, "recent"):
		return latestEmailsScript, "Instant latest emails"
	case strings.Contains(name, "gmail") || strings.Contains(name, "email") || strings.Contains(name, "summary"):
		return instantSummaryScript, "Instant email summary"
	default:
		return genericScript, "Instant " + name
	}
}

// addResource 仅在开启 EnsureResources 时生效
func (c *Compiler) addResource(b *model.PlanBuilder, path, resourceType, description string) {
	if !c.opts.EnsureResources {
		return
	}
	b.AddResource(model.ResourceSpec{
		Path:         path,
		ResourceType: resourceType,
		Value:        map[string]string{"token": placeholderToken},
		Description:  description,
	})
}

func notifySpec(path string) model.ScriptSpec {
	return model.ScriptSpec{
		Path:        path,
		Language:    scriptLanguage,
		Content:     slackNotifyScript,
		Description: "Send Slack notification",
	}
}

func (c *Compiler) path(folder, name string) string {
	return strings.TrimRight(folder, "/") + "/" + segment(name)
}

// segment 路径片段规范化：slug 后将 - 替换为 _
func segment(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

func cronHour(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return "9"
	}
	return fields[1]
}
