package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"nl2flow/config"
	"nl2flow/internal/client/llm"
	"nl2flow/internal/client/windmill"
	"nl2flow/internal/logger"
	"nl2flow/internal/metrics"
	"nl2flow/internal/model"
	"nl2flow/internal/service/classifier"
	"nl2flow/internal/service/compiler"
	"nl2flow/internal/service/executor"
	"nl2flow/internal/service/orchestrator"
)

const (
	msgGenericFailure = "Something went wrong while preparing your automation. Please try again."
	msgNotConfigured  = "Windmill is not configured"
)

// AutomationService 核心边界：分类 -> 编译 -> 落地/立即执行；不向调用方抛错
type AutomationService struct {
	platformCfg  config.WindmillConfig
	classifier   classifier.Classifier
	compiler     *compiler.Compiler
	orchestrator *orchestrator.Orchestrator
	runner       *executor.Runner
	metrics      *metrics.Metrics
}

// NewAutomationService 组装核心组件
func NewAutomationService(
	platformCfg config.WindmillConfig,
	cls classifier.Classifier,
	comp *compiler.Compiler,
	orch *orchestrator.Orchestrator,
	runner *executor.Runner,
	m *metrics.Metrics,
) *AutomationService {
	return &AutomationService{
		platformCfg:  platformCfg,
		classifier:   cls,
		compiler:     comp,
		orchestrator: orch,
		runner:       runner,
		metrics:      m,
	}
}

// NewFromConfig 按配置构建平台与大模型客户端并组装服务；m 可为 nil
func NewFromConfig(cfg *config.Config, m *metrics.Metrics) *AutomationService {
	platform := windmill.NewClient(windmill.Config{
		Host:      cfg.Windmill.Host,
		Token:     cfg.Windmill.Token,
		Workspace: cfg.Windmill.Workspace,
		Timeout:   cfg.Windmill.Timeout,
	})
	return NewAutomationService(
		cfg.Windmill,
		NewClassifier(cfg, m),
		compiler.New(compiler.OptionsFromConfig(cfg)),
		orchestrator.New(platform, m),
		executor.NewRunner(platform, executor.Options{PollDelay: cfg.Runner.PollDelay}, m),
		m,
	)
}

// NewClassifier 配置了大模型 key 时使用 LLM 分类，否则使用规则
func NewClassifier(cfg *config.Config, m *metrics.Metrics) classifier.Classifier {
	var completer classifier.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.NewClient(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Timeout:  cfg.LLM.Timeout,
		})
	}
	return classifier.New(cfg.LLM, completer, m)
}

// Handle 处理一条自由文本请求
func (s *AutomationService) Handle(ctx context.Context, req model.AutomationRequest) model.AutomationResponse {
	requestID := uuid.NewString()
	log := logger.FromContext(ctx).With("request_id", requestID)
	ctx = logger.WithContext(ctx, log)
	details := map[string]any{"request_id": requestID}

	// 1. 配置缺失时不发起任何远端请求
	if err := s.platformCfg.Validate(); err != nil {
		log.Error("platform configuration missing", "err", err)
		return model.AutomationResponse{
			Success: false,
			Message: fmt.Sprintf("%s: %v", msgNotConfigured, err),
			Details: details,
		}
	}

	// 2. 分类与编译
	intent := s.classifier.Classify(ctx, req.Prompt)
	s.metrics.IntentClassified(string(intent.Kind))
	details["intent"] = string(intent.Kind)
	log.Info("request classified", "kind", intent.Kind, "action", intent.Action, "source", intent.Source, "target", intent.Target)

	plan, err := s.compiler.Compile(intent)
	if err != nil {
		log.Error("compile plan failed", "err", err)
		return model.AutomationResponse{Success: false, Message: msgGenericFailure, Details: details}
	}

	// 3. 按意图落地
	switch intent.Kind {
	case model.IntentChat:
		return model.AutomationResponse{Success: true, Message: plan.Message(), Details: details}
	case model.IntentUnknown:
		return model.AutomationResponse{Success: false, Message: plan.Message(), Details: details}
	case model.IntentRunNow:
		return s.runNow(ctx, plan, details)
	default:
		if plan.IsEmpty() {
			return model.AutomationResponse{Success: false, Message: plan.Message(), Details: details}
		}
		return s.apply(ctx, intent, plan, details)
	}
}

func (s *AutomationService) apply(ctx context.Context, intent model.AutomationIntent, plan model.WorkflowPlan, details map[string]any) model.AutomationResponse {
	report := s.orchestrator.Apply(ctx, plan)

	scripts := make([]string, 0, len(plan.Scripts()))
	for _, sc := range plan.Scripts() {
		scripts = append(scripts, sc.Path)
	}
	details["scripts"] = scripts
	if flow, ok := plan.Flow(); ok {
		details["flow"] = flow.Path
	}
	if sched, ok := plan.Schedule(); ok {
		details["schedule"] = sched.Path
		details["cron"] = intent.CronExpression
	}
	if res, ok := report.Result(model.OpComputeWebhookURL); ok && res.Status == model.StatusSucceeded {
		details["webhookUrl"] = plan.WebhookURL()
	}
	details["operations"] = report.Results

	if !report.Success {
		return model.AutomationResponse{
			Success: false,
			Message: "❌ Failed to create automation: " + describeFailures(report),
			Details: details,
		}
	}
	msg := plan.Message()
	if failed := report.Failed(); len(failed) > 0 {
		msg += "\n\n⚠️ Partially applied: " + describeFailures(report)
	}
	return model.AutomationResponse{Success: true, Message: msg, Details: details}
}

func (s *AutomationService) runNow(ctx context.Context, plan model.WorkflowPlan, details map[string]any) model.AutomationResponse {
	out := s.runner.Run(ctx, plan)
	details["executed"] = out.Executed()
	details["mock"] = out.Mock
	details["script"] = out.ScriptPath
	details["state"] = string(out.State)
	if out.JobID != "" {
		details["jobId"] = out.JobID
	}
	return model.AutomationResponse{Success: true, Message: out.Message, Details: details}
}

func describeFailures(report model.ExecutionReport) string {
	failed := report.Failed()
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, fmt.Sprintf("%s %s (%s: %s)", f.Operation, f.Path, f.ErrorKind, f.Error))
	}
	return strings.Join(parts, "; ")
}
