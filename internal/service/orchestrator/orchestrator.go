package orchestrator

import (
	"context"
	"fmt"

	"nl2flow/internal/client/windmill"
	"nl2flow/internal/logger"
	"nl2flow/internal/model"
)

// Platform 编排器需要的平台能力（windmill.Client 实现）
type Platform interface {
	EnsureResource(ctx context.Context, r windmill.Resource) (bool, error)
	CreateScript(ctx context.Context, s windmill.Script) (string, error)
	CreateFlow(ctx context.Context, f windmill.Flow) (string, error)
	CreateSchedule(ctx context.Context, s windmill.Schedule) (string, error)
}

// Recorder 操作计数（metrics.Metrics 实现）
type Recorder interface {
	OperationDone(operation, status string)
}

const noteAlreadyExists = "already exists"

// Orchestrator 按依赖顺序把计划落到平台上；单个操作失败不影响兄弟操作
type Orchestrator struct {
	platform Platform
	recorder Recorder
}

// New 创建编排器，recorder 可为 nil
func New(platform Platform, recorder Recorder) *Orchestrator {
	return &Orchestrator{platform: platform, recorder: recorder}
}

// Apply 顺序执行计划中的全部操作，返回逐项报告；不返回错误
func (o *Orchestrator) Apply(ctx context.Context, plan model.WorkflowPlan) model.ExecutionReport {
	log := logger.FromContext(ctx)
	ops := plan.Operations()

	if err := plan.Validate(); err != nil {
		log.Error("plan rejected before apply", "err", err)
		report := model.ExecutionReport{}
		for _, op := range ops {
			report.Results = append(report.Results, o.record(op, model.OperationResult{
				Operation: op.Kind,
				Path:      op.Path,
				Status:    model.StatusFailed,
				Error:     err.Error(),
				ErrorKind: model.ErrorKind(err),
			}))
		}
		return report
	}

	flow, _ := plan.Flow()
	schedule, _ := plan.Schedule()
	resourcesByPath := make(map[string]model.ResourceSpec)
	for _, r := range plan.Resources() {
		resourcesByPath[r.Path] = r
	}
	scriptsByPath := make(map[string]model.ScriptSpec)
	for _, s := range plan.Scripts() {
		scriptsByPath[s.Path] = s
	}

	report := model.ExecutionReport{Success: true}
	flowOK := true
	for _, op := range ops {
		res := model.OperationResult{Operation: op.Kind, Path: op.Path}

		switch op.Kind {
		case model.OpCreateSchedule, model.OpComputeWebhookURL:
			if !flowOK {
				res.Status = model.StatusSkipped
				res.Note = fmt.Sprintf("flow %s was not created", flow.Path)
				report.Results = append(report.Results, o.record(op, res))
				log.Warn("operation skipped", "operation", op.Kind, "path", op.Path)
				continue
			}
		}

		var (
			id      string
			err     error
			existed bool
		)
		switch op.Kind {
		case model.OpEnsureResource:
			var created bool
			created, err = o.platform.EnsureResource(ctx, ToResource(resourcesByPath[op.Path]))
			existed = err == nil && !created
			if created {
				id = op.Path
			}
		case model.OpCreateScript:
			id, err = o.platform.CreateScript(ctx, ToScript(scriptsByPath[op.Path]))
		case model.OpCreateFlow:
			id, err = o.platform.CreateFlow(ctx, ToFlow(flow))
		case model.OpCreateSchedule:
			id, err = o.platform.CreateSchedule(ctx, ToSchedule(schedule))
		case model.OpComputeWebhookURL:
			// 地址已由编译器算出，这里只登记
		}

		switch {
		case existed:
			res.Status = model.StatusSucceeded
			res.Note = noteAlreadyExists
		case err == nil:
			res.Status = model.StatusSucceeded
			res.RemoteID = id
		case windmill.IsAlreadyExists(err):
			res.Status = model.StatusSucceeded
			res.Note = noteAlreadyExists
		default:
			res.Status = model.StatusFailed
			res.Error = err.Error()
			res.ErrorKind = model.ErrorKind(err)
			if op.Required {
				report.Success = false
			}
			if op.Kind == model.OpCreateFlow {
				flowOK = false
			}
		}

		if res.Status == model.StatusFailed {
			log.Warn("operation failed", "operation", op.Kind, "path", op.Path, "kind", res.ErrorKind, "err", err)
		} else {
			log.Info("operation done", "operation", op.Kind, "path", op.Path, "note", res.Note)
		}
		report.Results = append(report.Results, o.record(op, res))
	}
	return report
}

func (o *Orchestrator) record(op model.Operation, res model.OperationResult) model.OperationResult {
	if o.recorder != nil {
		o.recorder.OperationDone(string(op.Kind), string(res.Status))
	}
	return res
}
