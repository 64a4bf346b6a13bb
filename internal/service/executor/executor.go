package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nl2flow/internal/client/windmill"
	"nl2flow/internal/logger"
	"nl2flow/internal/model"
	"nl2flow/internal/service/orchestrator"
)

// State 立即执行状态机
type State string

const (
	StateScriptEnsured State = "ScriptEnsured"
	StateTriggered     State = "Triggered"
	StatePolling       State = "Polling"
	StateResolved      State = "Resolved"
	StateTimedOut      State = "TimedOut"
)

// SampleNote 样例数据标注，TimedOut 时追加在消息末尾
const SampleNote = "_Note: Using sample data - workflow execution pending_"

// 触发参数固定
var runArgs = map[string]any{"since_minutes": 60, "max_count": 3}

// Platform 立即执行需要的平台能力（windmill.Client 实现）
type Platform interface {
	CreateScript(ctx context.Context, s windmill.Script) (string, error)
	RunScript(ctx context.Context, path string, args map[string]any) (string, error)
	GetJob(ctx context.Context, id string) (windmill.Job, error)
}

// Recorder 终态计数（metrics.Metrics 实现）
type Recorder interface {
	ImmediateRunDone(state string)
}

// Options 执行参数
type Options struct {
	// PollDelay 触发后等待一次再取结果
	PollDelay time.Duration
}

// RunOutcome 执行结果；TimedOut 时 FailedAt/Err 记录失败位置与原因，不对外报错
type RunOutcome struct {
	State       State
	FailedAt    State
	Message     string
	JobID       string
	ScriptPath  string
	Mock        bool
	Err         error
	Transitions []State
}

// Executed 平台真实返回了结果
func (o RunOutcome) Executed() bool {
	return o.State == StateResolved
}

// Runner 确保脚本、触发、等待一次、取一次结果
type Runner struct {
	platform Platform
	opts     Options
	recorder Recorder
}

// NewRunner 创建执行器，recorder 可为 nil
func NewRunner(platform Platform, opts Options, recorder Recorder) *Runner {
	if opts.PollDelay <= 0 {
		opts.PollDelay = time.Second
	}
	return &Runner{platform: platform, opts: opts, recorder: recorder}
}

// Run 任何失败都收敛到 TimedOut 并返回带标注的样例数据
func (r *Runner) Run(ctx context.Context, plan model.WorkflowPlan) RunOutcome {
	log := logger.FromContext(ctx)
	out := r.run(ctx, plan)
	if out.State == StateTimedOut {
		log.Warn("immediate run degraded to sample data", "script", out.ScriptPath, "failed_at", out.FailedAt, "err", out.Err)
	} else {
		log.Info("immediate run resolved", "script", out.ScriptPath, "job_id", out.JobID)
	}
	if r.recorder != nil {
		r.recorder.ImmediateRunDone(string(out.State))
	}
	return out
}

func (r *Runner) run(ctx context.Context, plan model.WorkflowPlan) RunOutcome {
	scripts := plan.Scripts()
	if len(scripts) != 1 {
		out := RunOutcome{}
		return out.timedOut(StateScriptEnsured, fmt.Errorf("%w: immediate run needs exactly one script, got %d", model.ErrPlanInvalid, len(scripts)))
	}
	script := scripts[0]
	out := RunOutcome{ScriptPath: script.Path}

	if _, err := r.platform.CreateScript(ctx, orchestrator.ToScript(script)); err != nil && !windmill.IsAlreadyExists(err) {
		return out.timedOut(StateScriptEnsured, err)
	}
	out.Transitions = append(out.Transitions, StateScriptEnsured)

	jobID, err := r.platform.RunScript(ctx, script.Path, runArgs)
	if err != nil {
		return out.timedOut(StateTriggered, err)
	}
	out.JobID = jobID
	out.Transitions = append(out.Transitions, StateTriggered)

	if err := sleep(ctx, r.opts.PollDelay); err != nil {
		return out.timedOut(StatePolling, err)
	}
	out.Transitions = append(out.Transitions, StatePolling)

	job, err := r.platform.GetJob(ctx, jobID)
	switch {
	case err != nil:
		return out.timedOut(StatePolling, err)
	case !job.Completed():
		return out.timedOut(StatePolling, errors.New("job not completed after wait"))
	case !job.Succeeded():
		return out.timedOut(StatePolling, fmt.Errorf("job failed: %s", strings.TrimSpace(string(job.Result))))
	}

	out.State = StateResolved
	out.Transitions = append(out.Transitions, StateResolved)
	out.Message = FormatResult(job.Result)
	return out
}

func (o RunOutcome) timedOut(at State, err error) RunOutcome {
	o.State = StateTimedOut
	o.FailedAt = at
	o.Err = err
	o.Mock = true
	o.Transitions = append(o.Transitions, StateTimedOut)
	o.Message = FormatResult(sampleFor(o.ScriptPath)) + "\n\n" + SampleNote
	return o
}

// sampleFor 按脚本名挑选样例结果
func sampleFor(scriptPath string) []byte {
	name := scriptPath[strings.LastIndex(scriptPath, "/")+1:]
	if strings.Contains(name, "latest") || strings.Contains(name, "recent") {
		return []byte(`[{"from":"team@company.com","subject":"Weekly standup notes","snippet":"Here are this week's updates...","received":"just now"}]`)
	}
	return []byte(`{"summary":"📨 Email Summary\n\n1. Meeting invite from Sarah\n2. GitHub notifications (3)\n3. Slack digest","count":3,"urgent":1}`)
}

// sleep 可被 ctx 取消的等待
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
