package model

import (
	"encoding/json"
	"fmt"
)

// ScriptSpec 待创建的脚本；Path 由意图确定性推导，作为幂等键
type ScriptSpec struct {
	Path        string `json:"path"`
	Language    string `json:"language"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// ResourceSpec flow 绑定的平台资源（如 u/user/gmail）；不存在时以占位值创建
type ResourceSpec struct {
	Path         string            `json:"path"`
	ResourceType string            `json:"resource_type"`
	Value        map[string]string `json:"value"`
	Description  string            `json:"description"`
}

// ModuleKind flow 步骤类型
type ModuleKind string

const (
	// ModuleScript 引用本计划中创建的脚本
	ModuleScript ModuleKind = "script"
	// ModuleTrigger 内联的触发器桩（原样返回请求体）
	ModuleTrigger ModuleKind = "trigger"
)

// InputBinding 步骤入参绑定；Static 与 Expr 二选一
type InputBinding struct {
	Name   string `json:"name"`
	Static string `json:"static,omitempty"`
	Expr   string `json:"expr,omitempty"`
}

// FlowModule flow 中的一个步骤
type FlowModule struct {
	ID         string         `json:"id"`
	Kind       ModuleKind     `json:"kind"`
	ScriptPath string         `json:"script_path,omitempty"`
	Language   string         `json:"language,omitempty"`
	Content    string         `json:"content,omitempty"`
	Inputs     []InputBinding `json:"inputs,omitempty"`
}

// FlowSpec 待创建的 flow
type FlowSpec struct {
	Path    string       `json:"path"`
	Summary string       `json:"summary"`
	Modules []FlowModule `json:"modules"`
}

// ScheduleSpec 待创建的定时调度，TargetFlowPath 必须指向本计划中的 flow
type ScheduleSpec struct {
	Path           string `json:"path"`
	Cron           string `json:"cron"`
	TargetFlowPath string `json:"target_flow_path"`
	Timezone       string `json:"timezone"`
	Enabled        bool   `json:"enabled"`
	Summary        string `json:"summary,omitempty"`
}

// OperationKind 计划中的远端操作类型
type OperationKind string

const (
	OpEnsureResource    OperationKind = "ensure_resource"
	OpCreateScript      OperationKind = "create_script"
	OpCreateFlow        OperationKind = "create_flow"
	OpCreateSchedule    OperationKind = "create_schedule"
	OpComputeWebhookURL OperationKind = "compute_webhook_url"
)

// Operation 计划展开后的单个操作
type Operation struct {
	Kind     OperationKind `json:"kind"`
	Path     string        `json:"path"`
	Required bool          `json:"required"`
}

// WorkflowPlan 编译器输出，构建后不可变；只能通过 PlanBuilder 生成
type WorkflowPlan struct {
	resources  []ResourceSpec
	scripts    []ScriptSpec
	flow       *FlowSpec
	schedule   *ScheduleSpec
	webhookURL string
	message    string
}

// Resources 返回资源列表副本
func (p WorkflowPlan) Resources() []ResourceSpec {
	out := make([]ResourceSpec, len(p.resources))
	for i, r := range p.resources {
		out[i] = copyResource(r)
	}
	return out
}

// Scripts 返回脚本列表副本
func (p WorkflowPlan) Scripts() []ScriptSpec {
	return append([]ScriptSpec(nil), p.scripts...)
}

// Flow 返回 flow 副本
func (p WorkflowPlan) Flow() (FlowSpec, bool) {
	if p.flow == nil {
		return FlowSpec{}, false
	}
	return copyFlow(*p.flow), true
}

// Schedule 返回调度副本
func (p WorkflowPlan) Schedule() (ScheduleSpec, bool) {
	if p.schedule == nil {
		return ScheduleSpec{}, false
	}
	return *p.schedule, true
}

func (p WorkflowPlan) WebhookURL() string { return p.webhookURL }

func (p WorkflowPlan) Message() string { return p.message }

// IsEmpty 没有任何远端操作（chat / unknown 等）
func (p WorkflowPlan) IsEmpty() bool {
	return len(p.resources) == 0 && len(p.scripts) == 0 && p.flow == nil && p.schedule == nil
}

// Operations 按依赖顺序展开：资源 -> 脚本 -> flow -> 调度 -> webhook 地址
func (p WorkflowPlan) Operations() []Operation {
	var ops []Operation
	for _, r := range p.resources {
		ops = append(ops, Operation{Kind: OpEnsureResource, Path: r.Path})
	}
	for _, s := range p.scripts {
		ops = append(ops, Operation{Kind: OpCreateScript, Path: s.Path, Required: true})
	}
	if p.flow != nil {
		ops = append(ops, Operation{Kind: OpCreateFlow, Path: p.flow.Path, Required: true})
	}
	if p.schedule != nil {
		ops = append(ops, Operation{Kind: OpCreateSchedule, Path: p.schedule.Path})
	}
	if p.webhookURL != "" {
		ops = append(ops, Operation{Kind: OpComputeWebhookURL, Path: p.webhookURL})
	}
	return ops
}

// Validate 检查计划内所有引用均可解析；悬空引用属于编译器缺陷
func (p WorkflowPlan) Validate() error {
	resources := make(map[string]bool, len(p.resources))
	for _, r := range p.resources {
		if r.Path == "" || r.ResourceType == "" {
			return fmt.Errorf("%w: resource without path or type", ErrPlanInvalid)
		}
		if resources[r.Path] {
			return fmt.Errorf("%w: duplicate resource path %s", ErrPlanInvalid, r.Path)
		}
		resources[r.Path] = true
	}
	if len(p.resources) > 0 && p.flow == nil {
		return fmt.Errorf("%w: resources without flow", ErrPlanInvalid)
	}
	scripts := make(map[string]bool, len(p.scripts))
	for _, s := range p.scripts {
		if s.Path == "" {
			return fmt.Errorf("%w: script without path", ErrPlanInvalid)
		}
		if scripts[s.Path] {
			return fmt.Errorf("%w: duplicate script path %s", ErrPlanInvalid, s.Path)
		}
		scripts[s.Path] = true
	}
	if p.flow != nil {
		if p.flow.Path == "" {
			return fmt.Errorf("%w: flow without path", ErrPlanInvalid)
		}
		for _, m := range p.flow.Modules {
			if m.Kind == ModuleScript && !scripts[m.ScriptPath] {
				return fmt.Errorf("%w: module %s references unknown script %s", ErrPlanInvalid, m.ID, m.ScriptPath)
			}
		}
	}
	if p.schedule != nil {
		if p.flow == nil || p.schedule.TargetFlowPath != p.flow.Path {
			return fmt.Errorf("%w: schedule %s references unknown flow %s", ErrPlanInvalid, p.schedule.Path, p.schedule.TargetFlowPath)
		}
	}
	if p.webhookURL != "" && p.flow == nil {
		return fmt.Errorf("%w: webhook url without flow", ErrPlanInvalid)
	}
	return nil
}

type planJSON struct {
	Resources  []ResourceSpec `json:"resources,omitempty"`
	Scripts    []ScriptSpec   `json:"scripts,omitempty"`
	Flow       *FlowSpec      `json:"flow,omitempty"`
	Schedule   *ScheduleSpec  `json:"schedule,omitempty"`
	WebhookURL string         `json:"webhook_url,omitempty"`
	Message    string         `json:"message"`
}

// MarshalJSON 用于 dry-run 输出与调试
func (p WorkflowPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(planJSON{
		Resources:  p.resources,
		Scripts:    p.scripts,
		Flow:       p.flow,
		Schedule:   p.schedule,
		WebhookURL: p.webhookURL,
		Message:    p.message,
	})
}

// PlanBuilder 累积类型化的操作记录，Build 时一次性产出不可变计划
type PlanBuilder struct {
	plan WorkflowPlan
}

func NewPlanBuilder() *PlanBuilder {
	return &PlanBuilder{}
}

func (b *PlanBuilder) AddResource(r ResourceSpec) *PlanBuilder {
	b.plan.resources = append(b.plan.resources, copyResource(r))
	return b
}

func (b *PlanBuilder) AddScript(s ScriptSpec) *PlanBuilder {
	b.plan.scripts = append(b.plan.scripts, s)
	return b
}

func (b *PlanBuilder) SetFlow(f FlowSpec) *PlanBuilder {
	f = copyFlow(f)
	b.plan.flow = &f
	return b
}

func (b *PlanBuilder) SetSchedule(s ScheduleSpec) *PlanBuilder {
	b.plan.schedule = &s
	return b
}

func (b *PlanBuilder) SetWebhookURL(url string) *PlanBuilder {
	b.plan.webhookURL = url
	return b
}

func (b *PlanBuilder) SetMessage(msg string) *PlanBuilder {
	b.plan.message = msg
	return b
}

// Build 校验并返回计划；builder 之后的修改不会影响已返回的计划
func (b *PlanBuilder) Build() (WorkflowPlan, error) {
	p := b.plan
	p.resources = make([]ResourceSpec, len(b.plan.resources))
	for i, r := range b.plan.resources {
		p.resources[i] = copyResource(r)
	}
	p.scripts = append([]ScriptSpec(nil), b.plan.scripts...)
	if b.plan.flow != nil {
		f := copyFlow(*b.plan.flow)
		p.flow = &f
	}
	if b.plan.schedule != nil {
		s := *b.plan.schedule
		p.schedule = &s
	}
	if err := p.Validate(); err != nil {
		return WorkflowPlan{}, err
	}
	return p, nil
}

func copyFlow(f FlowSpec) FlowSpec {
	modules := make([]FlowModule, len(f.Modules))
	for i, m := range f.Modules {
		m.Inputs = append([]InputBinding(nil), m.Inputs...)
		modules[i] = m
	}
	f.Modules = modules
	return f
}

func copyResource(r ResourceSpec) ResourceSpec {
	if r.Value != nil {
		v := make(map[string]string, len(r.Value))
		for k, val := range r.Value {
			v[k] = val
		}
		r.Value = v
	}
	return r
}
