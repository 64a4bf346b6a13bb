package orchestrator

import (
	"nl2flow/internal/client/windmill"
	"nl2flow/internal/model"
)

const deploymentMessage = "Created by chat automation"

// ToResource 计划资源 -> 平台请求体
func ToResource(r model.ResourceSpec) windmill.Resource {
	return windmill.Resource{
		Path:         r.Path,
		ResourceType: r.ResourceType,
		Value:        r.Value,
		Description:  r.Description,
	}
}

// ToScript 计划脚本 -> 平台请求体
func ToScript(s model.ScriptSpec) windmill.Script {
	return windmill.Script{
		Path:        s.Path,
		Language:    s.Language,
		Content:     s.Content,
		Description: s.Description,
		Summary:     s.Description,
	}
}

// ToFlow 计划 flow -> 平台请求体；Static 绑定为 static，Expr 绑定为 javascript
func ToFlow(f model.FlowSpec) windmill.Flow {
	modules := make([]windmill.FlowModule, 0, len(f.Modules))
	for _, m := range f.Modules {
		value := windmill.ModuleValue{Type: "script", Path: m.ScriptPath}
		if m.Kind == model.ModuleTrigger {
			value = windmill.ModuleValue{Type: "rawscript", Language: m.Language, Content: m.Content}
		}
		if len(m.Inputs) > 0 {
			value.InputTransforms = make(map[string]windmill.InputTransform, len(m.Inputs))
			for _, in := range m.Inputs {
				if in.Expr != "" {
					value.InputTransforms[in.Name] = windmill.InputTransform{Type: "javascript", Expr: in.Expr}
				} else {
					value.InputTransforms[in.Name] = windmill.InputTransform{Type: "static", Value: in.Static}
				}
			}
		}
		modules = append(modules, windmill.FlowModule{ID: m.ID, Value: value})
	}
	return windmill.Flow{
		Path:              f.Path,
		Summary:           f.Summary,
		Value:             windmill.FlowValue{Modules: modules},
		DeploymentMessage: deploymentMessage,
	}
}

// ToSchedule 计划调度 -> 平台请求体，目标恒为 flow
func ToSchedule(s model.ScheduleSpec) windmill.Schedule {
	return windmill.Schedule{
		Path:       s.Path,
		Schedule:   s.Cron,
		Timezone:   s.Timezone,
		ScriptPath: s.TargetFlowPath,
		IsFlow:     true,
		Args:       map[string]any{},
		Enabled:    s.Enabled,
		Summary:    s.Summary,
	}
}
