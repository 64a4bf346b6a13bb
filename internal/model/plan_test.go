package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduledPlanBuilder() *PlanBuilder {
	return NewPlanBuilder().
		AddScript(ScriptSpec{Path: "f/automations/gmail_summary", Language: "typescript"}).
		SetFlow(FlowSpec{
			Path: "f/automations/gmail_daily_summary",
			Modules: []FlowModule{{
				ID:         "step_0",
				Kind:       ModuleScript,
				ScriptPath: "f/automations/gmail_summary",
				Inputs:     []InputBinding{{Name: "gmail", Static: "$res:u/user/gmail"}},
			}},
		}).
		SetSchedule(ScheduleSpec{
			Path:           "f/schedules/gmail_daily_summary",
			Cron:           "0 9 * * *",
			TargetFlowPath: "f/automations/gmail_daily_summary",
			Enabled:        true,
		})
}

func TestPlanBuilder_Build(t *testing.T) {
	plan, err := scheduledPlanBuilder().SetMessage("ok").Build()
	require.NoError(t, err)

	ops := plan.Operations()
	require.Len(t, ops, 3)
	assert.Equal(t, OpCreateScript, ops[0].Kind)
	assert.True(t, ops[0].Required)
	assert.Equal(t, OpCreateFlow, ops[1].Kind)
	assert.True(t, ops[1].Required)
	assert.Equal(t, OpCreateSchedule, ops[2].Kind)
	assert.False(t, ops[2].Required)
	assert.Equal(t, "ok", plan.Message())
	assert.False(t, plan.IsEmpty())
}

func TestPlanBuilder_DanglingReferences(t *testing.T) {
	tests := []struct {
		name    string
		builder func() *PlanBuilder
	}{
		{
			name: "module references missing script",
			builder: func() *PlanBuilder {
				return NewPlanBuilder().SetFlow(FlowSpec{
					Path:    "f/a/flow",
					Modules: []FlowModule{{ID: "step_0", Kind: ModuleScript, ScriptPath: "f/a/missing"}},
				})
			},
		},
		{
			name: "schedule without flow",
			builder: func() *PlanBuilder {
				return NewPlanBuilder().SetSchedule(ScheduleSpec{Path: "f/s/x", TargetFlowPath: "f/a/flow"})
			},
		},
		{
			name: "schedule targets another flow",
			builder: func() *PlanBuilder {
				return scheduledPlanBuilder().SetSchedule(ScheduleSpec{Path: "f/s/x", TargetFlowPath: "f/a/other"})
			},
		},
		{
			name: "webhook without flow",
			builder: func() *PlanBuilder {
				return NewPlanBuilder().SetWebhookURL("https://example.com/hook")
			},
		},
		{
			name: "duplicate script path",
			builder: func() *PlanBuilder {
				return NewPlanBuilder().
					AddScript(ScriptSpec{Path: "f/a/x"}).
					AddScript(ScriptSpec{Path: "f/a/x"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder().Build()
			assert.ErrorIs(t, err, ErrPlanInvalid)
		})
	}
}

func TestWorkflowPlan_Immutable(t *testing.T) {
	b := scheduledPlanBuilder()
	plan, err := b.Build()
	require.NoError(t, err)

	flow, ok := plan.Flow()
	require.True(t, ok)
	flow.Modules[0].Inputs[0].Static = "tampered"
	flow.Path = "tampered"

	scripts := plan.Scripts()
	scripts[0].Path = "tampered"

	b.AddScript(ScriptSpec{Path: "f/automations/late"})

	again, _ := plan.Flow()
	assert.Equal(t, "f/automations/gmail_daily_summary", again.Path)
	assert.Equal(t, "$res:u/user/gmail", again.Modules[0].Inputs[0].Static)
	assert.Equal(t, "f/automations/gmail_summary", plan.Scripts()[0].Path)
	assert.Len(t, plan.Scripts(), 1)
}

func TestWorkflowPlan_EmptyAndJSON(t *testing.T) {
	plan, err := NewPlanBuilder().SetMessage("help").Build()
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
	assert.Empty(t, plan.Operations())

	data, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"help"}`, string(data))
}

func TestAutomationIntent_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   AutomationIntent
		want AutomationIntent
	}{
		{
			name: "schedule gets default cron and drops run target",
			in:   AutomationIntent{Kind: IntentSchedule, ImmediateTargetName: "x"},
			want: AutomationIntent{Kind: IntentSchedule, CronExpression: DefaultCron},
		},
		{
			name: "run now gets default target and drops cron",
			in:   AutomationIntent{Kind: IntentRunNow, CronExpression: "0 1 * * *"},
			want: AutomationIntent{Kind: IntentRunNow, ImmediateTargetName: DefaultImmediateTarget},
		},
		{
			name: "unrecognized kind coerced to unknown",
			in:   AutomationIntent{Kind: "delete_everything", CronExpression: "0 1 * * *"},
			want: AutomationIntent{Kind: IntentUnknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPlanBuilder_ResourcesComeFirst(t *testing.T) {
	b := scheduledPlanBuilder().AddResource(ResourceSpec{
		Path:         "u/user/gmail",
		ResourceType: "gmail",
		Value:        map[string]string{"token": "placeholder"},
	})
	plan, err := b.Build()
	require.NoError(t, err)

	ops := plan.Operations()
	require.Len(t, ops, 4)
	assert.Equal(t, Operation{Kind: OpEnsureResource, Path: "u/user/gmail"}, ops[0])
	assert.Equal(t, OpCreateScript, ops[1].Kind)

	// 返回的是副本
	res := plan.Resources()
	res[0].Value["token"] = "changed"
	assert.Equal(t, "placeholder", plan.Resources()[0].Value["token"])

	data, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"resources":[{"path":"u/user/gmail"`)
}

func TestPlanBuilder_InvalidResources(t *testing.T) {
	tests := []struct {
		name    string
		builder *PlanBuilder
	}{
		{
			name: "duplicate path",
			builder: scheduledPlanBuilder().
				AddResource(ResourceSpec{Path: "u/user/gmail", ResourceType: "gmail"}).
				AddResource(ResourceSpec{Path: "u/user/gmail", ResourceType: "gmail"}),
		},
		{
			name:    "missing type",
			builder: scheduledPlanBuilder().AddResource(ResourceSpec{Path: "u/user/gmail"}),
		},
		{
			name:    "resource without flow",
			builder: NewPlanBuilder().AddResource(ResourceSpec{Path: "u/user/gmail", ResourceType: "gmail"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			assert.ErrorIs(t, err, ErrPlanInvalid)
		})
	}
}
