package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/orchestrate/internal/model"
)

func TestNewGraph_SortsSteps(t *testing.T) {
	wf := &model.Workflow{Steps: []model.Step{
		{ID: "b", Order: 2},
		{ID: "a", Order: 1},
	}}
	g := NewGraph(wf)
	assert.Equal(t, "a", g.Steps()[0].ID)
	assert.Equal(t, "b", g.Steps()[1].ID)
}

func TestShouldSkip_FalseConditionVariableSkipsStep(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", map[string]any{"go": false})
	step := model.Step{ID: "s1", Condition: "go"}
	assert.True(t, ShouldSkip(step, state))
}

func TestShouldSkip_MissingConditionVariableDoesNotSkip(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", nil)
	step := model.Step{ID: "s1", Condition: "go"}
	assert.False(t, ShouldSkip(step, state))
}

func TestApplyResult_FailureSetsShouldStopAndRecordsError(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", nil)
	step := model.Step{ID: "s1"}
	route := ApplyResult(state, step, model.Fail("boom", nil), time.Now())
	assert.Equal(t, model.RouteStop, route)
	assert.True(t, state.ShouldStop)
	assert.Equal(t, model.StepFailed, state.StepStatuses["s1"])
	assert.Len(t, state.Errors, 1)
}

func TestApplyResult_WaitingApprovalRoutes(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", nil)
	step := model.Step{ID: "s1"}
	result := model.StepResult{Success: true, WaitingApproval: true, Output: map[string]any{}}
	route := ApplyResult(state, step, result, time.Now())
	assert.Equal(t, model.RouteWaitApproval, route)
	assert.Equal(t, "s1", state.ApprovalStepID)
}

func TestResolveApproval_RejectionStopsExecution(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", nil)
	state.WaitingApproval = true
	state.ApprovalStepID = "s1"
	err := ResolveApproval(state, "s1", false, time.Now())
	assert.NoError(t, err)
	assert.True(t, state.ShouldStop)
	assert.False(t, state.WaitingApproval)
}

func TestResolveApproval_MismatchedStepErrors(t *testing.T) {
	state := model.NewExecutionState("wf", "exec", nil)
	state.WaitingApproval = true
	state.ApprovalStepID = "s1"
	err := ResolveApproval(state, "other", true, time.Now())
	assert.Error(t, err)
}
