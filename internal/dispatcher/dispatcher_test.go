package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/orchestrate/internal/model"
)

type fakeExecutor struct {
	result model.StepResult
}

func (e *fakeExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	return e.result
}

func TestDispatch_SuccessfulStepRecordsStepOutput(t *testing.T) {
	d := New()
	d.Register(model.StepDataTransform, &fakeExecutor{result: model.Ok(map[string]any{"total": 7})})

	state := model.NewExecutionState("wf-1", "exec-1", map[string]any{})
	step := model.Step{ID: "s1", Type: model.StepDataTransform}

	result := d.Dispatch(context.Background(), step, state)

	assert.True(t, result.Success)
	output, ok := state.StepOutputs["s1"]
	assert.True(t, ok, "a successful step must have a step_outputs entry")
	assert.Equal(t, 7, output["total"])
}

func TestDispatch_FailedStepDoesNotRecordStepOutput(t *testing.T) {
	d := New()
	d.Register(model.StepDataTransform, &fakeExecutor{result: model.Fail("boom", map[string]any{"partial": true})})

	state := model.NewExecutionState("wf-1", "exec-1", map[string]any{})
	step := model.Step{ID: "s1", Type: model.StepDataTransform}

	result := d.Dispatch(context.Background(), step, state)

	assert.False(t, result.Success)
	_, ok := state.StepOutputs["s1"]
	assert.False(t, ok, "a failed step must not have a step_outputs entry")
}

func TestDispatch_FailedStepSkipsOutputMapping(t *testing.T) {
	d := New()
	d.Register(model.StepDataTransform, &fakeExecutor{result: model.Fail("boom", map[string]any{"total": 7})})

	state := model.NewExecutionState("wf-1", "exec-1", map[string]any{})
	step := model.Step{ID: "s1", Type: model.StepDataTransform, OutputMapping: map[string]string{"total": "total"}}

	d.Dispatch(context.Background(), step, state)

	_, ok := state.Variables["total"]
	assert.False(t, ok, "output_mapping must not run against a failed step's output")
}

func TestDispatch_UnregisteredStepTypeFails(t *testing.T) {
	d := New()
	state := model.NewExecutionState("wf-1", "exec-1", map[string]any{})
	step := model.Step{ID: "s1", Type: model.StepAPICall}

	result := d.Dispatch(context.Background(), step, state)

	assert.False(t, result.Success)
	_, ok := state.StepOutputs["s1"]
	assert.False(t, ok)
}
