// Package dispatcher implements the Step Dispatcher (C5): it resolves a
// step's input from the running ExecutionState, hands it to the
// Executor registered for the step's type, and folds the result back
// into state via output_mapping. The registry-of-executors shape is
// grounded on the teacher's internal/workflows/runtime/executor.go
// StepExecutor interface, generalized here to this engine's closed
// step_type enum instead of station's agent/tool/transform executors.
package dispatcher

import (
	"context"
	"fmt"

	"github.com/relaykit/orchestrate/internal/model"
)

// Executor runs one step type. Implementations must not mutate input.
type Executor interface {
	Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult
}

// Dispatcher routes a step to its registered Executor and folds the
// result's output_mapping back into the execution's variables.
type Dispatcher struct {
	executors map[model.StepType]Executor
}

// New builds an empty Dispatcher; callers register one Executor per
// StepType via Register before the first Dispatch call.
func New() *Dispatcher {
	return &Dispatcher{executors: make(map[model.StepType]Executor)}
}

// Register binds an Executor to a StepType, overwriting any prior
// registration for that type.
func (d *Dispatcher) Register(t model.StepType, e Executor) {
	d.executors[t] = e
}

// Dispatch resolves step's input_mapping against state, executes it, and
// applies output_mapping, returning the raw StepResult for the caller
// (the State Graph Engine) to fold into ExecutionState status/errors.
func (d *Dispatcher) Dispatch(ctx context.Context, step model.Step, state *model.ExecutionState) model.StepResult {
	executor, ok := d.executors[step.Type]
	if !ok {
		return model.Fail(fmt.Sprintf("no executor registered for step type %q", step.Type), nil)
	}

	input := ResolveInput(step.InputMapping, state.Variables)

	result := executor.Execute(ctx, step, input)

	// step_outputs carries an entry for a step iff its status lands on
	// success or skipped; a failed step must not expose an output.
	if result.Success {
		state.StepOutputs[step.ID] = result.Output
		if len(step.OutputMapping) > 0 {
			ApplyOutputMapping(step.OutputMapping, result.Output, state.Variables)
		}
	}

	return result
}
