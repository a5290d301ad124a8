// Package engine implements the State Graph Engine (C6): it walks a
// Workflow's steps in order, applying per-step condition guards and
// folding each StepResult into the running ExecutionState. It knows
// nothing about retries, checkpoints, or subprocess/network execution;
// those belong to the runner (C7) and dispatcher (C5) respectively. The
// state-machine shape (explicit current-step index, monotone status
// map, should_stop/waiting_approval routing) is grounded directly on
// spec.md §3-§4.6 rather than on a teacher file, since the teacher's own
// nats_engine.go/consumer.go couple graph-walking to NATS consumption in
// a way this package deliberately keeps separate (wired instead in
// internal/runner).
package engine

import (
	"fmt"
	"time"

	"github.com/relaykit/orchestrate/internal/model"
)

// Graph is an ordered, validated view of a Workflow's steps.
type Graph struct {
	Workflow *model.Workflow
	steps    []model.Step
}

// NewGraph sorts wf's steps into execution order.
func NewGraph(wf *model.Workflow) *Graph {
	return &Graph{Workflow: wf, steps: model.SortSteps(wf.Steps)}
}

// Steps returns the graph's steps in execution order.
func (g *Graph) Steps() []model.Step {
	return g.steps
}

// NextStep returns the step at state's CurrentStepIndex, or ok=false
// once every step has run.
func (g *Graph) NextStep(state *model.ExecutionState) (model.Step, bool) {
	if state.CurrentStepIndex < 0 || state.CurrentStepIndex >= len(g.steps) {
		return model.Step{}, false
	}
	return g.steps[state.CurrentStepIndex], true
}

// ShouldSkip reports whether step should be skipped without execution
// because its condition field (a variable-resolved boolean, not a
// Starlark expression) evaluates false. Condition *steps* are dispatched
// like any other step: their boolean lands in the step output and does
// not change routing. The Condition field is a per-step guard any step
// type can carry (spec.md §4.6.3 "per-step condition
// guard").
func ShouldSkip(step model.Step, state *model.ExecutionState) bool {
	if step.Condition == "" {
		return false
	}
	v, ok := state.Variables[step.Condition]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}

// ApplyResult folds a step's StepResult into state: setting its status,
// recording an error entry on failure, and computing the routing
// decision that follows (spec.md §4.6.4).
func ApplyResult(state *model.ExecutionState, step model.Step, result model.StepResult, now time.Time) model.Route {
	switch {
	case result.WaitingApproval:
		state.SetStepStatus(step.ID, model.StepWaitingApproval)
		state.WaitingApproval = true
		state.ApprovalStepID = step.ID
	case result.Success:
		state.SetStepStatus(step.ID, model.StepSuccess)
	default:
		state.SetStepStatus(step.ID, model.StepFailed)
		state.AppendError(step.ID, result.Error, now)
		state.ShouldStop = true
	}

	return model.Router(state)
}

// Advance moves state to the next step index if routing allows it.
// Callers check the returned Route before calling Advance again.
func Advance(state *model.ExecutionState) {
	state.CurrentStepIndex++
}

// ResolveApproval applies an external approval decision to a state
// waiting on step stepID, clearing the wait and routing to continue or
// stop depending on approved. On approval the state also advances past
// the approval step, so the next Run starts at the step after it.
func ResolveApproval(state *model.ExecutionState, stepID string, approved bool, now time.Time) error {
	if !state.WaitingApproval || state.ApprovalStepID != stepID {
		return fmt.Errorf("execution is not waiting on approval for step %q", stepID)
	}
	state.WaitingApproval = false
	state.ApprovalStepID = ""
	if !approved {
		state.SetStepStatus(stepID, model.StepFailed)
		state.AppendError(stepID, "approval rejected", now)
		state.ShouldStop = true
		return nil
	}
	state.SetStepStatus(stepID, model.StepSuccess)
	Advance(state)
	return nil
}
