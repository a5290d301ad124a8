// Package runner implements the Execution Runner (C7): it drives one
// execution's State Graph Engine to completion, applying per-step retry
// policy, checkpointing after every step, and at-most-once protection
// via deterministic idempotency keys. Where the teacher's
// internal/workflows/runtime/consumer.go consumes step-completion events
// off a NATS subject to advance a workflow, this runner owns the whole
// loop directly and uses NATS only for checkpoint persistence, matching
// this engine's single-process execution model (spec.md Non-goals
// exclude distributed execution).
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/relaykit/orchestrate/internal/dispatcher"
	"github.com/relaykit/orchestrate/internal/engine"
	"github.com/relaykit/orchestrate/internal/execlog"
	"github.com/relaykit/orchestrate/internal/model"
	"github.com/relaykit/orchestrate/internal/tracing"
)

// StepExecutionStore persists one StepExecution row per step, upfront as
// pending and again on completion (spec.md §4.7 items 2 and 4). Satisfied
// by *store.Store; an interface here keeps the runner testable without a
// database.
type StepExecutionStore interface {
	SaveStepExecution(ctx context.Context, se *model.StepExecution) error
}

// Runner drives executions to completion.
type Runner struct {
	Dispatcher *dispatcher.Dispatcher
	Checkpoint *CheckpointStore
	Tracer     *tracing.Tracer
	Store      StepExecutionStore

	seen map[string]bool // idempotency keys already applied this process
}

// New builds a Runner. checkpoint and store may both be nil, in which
// case no checkpointing/resume or step-execution persistence is
// performed (suitable for tests).
func New(d *dispatcher.Dispatcher, checkpoint *CheckpointStore, tracer *tracing.Tracer, store StepExecutionStore) *Runner {
	return &Runner{Dispatcher: d, Checkpoint: checkpoint, Tracer: tracer, Store: store, seen: make(map[string]bool)}
}

// Run executes graph from state until it reaches a terminal route
// (stop or wait_approval) or every step completes. It returns the final
// ExecutionStatus.
func (r *Runner) Run(ctx context.Context, graph *engine.Graph, state *model.ExecutionState) model.ExecutionStatus {
	r.initStepExecutions(ctx, graph, state)

	for {
		step, ok := graph.NextStep(state)
		if !ok {
			return model.ExecutionSuccess
		}

		if engine.ShouldSkip(step, state) {
			state.SetStepStatus(step.ID, model.StepSkipped)
			state.StepOutputs[step.ID] = map[string]any{}
			r.saveStepExecution(ctx, step, state, model.StepResult{}, 0, time.Now())
			engine.Advance(state)
			r.checkpoint(ctx, state)
			continue
		}

		result, attempts := r.runStepWithRetry(ctx, step, state)
		now := time.Now()
		route := engine.ApplyResult(state, step, result, now)
		r.saveStepExecution(ctx, step, state, result, attempts, now)
		r.checkpoint(ctx, state)

		switch route {
		case model.RouteStop:
			return model.ExecutionFailed
		case model.RouteWaitApproval:
			return model.ExecutionWaitingApproval
		}

		engine.Advance(state)
	}
}

func stepExecutionID(executionID, stepID string) string {
	return executionID + ":" + stepID
}

// initStepExecutions seeds a pending StepExecution row per step the first
// time an execution runs (not on resume, where CurrentStepIndex > 0).
func (r *Runner) initStepExecutions(ctx context.Context, graph *engine.Graph, state *model.ExecutionState) {
	if r.Store == nil || state.CurrentStepIndex != 0 {
		return
	}
	for _, step := range graph.Steps() {
		se := &model.StepExecution{
			ID:          stepExecutionID(state.ExecutionID, step.ID),
			ExecutionID: state.ExecutionID,
			StepID:      step.ID,
			Status:      model.StepPending,
		}
		if err := r.Store.SaveStepExecution(ctx, se); err != nil {
			slog.Error("failed to persist pending step execution", "execution_id", state.ExecutionID, "step_id", step.ID, "error", err)
		}
	}
}

// saveStepExecution upserts the terminal (or skipped) row for one step.
func (r *Runner) saveStepExecution(ctx context.Context, step model.Step, state *model.ExecutionState, result model.StepResult, attempts int, completedAt time.Time) {
	if r.Store == nil {
		return
	}
	se := &model.StepExecution{
		ID:          stepExecutionID(state.ExecutionID, step.ID),
		ExecutionID: state.ExecutionID,
		StepID:      step.ID,
		Status:      state.StepStatuses[step.ID],
		Output:      result.Output,
		Logs:        result.Logs,
		Error:       result.Error,
		CompletedAt: &completedAt,
		Attempts:    attempts,
	}
	if err := r.Store.SaveStepExecution(ctx, se); err != nil {
		slog.Error("failed to persist step execution", "execution_id", state.ExecutionID, "step_id", step.ID, "error", err)
	}
}

// Resume restores a checkpointed ExecutionState for executionID and
// continues running graph from where it left off. ok is false if no
// checkpoint exists.
func (r *Runner) Resume(ctx context.Context, graph *engine.Graph, executionID string) (model.ExecutionStatus, bool, error) {
	if r.Checkpoint == nil {
		return "", false, nil
	}
	state, ok, err := r.Checkpoint.Load(ctx, executionID)
	if err != nil || !ok {
		return "", ok, err
	}
	return r.Run(ctx, graph, state), true, nil
}

func (r *Runner) runStepWithRetry(ctx context.Context, step model.Step, state *model.ExecutionState) (model.StepResult, int) {
	maxRetries := 0
	delaySeconds := 0
	if step.RetryConfig != nil {
		maxRetries = step.RetryConfig.MaxRetries
		delaySeconds = step.RetryConfig.RetryDelaySeconds
	}

	state.SetStepStatus(step.ID, model.StepRunning)
	logger := execlog.NewExecutionLogger(state.ExecutionID, step.ID)

	var result model.StepResult
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		key := model.StepIdempotencyKey(state.ExecutionID, step.ID, attempt)
		if r.seen[key] {
			continue
		}

		attempts = attempt + 1
		logger.StartAttempt(attempt)
		span := r.startSpan(ctx, state.ExecutionID, step)
		result = r.Dispatcher.Dispatch(ctx, step, state)
		r.endSpan(span, step, result)

		r.seen[key] = true

		if result.Success || result.WaitingApproval {
			result.Logs = append(result.Logs, logger.Lines()...)
			state.Logs = append(state.Logs, logger.Lines()...)
			return result, attempts
		}

		logger.Error("step_failed", fmt.Sprintf("attempt %d failed", attempt+1), result.Error)

		if attempt < maxRetries {
			slog.Warn("step failed, retrying", "step_id", step.ID, "attempt", attempt+1)
			if delaySeconds > 0 {
				select {
				case <-ctx.Done():
					result.Logs = append(result.Logs, logger.Lines()...)
					state.Logs = append(state.Logs, logger.Lines()...)
					return result, attempts
				case <-time.After(time.Duration(delaySeconds) * time.Second):
				}
			}
		}
	}
	result.Logs = append(result.Logs, logger.Lines()...)
	state.Logs = append(state.Logs, logger.Lines()...)
	return result, attempts
}

func (r *Runner) startSpan(ctx context.Context, executionID string, step model.Step) tracing.Span {
	if r.Tracer == nil {
		return tracing.Span{}
	}
	return r.Tracer.StartStepSpan(ctx, executionID, step.ID, string(step.Type))
}

func (r *Runner) endSpan(span tracing.Span, step model.Step, result model.StepResult) {
	if r.Tracer == nil {
		return
	}
	status := model.StepSuccess
	if !result.Success {
		status = model.StepFailed
	}
	r.Tracer.EndStepSpan(span, string(step.Type), string(status), result.Error)
}

func (r *Runner) checkpoint(ctx context.Context, state *model.ExecutionState) {
	if r.Checkpoint == nil {
		return
	}
	if err := r.Checkpoint.Save(ctx, state); err != nil {
		slog.Error("failed to save checkpoint", "execution_id", state.ExecutionID, "error", err)
	}
}
