package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/relaykit/orchestrate/internal/apiclient"
	"github.com/relaykit/orchestrate/internal/evaluator"
	"github.com/relaykit/orchestrate/internal/formatter"
	"github.com/relaykit/orchestrate/internal/model"
	"github.com/relaykit/orchestrate/internal/notifier"
	"github.com/relaykit/orchestrate/internal/sandbox"
)

// APICallExecutor runs api_call steps via apiclient.Client.
type APICallExecutor struct {
	Client *apiclient.Client
}

func (e *APICallExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	req, err := buildRequest(step.Config)
	if err != nil {
		return model.Fail(err.Error(), nil)
	}
	return e.Client.Invoke(ctx, req, mergeMaps(input, step.Config))
}

func buildRequest(config map[string]any) (apiclient.Request, error) {
	var req apiclient.Request

	req.Method, _ = config["method"].(string)
	req.URL, _ = config["url"].(string)
	if req.URL == "" {
		return req, fmt.Errorf("api_call step config missing url")
	}
	if qp, ok := config["query_params"].(map[string]any); ok {
		req.QueryParams = qp
	}
	if h, ok := config["headers"].(map[string]any); ok {
		headers := make(map[string]string, len(h))
		for k, v := range h {
			headers[k] = formatter.Stringify(v)
		}
		req.Headers = headers
	}
	req.Body = config["body"]
	if to, ok := config["timeout_seconds"].(int); ok {
		req.TimeoutSeconds = to
	}
	return req, nil
}

func mergeMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range a {
		out[k] = v
	}
	return out
}

// PythonScriptExecutor runs python_script steps via sandbox.Runner.
type PythonScriptExecutor struct {
	Runner *sandbox.Runner
}

func (e *PythonScriptExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	// A zero timeout defers to sandbox.Runner's own 300s default
	// (spec.md §4.4); only an explicit timeout_seconds overrides it.
	var timeout time.Duration
	if secs, ok := step.Config["timeout_seconds"].(int); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return e.Runner.Run(ctx, step.Code, input, timeout)
}

// ConditionExecutor evaluates a condition expression against input.
type ConditionExecutor struct{}

func (e *ConditionExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	expr, _ := step.Config["expression"].(string)
	result, err := evaluator.EvaluateCondition(expr, input)
	if err != nil {
		return model.Fail(err.Error(), nil)
	}
	return model.Ok(map[string]any{"data": result})
}

// DataTransformExecutor evaluates a transform expression against input.
type DataTransformExecutor struct{}

func (e *DataTransformExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	expr, _ := step.Config["expression"].(string)
	result, err := evaluator.EvaluateTransform(expr, input)
	if err != nil {
		return model.Fail(err.Error(), nil)
	}
	return model.Ok(map[string]any{"data": result})
}

// NotificationExecutor delivers a notification step through notifier.Notifier.
type NotificationExecutor struct {
	Notifier *notifier.Notifier
}

func (e *NotificationExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	kind, _ := step.Config["type"].(string)
	to, _ := step.Config["to"].(string)
	subjectTpl, _ := step.Config["subject"].(string)
	bodyTpl, _ := step.Config["body"].(string)

	msg := notifier.Message{
		Kind:    notifier.Kind(kind),
		To:      formatter.Format(to, input),
		Subject: formatter.Format(subjectTpl, input),
		Body:    formatter.Format(bodyTpl, input),
		Payload: input,
	}

	if err := e.Notifier.Send(ctx, msg); err != nil {
		return model.Fail(err.Error(), nil)
	}
	return model.Ok(map[string]any{"status": "sent"})
}

// ApprovalExecutor marks a step as waiting for human approval; it never
// resolves on its own; the runner resumes the execution out-of-band when
// an approval decision arrives (spec.md §4.6.4 wait_approval routing).
type ApprovalExecutor struct{}

func (e *ApprovalExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	message, _ := step.Config["message"].(string)
	return model.StepResult{
		Success:         true,
		Output:          map[string]any{"data": formatter.Format(message, input), "status": "waiting_approval"},
		WaitingApproval: true,
	}
}

// LLMCallExecutor is a seam for an external LLM invocation. Authoring
// and model-provider wiring are out of scope for this engine (spec.md
// §1); this executor exists so llm_call steps dispatch through the same
// registry as every other step type, delegating to whatever Invoke
// callback the embedding application supplies.
type LLMCallExecutor struct {
	Invoke func(ctx context.Context, step model.Step, input map[string]any) model.StepResult
}

func (e *LLMCallExecutor) Execute(ctx context.Context, step model.Step, input map[string]any) model.StepResult {
	if e.Invoke == nil {
		return model.Fail("no llm_call handler configured", nil)
	}
	return e.Invoke(ctx, step, input)
}
