// Package tracing wraps OpenTelemetry span creation for step execution.
// The call shape (StartStepSpan before dispatch, EndStepSpan after, both
// keyed by run/step/type) mirrors how the teacher's
// internal/workflows/runtime/consumer.go drives its telemetry client
// around each step; this package replaces that genkit-backed client
// with a plain go.opentelemetry.io/otel tracer, since genkit/posthog
// telemetry is product-analytics infrastructure this engine has no use
// for.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span wraps the trace.Span that EndStepSpan closes; the span itself
// records its start and end times.
type Span struct {
	span trace.Span
}

// Tracer creates spans for step execution under one named tracer.
type Tracer struct {
	tracer trace.Tracer
}

// New builds a Tracer using the global OTel tracer provider under name.
func New(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartStepSpan opens a span for one step attempt.
func (t *Tracer) StartStepSpan(ctx context.Context, executionID, stepID, stepType string) Span {
	_, span := t.tracer.Start(ctx, "step.execute",
		trace.WithAttributes(
			attribute.String("execution_id", executionID),
			attribute.String("step_id", stepID),
			attribute.String("step_type", stepType),
		),
	)
	return Span{span: span}
}

// EndStepSpan closes a span, recording the step's terminal status and
// error if any.
func (t *Tracer) EndStepSpan(s Span, stepType, status string, errMsg string) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(
		attribute.String("step_type", stepType),
		attribute.String("status", status),
	)
	if errMsg != "" {
		s.span.SetStatus(codes.Error, errMsg)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
