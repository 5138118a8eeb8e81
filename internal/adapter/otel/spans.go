package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentbridge"

// StartTaskSpan starts a span for one task router request.
func StartTaskSpan(ctx context.Context, requestID, agentID, agentType string, priority int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.route",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("agent.id", agentID),
			attribute.String("agent.type", agentType),
			attribute.Int("task.priority", priority),
		),
	)
}

// StartCompletionSpan starts a span around the completion call.
func StartCompletionSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("completion.model", model)),
	)
}

// StartActionSpan starts a span for one bridge action.
func StartActionSpan(ctx context.Context, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bridge.action",
		trace.WithAttributes(attribute.String("bridge.action", action)),
	)
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
