package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSendSpan starts a client span for one message delivery.
func StartSendSpan(ctx context.Context, tracer trace.Tracer, kind, target string) (context.Context, trace.Span) {
	spanName := kind + " send"
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("messaging.system", kind),
		attribute.String("server.address", target),
	)
	return ctx, span
}

// EndSendSpan finishes a send span, recording the outcome.
func EndSendSpan(span trace.Span, err error, responseBytes int) {
	span.SetAttributes(attribute.Int("perfdrill.response_bytes", responseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
