package tracing

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a child span. Without a configured tracer it returns the span already in ctx.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// activeSpan returns nil when ctx carries no recorded span.
func activeSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

// Fail marks span as errored and records err on it.
func Fail(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Carrier returns the W3C trace headers for the span in ctx, or an empty map.
func Carrier(ctx context.Context) map[string]string {
	if activeSpan(ctx) == nil {
		return map[string]string{}
	}
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier
}

func GetTraceParent(ctx context.Context) string {
	return Carrier(ctx)["traceparent"]
}

func GetTraceState(ctx context.Context) string {
	return Carrier(ctx)["tracestate"]
}

func GetTraceID(ctx context.Context) string {
	span := activeSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
