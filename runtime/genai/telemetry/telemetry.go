// Package telemetry wires the GenAI instrumentation to Clue logging and
// OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures the structured logging used by the instrumentation.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics records the GenAI client histograms. Tags are key/value string
// pairs used as metric dimensions.
type Metrics interface {
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordHistogram(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so instrumentation code can remain agnostic
// of the underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
//
// Example usage:
//
//	ctx, span := tracer.Start(ctx, "chat gpt-4o", trace.WithSpanKind(trace.SpanKindClient))
//	defer span.End()
//	span.SetAttributes(semconv.GenAIRequestModelKey.String("gpt-4o"))
type Span interface {
	End(opts ...trace.SpanEndOption)
	SetAttributes(attrs ...attribute.KeyValue)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}
