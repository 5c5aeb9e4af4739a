package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"

	"goa.design/genai-otel/runtime/genai/semconv"
)

type (
	// AttributeWriter receives typed attributes. OpenTelemetry spans satisfy
	// it.
	AttributeWriter interface {
		SetAttributes(kv ...attribute.KeyValue)
	}

	// Event is a structured log record with a fixed name and a flat set of
	// attributes.
	Event struct {
		Name       string
		Attributes []attribute.KeyValue
	}

	// EventEmitter receives at most one event per operation.
	EventEmitter interface {
		Emit(ctx context.Context, ev Event)
	}

	// EventEmitterFunc adapts a function to EventEmitter.
	EventEmitterFunc func(ctx context.Context, ev Event)

	// LogEmitter emits events as OpenTelemetry log records.
	LogEmitter struct {
		logger otellog.Logger
	}

	// attributeSet collects attributes in insertion order.
	attributeSet []attribute.KeyValue
)

// Emit calls f.
func (f EventEmitterFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// NewLogEmitter returns an EventEmitter writing to logger.
func NewLogEmitter(logger otellog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit writes ev as an info log record. The record carries the event name
// both as its event name and as an event.name attribute, and the trace
// context of ctx.
func (e *LogEmitter) Emit(ctx context.Context, ev Event) {
	var rec otellog.Record
	now := time.Now()
	rec.SetTimestamp(now)
	rec.SetObservedTimestamp(now)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName(ev.Name)
	rec.AddAttributes(otellog.String(string(semconv.EventNameKey), ev.Name))
	for _, kv := range ev.Attributes {
		rec.AddAttributes(logKeyValue(kv))
	}
	e.logger.Emit(ctx, rec)
}

// SetAttributes implements AttributeWriter.
func (s *attributeSet) SetAttributes(kv ...attribute.KeyValue) {
	*s = append(*s, kv...)
}

func logKeyValue(kv attribute.KeyValue) otellog.KeyValue {
	key := string(kv.Key)
	switch kv.Value.Type() {
	case attribute.BOOL:
		return otellog.Bool(key, kv.Value.AsBool())
	case attribute.INT64:
		return otellog.Int64(key, kv.Value.AsInt64())
	case attribute.FLOAT64:
		return otellog.Float64(key, kv.Value.AsFloat64())
	case attribute.STRING:
		return otellog.String(key, kv.Value.AsString())
	case attribute.BOOLSLICE:
		vals := kv.Value.AsBoolSlice()
		out := make([]otellog.Value, len(vals))
		for i, v := range vals {
			out[i] = otellog.BoolValue(v)
		}
		return otellog.Slice(key, out...)
	case attribute.INT64SLICE:
		vals := kv.Value.AsInt64Slice()
		out := make([]otellog.Value, len(vals))
		for i, v := range vals {
			out[i] = otellog.Int64Value(v)
		}
		return otellog.Slice(key, out...)
	case attribute.FLOAT64SLICE:
		vals := kv.Value.AsFloat64Slice()
		out := make([]otellog.Value, len(vals))
		for i, v := range vals {
			out[i] = otellog.Float64Value(v)
		}
		return otellog.Slice(key, out...)
	case attribute.STRINGSLICE:
		vals := kv.Value.AsStringSlice()
		out := make([]otellog.Value, len(vals))
		for i, v := range vals {
			out[i] = otellog.StringValue(v)
		}
		return otellog.Slice(key, out...)
	default:
		return otellog.String(key, kv.Value.Emit())
	}
}
