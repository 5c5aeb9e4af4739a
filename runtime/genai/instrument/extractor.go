package instrument

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"

	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

// Extractor emits the GenAI attributes of one operation at start and end and
// routes captured message content to span attributes or to a single event
// depending on the capture strategy.
type Extractor[Req, Resp any] struct {
	getter   AttributesGetter[Req, Resp]
	provider MessagesProvider[Req, Resp]
	opts     messages.CaptureOptions
	emitter  EventEmitter
	logger   telemetry.Logger
}

// NewExtractor returns an extractor. provider may be nil when the
// integration exposes no message content. emitter is only used under the
// event strategy and may be nil otherwise.
func NewExtractor[Req, Resp any](
	getter AttributesGetter[Req, Resp],
	provider MessagesProvider[Req, Resp],
	opts messages.CaptureOptions,
	emitter EventEmitter,
	logger telemetry.Logger,
) *Extractor[Req, Resp] {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Extractor[Req, Resp]{
		getter:   getter,
		provider: provider,
		opts:     opts,
		emitter:  emitter,
		logger:   logger,
	}
}

// OnStart writes the request attributes to w.
func (e *Extractor[Req, Resp]) OnStart(ctx context.Context, w AttributeWriter, req Req) {
	var attrs attributeSet
	e.requestScalars(&attrs, req)
	if e.opts.CaptureContent() && e.opts.Strategy() == messages.StrategySpanAttributes {
		e.requestContent(ctx, &attrs, req)
	}
	if len(attrs) > 0 {
		w.SetAttributes(attrs...)
	}
}

// OnEnd writes the response attributes to w. A nil resp means the operation
// produced no response: only the error type is recorded and no content or
// event is produced. Under the event strategy exactly one event carrying the
// request and response attributes is emitted otherwise.
func (e *Extractor[Req, Resp]) OnEnd(ctx context.Context, w AttributeWriter, req Req, resp Resp, err error) {
	var attrs attributeSet
	if err != nil {
		attrs.SetAttributes(semconv.ErrorTypeKey.String(ErrorType(err)))
	}
	if isNil(resp) {
		if len(attrs) > 0 {
			w.SetAttributes(attrs...)
		}
		return
	}
	e.responseScalars(&attrs, req, resp)

	switch e.opts.Strategy() {
	case messages.StrategyEvent:
		if len(attrs) > 0 {
			w.SetAttributes(attrs...)
		}
		e.emit(ctx, req, resp, attrs)
	default:
		if e.opts.CaptureContent() && e.provider != nil {
			e.marshal(ctx, &attrs, semconv.GenAIOutputMessagesKey, e.provider.OutputMessages(req, resp))
		}
		if len(attrs) > 0 {
			w.SetAttributes(attrs...)
		}
	}
}

func (e *Extractor[Req, Resp]) emit(ctx context.Context, req Req, resp Resp, end attributeSet) {
	if e.emitter == nil {
		return
	}
	var attrs attributeSet
	e.requestScalars(&attrs, req)
	attrs = append(attrs, end...)
	if e.opts.CaptureContent() {
		e.requestContent(ctx, &attrs, req)
		if e.provider != nil {
			e.marshal(ctx, &attrs, semconv.GenAIOutputMessagesKey, e.provider.OutputMessages(req, resp))
		}
	}
	e.emitter.Emit(ctx, Event{Name: semconv.InferenceOperationDetailsEvent, Attributes: attrs})
}

func (e *Extractor[Req, Resp]) requestScalars(attrs *attributeSet, req Req) {
	g := e.getter
	setString(attrs, semconv.GenAIOperationNameKey, g.OperationName(req))
	setString(attrs, semconv.GenAIProviderNameKey, g.ProviderName(req))
	setStringPtr(attrs, semconv.GenAIRequestModelKey, g.RequestModel(req))
	setInt64Ptr(attrs, semconv.GenAIRequestSeedKey, g.RequestSeed(req))
	setStrings(attrs, semconv.GenAIRequestEncodingFormatsKey, g.RequestEncodingFormats(req))
	setFloat64Ptr(attrs, semconv.GenAIRequestFrequencyPenalty, g.RequestFrequencyPenalty(req))
	setInt64Ptr(attrs, semconv.GenAIRequestMaxTokensKey, g.RequestMaxTokens(req))
	setFloat64Ptr(attrs, semconv.GenAIRequestPresencePenalty, g.RequestPresencePenalty(req))
	setStrings(attrs, semconv.GenAIRequestStopSequencesKey, g.RequestStopSequences(req))
	setFloat64Ptr(attrs, semconv.GenAIRequestTemperatureKey, g.RequestTemperature(req))
	setFloat64Ptr(attrs, semconv.GenAIRequestTopKKey, g.RequestTopK(req))
	setFloat64Ptr(attrs, semconv.GenAIRequestTopPKey, g.RequestTopP(req))
	setStringPtr(attrs, semconv.GenAIConversationIDKey, g.ConversationID(req))
	setInt64Ptr(attrs, semconv.GenAIRequestChoiceCountKey, g.RequestChoiceCount(req))
	setStringPtr(attrs, semconv.GenAIOutputTypeKey, g.OutputType(req))
}

func (e *Extractor[Req, Resp]) responseScalars(attrs *attributeSet, req Req, resp Resp) {
	g := e.getter
	setStrings(attrs, semconv.GenAIResponseFinishReasonsKey, g.ResponseFinishReasons(req, resp))
	setStringPtr(attrs, semconv.GenAIResponseIDKey, g.ResponseID(req, resp))
	setStringPtr(attrs, semconv.GenAIResponseModelKey, g.ResponseModel(req, resp))
	setInt64Ptr(attrs, semconv.GenAIUsageInputTokensKey, g.UsageInputTokens(req, resp))
	setInt64Ptr(attrs, semconv.GenAIUsageOutputTokensKey, g.UsageOutputTokens(req, resp))
}

func (e *Extractor[Req, Resp]) requestContent(ctx context.Context, attrs *attributeSet, req Req) {
	if e.provider == nil {
		return
	}
	e.marshal(ctx, attrs, semconv.GenAISystemInstructionsKey, e.provider.SystemInstructions(req))
	e.marshal(ctx, attrs, semconv.GenAIInputMessagesKey, e.provider.InputMessages(req))
	e.marshal(ctx, attrs, semconv.GenAIToolDefinitionsKey, e.provider.ToolDefinitions(req))
}

// marshal encodes v as a JSON string attribute. A nil v is skipped and an
// encoding failure is logged and drops only this attribute.
func (e *Extractor[Req, Resp]) marshal(ctx context.Context, attrs *attributeSet, key attribute.Key, v json.Marshaler) {
	if isNil(v) {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.logger.Error(ctx, "genai attribute serialization failed", "attribute", string(key), "err", err)
		return
	}
	attrs.SetAttributes(key.String(string(b)))
}

// ErrorType returns the error.type attribute value for err: "canceled" or
// "timeout" for context errors, the value of an ErrorType or ErrorCode
// method found in the chain (AWS API errors implement the latter), and the
// Go type name otherwise.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, ErrStreamClosed):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var typed interface{ ErrorType() string }
	if errors.As(err, &typed) {
		if t := typed.ErrorType(); t != "" {
			return t
		}
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		if c := coded.ErrorCode(); c != "" {
			return c
		}
	}
	return fmt.Sprintf("%T", err)
}

func setString(attrs *attributeSet, key attribute.Key, v string) {
	if v != "" {
		attrs.SetAttributes(key.String(v))
	}
}

func setStringPtr(attrs *attributeSet, key attribute.Key, v *string) {
	if v != nil {
		attrs.SetAttributes(key.String(*v))
	}
}

func setInt64Ptr(attrs *attributeSet, key attribute.Key, v *int64) {
	if v != nil {
		attrs.SetAttributes(key.Int64(*v))
	}
}

func setFloat64Ptr(attrs *attributeSet, key attribute.Key, v *float64) {
	if v != nil {
		attrs.SetAttributes(key.Float64(*v))
	}
}

func setStrings(attrs *attributeSet, key attribute.Key, v []string) {
	if len(v) > 0 {
		attrs.SetAttributes(key.StringSlice(v))
	}
}

// isNil reports whether v is nil or a nil pointer, map, slice, func, chan
// or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
