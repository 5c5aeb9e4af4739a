package instrument

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

type (
	// Options configures an Instrumenter. Nil fields fall back to the Clue
	// implementations backed by the global OpenTelemetry providers.
	Options struct {
		Tracer  telemetry.Tracer
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		// Emitter receives the operation event under the event strategy.
		Emitter EventEmitter
		Capture messages.CaptureOptions
	}

	// Instrumenter traces GenAI calls described by a getter and a messages
	// provider.
	Instrumenter[Req, Resp any] struct {
		getter    AttributesGetter[Req, Resp]
		extractor *Extractor[Req, Resp]
		tracer    telemetry.Tracer
		logger    telemetry.Logger
		metrics   telemetry.Metrics
		capture   messages.CaptureOptions
	}

	// Invocation is one in-flight call. End may be called from any goroutine
	// any number of times; only the first call has an effect.
	Invocation[Req, Resp any] struct {
		inst  *Instrumenter[Req, Resp]
		ctx   context.Context
		req   Req
		span  telemetry.Span
		start time.Time
		ended atomic.Bool
	}
)

// New returns an Instrumenter. provider may be nil.
func New[Req, Resp any](getter AttributesGetter[Req, Resp], provider MessagesProvider[Req, Resp], opts Options) *Instrumenter[Req, Resp] {
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NewClueTracer()
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewClueLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewClueMetrics()
	}
	if opts.Emitter == nil {
		opts.Emitter = NewLogEmitter(global.Logger(telemetry.InstrumentationName))
	}
	return &Instrumenter[Req, Resp]{
		getter:    getter,
		extractor: NewExtractor(getter, provider, opts.Capture, opts.Emitter, opts.Logger),
		tracer:    opts.Tracer,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		capture:   opts.Capture,
	}
}

// CaptureOptions returns the capture options the instrumenter was built with.
func (i *Instrumenter[Req, Resp]) CaptureOptions() messages.CaptureOptions {
	return i.capture
}

// Start opens a client span named after the operation and model and records
// the request attributes. The returned context carries the span.
func (i *Instrumenter[Req, Resp]) Start(ctx context.Context, req Req) (context.Context, *Invocation[Req, Resp]) {
	ctx, span := i.tracer.Start(ctx, i.spanName(req), trace.WithSpanKind(trace.SpanKindClient))
	i.extractor.OnStart(ctx, span, req)
	return ctx, &Invocation[Req, Resp]{
		inst:  i,
		ctx:   ctx,
		req:   req,
		span:  span,
		start: time.Now(),
	}
}

// Context returns the context of the invocation span.
func (inv *Invocation[Req, Resp]) Context() context.Context { return inv.ctx }

// End records the response attributes, the error if any and the client
// metrics, then ends the span. It reports whether this call ended the
// invocation.
func (inv *Invocation[Req, Resp]) End(resp Resp, err error) bool {
	if !inv.ended.CompareAndSwap(false, true) {
		return false
	}
	i := inv.inst
	i.extractor.OnEnd(inv.ctx, inv.span, inv.req, resp, err)
	if err != nil {
		inv.span.RecordError(err)
		inv.span.SetStatus(codes.Error, err.Error())
		i.logger.Debug(inv.ctx, "genai operation failed", "operation", i.getter.OperationName(inv.req), "err", err)
	}
	i.record(inv, resp, err)
	inv.span.End()
	return true
}

// Ended reports whether End was called.
func (inv *Invocation[Req, Resp]) Ended() bool { return inv.ended.Load() }

func (i *Instrumenter[Req, Resp]) record(inv *Invocation[Req, Resp], resp Resp, err error) {
	tags := i.metricTags(inv.req, resp)
	durationTags := tags
	if err != nil {
		durationTags = append(append([]string{}, tags...), string(semconv.ErrorTypeKey), ErrorType(err))
	}
	i.metrics.RecordTimer(semconv.ClientOperationDurationMetric, time.Since(inv.start), durationTags...)
	if isNil(resp) {
		return
	}
	if n := i.getter.UsageInputTokens(inv.req, resp); n != nil {
		i.metrics.RecordHistogram(semconv.ClientTokenUsageMetric, float64(*n),
			append(append([]string{}, tags...), string(semconv.GenAITokenTypeKey), semconv.TokenTypeInput)...)
	}
	if n := i.getter.UsageOutputTokens(inv.req, resp); n != nil {
		i.metrics.RecordHistogram(semconv.ClientTokenUsageMetric, float64(*n),
			append(append([]string{}, tags...), string(semconv.GenAITokenTypeKey), semconv.TokenTypeOutput)...)
	}
}

func (i *Instrumenter[Req, Resp]) metricTags(req Req, resp Resp) []string {
	var tags []string
	if op := i.getter.OperationName(req); op != "" {
		tags = append(tags, string(semconv.GenAIOperationNameKey), op)
	}
	if p := i.getter.ProviderName(req); p != "" {
		tags = append(tags, string(semconv.GenAIProviderNameKey), p)
	}
	if m := i.getter.RequestModel(req); m != nil {
		tags = append(tags, string(semconv.GenAIRequestModelKey), *m)
	}
	if !isNil(resp) {
		if m := i.getter.ResponseModel(req, resp); m != nil {
			tags = append(tags, string(semconv.GenAIResponseModelKey), *m)
		}
	}
	return tags
}

func (i *Instrumenter[Req, Resp]) spanName(req Req) string {
	name := i.getter.OperationName(req)
	if name == "" {
		name = "genai"
	}
	if m := i.getter.RequestModel(req); m != nil && *m != "" {
		name += " " + *m
	}
	return name
}
