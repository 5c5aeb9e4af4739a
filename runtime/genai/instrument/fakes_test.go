package instrument

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

type (
	chatRequest struct {
		Model       string
		Temperature *float64
		Stop        []string
		System      string
		Prompt      string
		Tools       []string
		// Payload is attached to the prompt as a tool result; a value that
		// cannot be encoded makes input message serialization fail.
		Payload any
	}

	chatResponse struct {
		ID     string
		Model  string
		Finish []string
		In     *int64
		Out    *int64
		Text   string
	}

	chatRequestGetter   struct{}
	chatRequestProvider struct{}

	chatGetter struct{ chatRequestGetter }

	chatProvider struct{ chatRequestProvider }

	eventRecorder struct {
		mu     sync.Mutex
		events []Event
		ctxs   []context.Context
	}

	logCall struct {
		level   string
		msg     string
		keyvals []any
	}

	logRecorder struct {
		mu    sync.Mutex
		calls []logCall
	}

	metricCall struct {
		name  string
		value float64
		tags  []string
	}

	metricsRecorder struct {
		mu    sync.Mutex
		calls []metricCall
	}
)

func (chatRequestGetter) OperationName(chatRequest) string       { return semconv.OperationChat }
func (chatRequestGetter) ProviderName(chatRequest) string        { return semconv.ProviderOpenAI }
func (chatRequestGetter) RequestModel(r chatRequest) *string     { return strPtr(r.Model) }
func (chatRequestGetter) RequestSeed(chatRequest) *int64          { return nil }
func (chatRequestGetter) RequestEncodingFormats(chatRequest) []string {
	return nil
}
func (chatRequestGetter) RequestFrequencyPenalty(chatRequest) *float64 { return nil }
func (chatRequestGetter) RequestMaxTokens(chatRequest) *int64          { return nil }
func (chatRequestGetter) RequestPresencePenalty(chatRequest) *float64  { return nil }
func (chatRequestGetter) RequestStopSequences(r chatRequest) []string  { return r.Stop }
func (chatRequestGetter) RequestTemperature(r chatRequest) *float64    { return r.Temperature }
func (chatRequestGetter) RequestTopK(chatRequest) *float64             { return nil }
func (chatRequestGetter) RequestTopP(chatRequest) *float64             { return nil }
func (chatRequestGetter) ConversationID(chatRequest) *string           { return nil }
func (chatRequestGetter) RequestChoiceCount(chatRequest) *int64        { return nil }
func (chatRequestGetter) OutputType(chatRequest) *string               { return nil }

func (chatGetter) ResponseFinishReasons(_ chatRequest, r *chatResponse) []string { return r.Finish }
func (chatGetter) ResponseID(_ chatRequest, r *chatResponse) *string             { return strPtr(r.ID) }
func (chatGetter) ResponseModel(_ chatRequest, r *chatResponse) *string          { return strPtr(r.Model) }
func (chatGetter) UsageInputTokens(_ chatRequest, r *chatResponse) *int64        { return r.In }
func (chatGetter) UsageOutputTokens(_ chatRequest, r *chatResponse) *int64       { return r.Out }

func (chatRequestProvider) SystemInstructions(r chatRequest) *messages.SystemInstructions {
	if r.System == "" {
		return nil
	}
	return messages.NewSystemInstructions(messages.TextPart{Content: r.System})
}

func (chatRequestProvider) InputMessages(r chatRequest) *messages.InputMessages {
	parts := []messages.Part{messages.TextPart{Content: r.Prompt}}
	if r.Payload != nil {
		parts = append(parts, messages.ToolCallResponsePart{ID: "call_1", Response: r.Payload})
	}
	return messages.NewInputMessages(messages.InputMessage{Role: messages.RoleUser, Parts: parts})
}

func (chatRequestProvider) ToolDefinitions(r chatRequest) *messages.ToolDefinitions {
	if len(r.Tools) == 0 {
		return nil
	}
	defs := messages.NewToolDefinitions()
	for _, t := range r.Tools {
		defs.Append(messages.ToolDefinition{Type: "function", Name: t})
	}
	return defs
}

func (chatProvider) OutputMessages(_ chatRequest, r *chatResponse) *messages.OutputMessages {
	msg := messages.OutputMessage{
		Role:  messages.RoleAssistant,
		Parts: []messages.Part{messages.TextPart{Content: r.Text}},
	}
	if len(r.Finish) > 0 {
		msg.FinishReason = r.Finish[0]
	}
	return messages.NewOutputMessages(msg)
}

func (r *eventRecorder) Emit(ctx context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.ctxs = append(r.ctxs, ctx)
}

func (l *logRecorder) record(level, msg string, keyvals []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, msg: msg, keyvals: keyvals})
}

func (l *logRecorder) Debug(_ context.Context, msg string, kv ...any) { l.record("debug", msg, kv) }
func (l *logRecorder) Info(_ context.Context, msg string, kv ...any)  { l.record("info", msg, kv) }
func (l *logRecorder) Warn(_ context.Context, msg string, kv ...any)  { l.record("warn", msg, kv) }
func (l *logRecorder) Error(_ context.Context, msg string, kv ...any) { l.record("error", msg, kv) }

func (l *logRecorder) errors() []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logCall
	for _, c := range l.calls {
		if c.level == "error" {
			out = append(out, c)
		}
	}
	return out
}

func (m *metricsRecorder) RecordTimer(name string, d time.Duration, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{name: name, value: d.Seconds(), tags: tags})
}

func (m *metricsRecorder) RecordHistogram(name string, v float64, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{name: name, value: v, tags: tags})
}

func (m *metricsRecorder) named(name string) []metricCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metricCall
	for _, c := range m.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

type harness struct {
	recorder *tracetest.SpanRecorder
	events   *eventRecorder
	logs     *logRecorder
	metrics  *metricsRecorder
}

func newHarness() *harness {
	return &harness{
		recorder: tracetest.NewSpanRecorder(),
		events:   &eventRecorder{},
		logs:     &logRecorder{},
		metrics:  &metricsRecorder{},
	}
}

func (h *harness) options(capture messages.CaptureOptions) Options {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.recorder))
	return Options{
		Tracer:  telemetry.NewTracer(tp),
		Logger:  h.logs,
		Metrics: h.metrics,
		Emitter: h.events,
		Capture: capture,
	}
}

func (h *harness) endedSpan() sdktrace.ReadOnlySpan {
	ended := h.recorder.Ended()
	if len(ended) != 1 {
		return nil
	}
	return ended[0]
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(n int64) *int64 { return &n }

func float64Ptr(f float64) *float64 { return &f }

var contentKeys = []attribute.Key{
	semconv.GenAISystemInstructionsKey,
	semconv.GenAIInputMessagesKey,
	semconv.GenAIToolDefinitionsKey,
	semconv.GenAIOutputMessagesKey,
}

func sampleRequest() chatRequest {
	return chatRequest{
		Model:       "gpt-4o-mini",
		Temperature: float64Ptr(0.2),
		Stop:        []string{"END"},
		System:      "be brief",
		Prompt:      "hi",
		Tools:       []string{"lookup"},
	}
}

func sampleResponse() *chatResponse {
	return &chatResponse{
		ID:     "chatcmpl-1",
		Model:  "gpt-4o-mini-2024-07-18",
		Finish: []string{"stop"},
		In:     int64Ptr(12),
		Out:    int64Ptr(30),
		Text:   "hello",
	}
}
