package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

const openAIEvents = `
{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"Bon"}}]}

{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"jour"},"finish_reason":"stop"}]}
{"id":"c1","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}
[DONE]
`

const anthropicEvents = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-x","content":[],"usage":{"input_tokens":6,"output_tokens":1}}}
{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Salut"}}
{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}
{"type":"message_stop"}
`

type captured struct {
	recorder *tracetest.SpanRecorder
	events   []instrument.Event
}

func testOptions(c *captured, capture messages.CaptureOptions) instrument.Options {
	c.recorder = tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(c.recorder))
	return instrument.Options{
		Tracer:  telemetry.NewTracer(tp),
		Logger:  telemetry.NewNoopLogger(),
		Metrics: telemetry.NewNoopMetrics(),
		Emitter: instrument.EventEmitterFunc(func(_ context.Context, ev instrument.Event) {
			c.events = append(c.events, ev)
		}),
		Capture: capture,
	}
}

func spanAttrs(t *testing.T, c *captured) map[attribute.Key]attribute.Value {
	t.Helper()
	ended := c.recorder.Ended()
	require.Len(t, ended, 1)
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range ended[0].Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestReplayOpenAI(t *testing.T) {
	var c captured
	n, err := replay(context.Background(), strings.NewReader(openAIEvents), replayOptions{
		Request:    []byte(`{"model":"gpt-4o","messages":[{"role":"user","content":"hello in French"}]}`),
		Instrument: testOptions(&c, messages.NewCaptureOptions(true, 0, "span-attributes")),
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	attrs := spanAttrs(t, &c)
	require.Equal(t, "gpt-4o", attrs[semconv.GenAIRequestModelKey].AsString())
	require.Equal(t, "c1", attrs[semconv.GenAIResponseIDKey].AsString())
	require.Equal(t, []string{"stop"}, attrs[semconv.GenAIResponseFinishReasonsKey].AsStringSlice())
	require.JSONEq(t, `[{"role":"assistant","finish_reason":"stop","parts":[{"type":"text","content":"Bonjour"}]}]`,
		attrs[semconv.GenAIOutputMessagesKey].AsString())
	require.Empty(t, c.events)
}

func TestReplayAnthropicEventStrategy(t *testing.T) {
	var c captured
	n, err := replay(context.Background(), strings.NewReader(anthropicEvents), replayOptions{
		Provider:   "anthropic",
		Instrument: testOptions(&c, messages.NewCaptureOptions(true, 0, "event")),
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)

	attrs := spanAttrs(t, &c)
	require.Equal(t, "anthropic", attrs[semconv.GenAIProviderNameKey].AsString())
	require.Equal(t, int64(3), attrs[semconv.GenAIUsageOutputTokensKey].AsInt64())
	require.NotContains(t, attrs, semconv.GenAIOutputMessagesKey)

	require.Len(t, c.events, 1)
	require.Equal(t, semconv.InferenceOperationDetailsEvent, c.events[0].Name)
}

func TestReplayReplaceMode(t *testing.T) {
	events := `{"id":"c2","model":"m","choices":[{"index":0,"delta":{"content":"Hello"}}]}
{"id":"c2","model":"m","choices":[{"index":0,"delta":{"content":"Hello world"}}]}`
	var c captured
	_, err := replay(context.Background(), strings.NewReader(events), replayOptions{
		Replace:    true,
		Instrument: testOptions(&c, messages.NewCaptureOptions(true, 0, "span-attributes")),
	})
	require.NoError(t, err)
	require.JSONEq(t, `[{"role":"assistant","parts":[{"type":"text","content":"Hello world"}]}]`,
		spanAttrs(t, &c)[semconv.GenAIOutputMessagesKey].AsString())
}

func TestReplayDecodeError(t *testing.T) {
	var c captured
	n, err := replay(context.Background(), strings.NewReader("{\"id\":\"c3\",\"choices\":[]}\nnot json\n"), replayOptions{
		Instrument: testOptions(&c, messages.CaptureOptions{}),
	})
	require.ErrorContains(t, err, "decode line 2")
	require.Equal(t, 1, n)
	require.Contains(t, spanAttrs(t, &c), semconv.ErrorTypeKey)
}

func TestReplayUnknownProvider(t *testing.T) {
	_, err := replay(context.Background(), strings.NewReader(""), replayOptions{Provider: "cohere"})
	require.Error(t, err)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OTEL_INSTRUMENTATION_GENAI_CAPTURE_MESSAGE_CONTENT", "true")
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.True(t, cfg.CaptureMessageContent)
}
