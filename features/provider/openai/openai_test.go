package openai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

// testDecoder feeds a fixed sequence of events to the ssestream.Stream.
type testDecoder struct {
	events []ssestream.Event
	i      int
	err    error
}

func (d *testDecoder) Event() ssestream.Event { return d.events[d.i-1] }

func (d *testDecoder) Next() bool {
	if d.err != nil || d.i >= len(d.events) {
		return false
	}
	d.i++
	return true
}

func (d *testDecoder) Close() error { return nil }
func (d *testDecoder) Err() error   { return d.err }

type fakeChat struct {
	resp   *sdk.ChatCompletion
	err    error
	chunks []string
	params sdk.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) (*sdk.ChatCompletion, error) {
	f.params = body
	return f.resp, f.err
}

func (f *fakeChat) NewStreaming(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk] {
	f.params = body
	events := make([]ssestream.Event, 0, len(f.chunks)+1)
	for _, c := range f.chunks {
		events = append(events, ssestream.Event{Data: []byte(c)})
	}
	events = append(events, ssestream.Event{Data: []byte("[DONE]")})
	return ssestream.NewStream[sdk.ChatCompletionChunk](&testDecoder{events: events}, nil)
}

func newTestClient(t *testing.T, chat ChatClient, capture messages.CaptureOptions) (*Client, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	c, err := New(chat, instrument.Options{
		Tracer:  telemetry.NewTracer(tp),
		Logger:  telemetry.NewNoopLogger(),
		Metrics: telemetry.NewNoopMetrics(),
		Emitter: instrument.EventEmitterFunc(func(context.Context, instrument.Event) {}),
		Capture: capture,
	})
	require.NoError(t, err)
	return c, recorder
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func mustUnmarshal[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

const wireRequestJSON = `{
  "model": "gpt-4o",
  "messages": [
    {"role": "developer", "content": "be brief"},
    {"role": "user", "content": [
      {"type": "text", "text": "what is in "},
      {"type": "image_url", "image_url": {"url": "https://example.com/cat.png"}}
    ]},
    {"role": "assistant", "content": null, "tool_calls": [
      {"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"cat\"}"}}
    ]},
    {"role": "tool", "tool_call_id": "call_1", "content": "a cat"}
  ],
  "stop": "END",
  "n": 3,
  "max_tokens": 50,
  "top_p": 0.9,
  "presence_penalty": 0.1,
  "frequency_penalty": 0.2,
  "response_format": {"type": "json_schema"},
  "tools": [
    {"type": "function", "function": {"name": "lookup", "description": "search", "parameters": {"type": "object"}}}
  ]
}`

func TestRequestGetterFromParams(t *testing.T) {
	req := NewRequest(sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModelGPT4oMini,
		Messages:            []sdk.ChatCompletionMessageParamUnion{sdk.SystemMessage("be brief"), sdk.UserMessage("hi")},
		Temperature:         sdk.Float(0.2),
		Seed:                sdk.Int(7),
		MaxCompletionTokens: sdk.Int(100),
	})
	g := RequestGetter{}

	require.Equal(t, "chat", g.OperationName(req))
	require.Equal(t, "openai", g.ProviderName(req))
	require.Equal(t, "gpt-4o-mini", *g.RequestModel(req))
	require.InDelta(t, 0.2, *g.RequestTemperature(req), 1e-9)
	require.Equal(t, int64(7), *g.RequestSeed(req))
	require.Equal(t, int64(100), *g.RequestMaxTokens(req))
	require.Nil(t, g.RequestTopP(req))
	require.Nil(t, g.RequestTopK(req))
	require.Nil(t, g.RequestStopSequences(req))
	require.Nil(t, g.RequestChoiceCount(req))
	require.Nil(t, g.OutputType(req))

	in := RequestMessages{}.InputMessages(req).Messages()
	require.Len(t, in, 2)
	require.Equal(t, messages.RoleSystem, in[0].Role)
	require.Equal(t, []messages.Part{messages.TextPart{Content: "hi"}}, in[1].Parts)
}

func TestRequestGetterFromWire(t *testing.T) {
	req := NewRequestJSON([]byte(wireRequestJSON))
	g := RequestGetter{}

	require.Equal(t, []string{"END"}, g.RequestStopSequences(req))
	require.Equal(t, int64(3), *g.RequestChoiceCount(req))
	require.Equal(t, int64(50), *g.RequestMaxTokens(req))
	require.InDelta(t, 0.9, *g.RequestTopP(req), 1e-9)
	require.InDelta(t, 0.1, *g.RequestPresencePenalty(req), 1e-9)
	require.InDelta(t, 0.2, *g.RequestFrequencyPenalty(req), 1e-9)
	require.Equal(t, "json", *g.OutputType(req))
	require.Nil(t, g.RequestSeed(req))

	arr := NewRequestJSON([]byte(`{"model":"m","stop":["a","b"]}`))
	require.Equal(t, []string{"a", "b"}, g.RequestStopSequences(arr))
}

func TestRequestMessagesFromWire(t *testing.T) {
	req := NewRequestJSON([]byte(wireRequestJSON))
	p := RequestMessages{}

	require.Nil(t, p.SystemInstructions(req))

	in := p.InputMessages(req).Messages()
	require.Len(t, in, 4)
	require.Equal(t, messages.RoleSystem, in[0].Role)
	require.Equal(t, []messages.Part{
		messages.TextPart{Content: "what is in "},
		messages.GenericPart{Type: "image_url", Fields: map[string]any{
			"image_url": map[string]any{"url": "https://example.com/cat.png"},
		}},
	}, in[1].Parts)
	require.Equal(t, []messages.Part{
		messages.ToolCallRequestPart{ID: "call_1", Name: "lookup", Arguments: `{"q":"cat"}`},
	}, in[2].Parts)
	require.Equal(t, messages.RoleTool, in[3].Role)
	require.Equal(t, []messages.Part{
		messages.ToolCallResponsePart{ID: "call_1", Response: "a cat"},
	}, in[3].Parts)

	defs := p.ToolDefinitions(req).Definitions()
	require.Equal(t, []messages.ToolDefinition{{
		Type:        "function",
		Name:        "lookup",
		Description: "search",
		Parameters:  map[string]any{"type": "object"},
	}}, defs)
}

func TestGetterCompletion(t *testing.T) {
	resp := mustUnmarshal[sdk.ChatCompletion](t, `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-2024-08-06",
  "choices": [
    {"index": 0, "finish_reason": "tool_calls", "message": {"role": "assistant", "content": "let me check",
      "tool_calls": [{"id": "call_9", "type": "function", "function": {"name": "lookup", "arguments": "{}"}}]}},
    {"index": 1, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello"}}
  ],
  "usage": {"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18}
}`)
	req := NewRequest(sdk.ChatCompletionNewParams{Model: sdk.ChatModelGPT4o})
	g := Getter{}

	require.Equal(t, []string{"tool_calls", "stop"}, g.ResponseFinishReasons(req, &resp))
	require.Equal(t, "chatcmpl-1", *g.ResponseID(req, &resp))
	require.Equal(t, "gpt-4o-2024-08-06", *g.ResponseModel(req, &resp))
	require.Equal(t, int64(11), *g.UsageInputTokens(req, &resp))
	require.Equal(t, int64(7), *g.UsageOutputTokens(req, &resp))

	out := Messages{}.OutputMessages(req, &resp).Messages()
	require.Equal(t, []messages.OutputMessage{
		{
			Role: messages.RoleAssistant,
			Parts: []messages.Part{
				messages.TextPart{Content: "let me check"},
				messages.ToolCallRequestPart{ID: "call_9", Name: "lookup", Arguments: "{}"},
			},
			FinishReason: "tool_calls",
		},
		{
			Role:         messages.RoleAssistant,
			Parts:        []messages.Part{messages.TextPart{Content: "hello"}},
			FinishReason: "stop",
		},
	}, out)

	require.Nil(t, g.ResponseID(req, nil))
	require.Nil(t, Messages{}.OutputMessages(req, nil))
}

func TestConvertChunk(t *testing.T) {
	chunk := mustUnmarshal[sdk.ChatCompletionChunk](t, `{
  "id": "chatcmpl-2", "object": "chat.completion.chunk", "created": 1, "model": "gpt-4o",
  "choices": [{"index": 1, "finish_reason": null, "delta": {"role": "assistant", "tool_calls": [
    {"index": 2, "id": "call_3", "type": "function", "function": {"name": "sum", "arguments": "{\"a\""}}
  ]}}]
}`)
	got := ConvertChunk(chunk)
	require.Equal(t, "chatcmpl-2", got.ResponseID)
	require.Equal(t, "gpt-4o", got.Model)
	require.Nil(t, got.Usage)
	require.Len(t, got.Choices, 1)

	d := got.Choices[0]
	require.Equal(t, 1, d.Index)
	require.Empty(t, d.FinishReason)
	require.Nil(t, d.Message.Content)
	require.Equal(t, "assistant", d.Message.Role)
	require.Len(t, d.Message.ToolCalls, 1)
	tc := d.Message.ToolCalls[0]
	require.Equal(t, 2, *tc.Position)
	require.Equal(t, "call_3", tc.ID)
	require.Equal(t, "sum", tc.Name)
	require.Equal(t, `{"a"`, *tc.Arguments)

	usage := ConvertChunk(mustUnmarshal[sdk.ChatCompletionChunk](t,
		`{"id":"x","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":0,"total_tokens":5}}`))
	require.NotNil(t, usage.Usage)
	require.Equal(t, int64(5), *usage.Usage.InputTokens)
	require.Nil(t, usage.Usage.OutputTokens)
}

func TestClientStream(t *testing.T) {
	chat := &fakeChat{chunks: []string{
		`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"add","arguments":"{\"a\":"}}]}}]}`,
		`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]},"finish_reason":"tool_calls"}]}`,
		`{"id":"c1","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":9,"completion_tokens":4,"total_tokens":13}}`,
	}}
	c, recorder := newTestClient(t, chat, messages.NewCaptureOptions(true, 0, "span-attributes"))

	s := c.Stream(context.Background(), sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModelGPT4o,
		Messages: []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage("add one")},
	})
	var n int
	for s.Next() {
		n++
	}
	require.NoError(t, s.Err())
	require.Equal(t, 5, n)
	require.NoError(t, s.Close())

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "chat gpt-4o", ended[0].Name())
	attrs := attrMap(ended[0].Attributes())
	require.Equal(t, "c1", attrs[semconv.GenAIResponseIDKey].AsString())
	require.Equal(t, []string{"tool_calls"}, attrs[semconv.GenAIResponseFinishReasonsKey].AsStringSlice())
	require.Equal(t, int64(9), attrs[semconv.GenAIUsageInputTokensKey].AsInt64())
	require.Equal(t, int64(4), attrs[semconv.GenAIUsageOutputTokensKey].AsInt64())
	require.JSONEq(t, `[{"role":"assistant","finish_reason":"tool_calls","parts":[
		{"type":"text","content":"Hello"},
		{"type":"tool_call","id":"call_1","name":"add","arguments":{"a":1}}
	]}]`, attrs[semconv.GenAIOutputMessagesKey].AsString())
	require.JSONEq(t, `[{"role":"user","parts":[{"type":"text","content":"add one"}]}]`,
		attrs[semconv.GenAIInputMessagesKey].AsString())
}

func TestClientCompleteError(t *testing.T) {
	boom := errors.New("boom")
	chat := &fakeChat{err: boom}
	c, recorder := newTestClient(t, chat, messages.CaptureOptions{})

	_, err := c.Complete(context.Background(), sdk.ChatCompletionNewParams{Model: sdk.ChatModelGPT4o})
	require.ErrorIs(t, err, boom)
	require.Equal(t, "gpt-4o", string(chat.params.Model))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := attrMap(ended[0].Attributes())
	require.Contains(t, attrs, semconv.ErrorTypeKey)
	require.NotContains(t, attrs, semconv.GenAIResponseIDKey)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, instrument.Options{})
	require.Error(t, err)
	_, err = NewFromAPIKey("", instrument.Options{})
	require.Error(t, err)
}
