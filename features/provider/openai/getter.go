package openai

import (
	sdk "github.com/openai/openai-go"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// RequestGetter maps chat completion parameters to request attributes.
	RequestGetter struct{}

	// Getter maps chat completion calls that return a complete response.
	Getter struct {
		RequestGetter
	}

	// StreamGetter maps streamed chat completion calls.
	StreamGetter struct {
		RequestGetter
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.AttributesGetter[*Request, *sdk.ChatCompletion] = Getter{}
	_ instrument.AttributesGetter[*Request, *stream.Response]    = StreamGetter{}
)

// OperationName returns "chat".
func (RequestGetter) OperationName(*Request) string { return semconv.OperationChat }

// ProviderName returns "openai".
func (RequestGetter) ProviderName(*Request) string { return semconv.ProviderOpenAI }

func (RequestGetter) RequestModel(r *Request) *string {
	return nonEmpty(r.decoded().Model)
}

func (RequestGetter) RequestSeed(r *Request) *int64 { return r.decoded().Seed }

// RequestEncodingFormats returns nil: chat completions have no encoding
// format.
func (RequestGetter) RequestEncodingFormats(*Request) []string { return nil }

func (RequestGetter) RequestFrequencyPenalty(r *Request) *float64 {
	return r.decoded().FrequencyPenalty
}

// RequestMaxTokens prefers max_completion_tokens over the deprecated
// max_tokens.
func (RequestGetter) RequestMaxTokens(r *Request) *int64 {
	w := r.decoded()
	if w.MaxCompletionTokens != nil {
		return w.MaxCompletionTokens
	}
	return w.MaxTokens
}

func (RequestGetter) RequestPresencePenalty(r *Request) *float64 {
	return r.decoded().PresencePenalty
}

func (RequestGetter) RequestStopSequences(r *Request) []string {
	return r.decoded().stopSequences()
}

func (RequestGetter) RequestTemperature(r *Request) *float64 { return r.decoded().Temperature }

// RequestTopK returns nil: OpenAI has no top_k parameter.
func (RequestGetter) RequestTopK(*Request) *float64 { return nil }

func (RequestGetter) RequestTopP(r *Request) *float64 { return r.decoded().TopP }

// ConversationID returns nil: chat completions are stateless.
func (RequestGetter) ConversationID(*Request) *string { return nil }

// RequestChoiceCount returns n when it differs from the default of 1.
func (RequestGetter) RequestChoiceCount(r *Request) *int64 {
	if n := r.decoded().N; n != nil && *n != 1 {
		return n
	}
	return nil
}

// OutputType maps the response format to "text" or "json".
func (RequestGetter) OutputType(r *Request) *string {
	f := r.decoded().ResponseFormat
	if f == nil {
		return nil
	}
	switch f.Type {
	case "text":
		t := semconv.OutputTypeText
		return &t
	case "json_object", "json_schema":
		t := semconv.OutputTypeJSON
		return &t
	}
	return nil
}

// ResponseFinishReasons returns the finish reason of each choice.
func (Getter) ResponseFinishReasons(_ *Request, resp *sdk.ChatCompletion) []string {
	if resp == nil {
		return nil
	}
	var reasons []string
	for _, c := range resp.Choices {
		if r := string(c.FinishReason); r != "" {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

func (Getter) ResponseID(_ *Request, resp *sdk.ChatCompletion) *string {
	if resp == nil {
		return nil
	}
	return nonEmpty(resp.ID)
}

func (Getter) ResponseModel(_ *Request, resp *sdk.ChatCompletion) *string {
	if resp == nil {
		return nil
	}
	return nonEmpty(string(resp.Model))
}

func (Getter) UsageInputTokens(_ *Request, resp *sdk.ChatCompletion) *int64 {
	if resp == nil {
		return nil
	}
	return count(resp.Usage.PromptTokens)
}

func (Getter) UsageOutputTokens(_ *Request, resp *sdk.ChatCompletion) *int64 {
	if resp == nil {
		return nil
	}
	return count(resp.Usage.CompletionTokens)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// count reports zero as unset, matching the stream aggregation.
func count(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
