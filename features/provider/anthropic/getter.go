package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// RequestGetter maps Messages API parameters to request attributes.
	RequestGetter struct{}

	// Getter maps calls that return a complete message.
	Getter struct {
		RequestGetter
	}

	// StreamGetter maps streamed calls.
	StreamGetter struct {
		RequestGetter
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.AttributesGetter[*Request, *sdk.Message]     = Getter{}
	_ instrument.AttributesGetter[*Request, *stream.Response] = StreamGetter{}
)

func (RequestGetter) OperationName(*Request) string { return semconv.OperationChat }

func (RequestGetter) ProviderName(*Request) string { return semconv.ProviderAnthropic }

func (RequestGetter) RequestModel(r *Request) *string { return nonEmpty(r.decoded().Model) }

func (RequestGetter) RequestSeed(*Request) *int64 { return nil }

func (RequestGetter) RequestEncodingFormats(*Request) []string { return nil }

func (RequestGetter) RequestFrequencyPenalty(*Request) *float64 { return nil }

func (RequestGetter) RequestMaxTokens(r *Request) *int64 { return r.decoded().MaxTokens }

func (RequestGetter) RequestPresencePenalty(*Request) *float64 { return nil }

func (RequestGetter) RequestStopSequences(r *Request) []string { return r.decoded().StopSequences }

func (RequestGetter) RequestTemperature(r *Request) *float64 { return r.decoded().Temperature }

func (RequestGetter) RequestTopK(r *Request) *float64 {
	k := r.decoded().TopK
	if k == nil {
		return nil
	}
	f := float64(*k)
	return &f
}

func (RequestGetter) RequestTopP(r *Request) *float64 { return r.decoded().TopP }

func (RequestGetter) ConversationID(*Request) *string { return nil }

func (RequestGetter) RequestChoiceCount(*Request) *int64 { return nil }

func (RequestGetter) OutputType(*Request) *string { return nil }

func (Getter) ResponseFinishReasons(_ *Request, resp *sdk.Message) []string {
	if resp == nil || resp.StopReason == "" {
		return nil
	}
	return []string{string(resp.StopReason)}
}

func (Getter) ResponseID(_ *Request, resp *sdk.Message) *string {
	if resp == nil {
		return nil
	}
	return nonEmpty(resp.ID)
}

func (Getter) ResponseModel(_ *Request, resp *sdk.Message) *string {
	if resp == nil {
		return nil
	}
	return nonEmpty(string(resp.Model))
}

func (Getter) UsageInputTokens(_ *Request, resp *sdk.Message) *int64 {
	if resp == nil {
		return nil
	}
	return count(resp.Usage.InputTokens)
}

func (Getter) UsageOutputTokens(_ *Request, resp *sdk.Message) *int64 {
	if resp == nil {
		return nil
	}
	return count(resp.Usage.OutputTokens)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func count(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
