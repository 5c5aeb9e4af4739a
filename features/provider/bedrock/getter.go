package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/semconv"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// RequestGetter maps Converse inputs to request attributes.
	RequestGetter struct{}

	// Getter maps Converse calls.
	Getter struct {
		RequestGetter
	}

	// StreamGetter maps ConverseStream calls.
	StreamGetter struct {
		RequestGetter
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.AttributesGetter[*Request, *bedrockruntime.ConverseOutput] = Getter{}
	_ instrument.AttributesGetter[*Request, *stream.Response]               = StreamGetter{}
)

func (RequestGetter) OperationName(*Request) string { return semconv.OperationChat }

func (RequestGetter) ProviderName(*Request) string { return semconv.ProviderAWSBedrock }

func (RequestGetter) RequestModel(r *Request) *string { return nonEmpty(r.ModelID) }

func (RequestGetter) RequestSeed(*Request) *int64 { return nil }

func (RequestGetter) RequestEncodingFormats(*Request) []string { return nil }

func (RequestGetter) RequestFrequencyPenalty(*Request) *float64 { return nil }

func (RequestGetter) RequestMaxTokens(r *Request) *int64 {
	if r.InferenceConfig == nil || r.InferenceConfig.MaxTokens == nil {
		return nil
	}
	n := int64(*r.InferenceConfig.MaxTokens)
	return &n
}

func (RequestGetter) RequestPresencePenalty(*Request) *float64 { return nil }

func (RequestGetter) RequestStopSequences(r *Request) []string {
	if r.InferenceConfig == nil {
		return nil
	}
	return r.InferenceConfig.StopSequences
}

func (RequestGetter) RequestTemperature(r *Request) *float64 {
	if r.InferenceConfig == nil {
		return nil
	}
	return widen(r.InferenceConfig.Temperature)
}

// RequestTopK reads top_k from the additional model request fields. The
// Converse inference configuration has no such field.
func (RequestGetter) RequestTopK(r *Request) *float64 {
	v, ok := r.additionalField("top_k")
	if !ok {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func (RequestGetter) RequestTopP(r *Request) *float64 {
	if r.InferenceConfig == nil {
		return nil
	}
	return widen(r.InferenceConfig.TopP)
}

func (RequestGetter) ConversationID(*Request) *string { return nil }

func (RequestGetter) RequestChoiceCount(*Request) *int64 { return nil }

func (RequestGetter) OutputType(*Request) *string { return nil }

func (Getter) ResponseFinishReasons(_ *Request, resp *bedrockruntime.ConverseOutput) []string {
	if resp == nil || resp.StopReason == "" {
		return nil
	}
	return []string{string(resp.StopReason)}
}

// ResponseID returns nil: Converse responses carry no identifier.
func (Getter) ResponseID(*Request, *bedrockruntime.ConverseOutput) *string { return nil }

// ResponseModel returns nil: Converse responses do not echo the model.
func (Getter) ResponseModel(*Request, *bedrockruntime.ConverseOutput) *string { return nil }

func (Getter) UsageInputTokens(_ *Request, resp *bedrockruntime.ConverseOutput) *int64 {
	if resp == nil || resp.Usage == nil {
		return nil
	}
	return count(resp.Usage.InputTokens)
}

func (Getter) UsageOutputTokens(_ *Request, resp *bedrockruntime.ConverseOutput) *int64 {
	if resp == nil || resp.Usage == nil {
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

func widen(f *float32) *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}

func count(n *int32) *int64 {
	if n == nil || *n == 0 {
		return nil
	}
	v := int64(*n)
	return &v
}
