// Package instrument turns GenAI request/response exchanges into OpenTelemetry
// span attributes, log events and metrics.
//
// Provider integrations supply an AttributesGetter and, optionally, a
// MessagesProvider for their native request and response types. An
// Instrumenter built from them starts a client span per call and finalizes
// it exactly once, whether the call returns a response directly or streams
// it through a stream.Operation.
package instrument

import (
	"goa.design/genai-otel/runtime/genai/messages"
)

type (
	// AttributesGetter maps a provider's native request and response values
	// to GenAI scalar fields. Implementations must not fail on missing
	// optional fields: nil pointers, nil slices and empty strings mean the
	// field does not apply and the attribute is omitted.
	AttributesGetter[Req, Resp any] interface {
		RequestAttributesGetter[Req]
		ResponseAttributesGetter[Req, Resp]
	}

	// RequestAttributesGetter maps request-side fields.
	RequestAttributesGetter[Req any] interface {
		OperationName(req Req) string
		ProviderName(req Req) string
		RequestModel(req Req) *string
		RequestSeed(req Req) *int64
		RequestEncodingFormats(req Req) []string
		RequestFrequencyPenalty(req Req) *float64
		RequestMaxTokens(req Req) *int64
		RequestPresencePenalty(req Req) *float64
		RequestStopSequences(req Req) []string
		RequestTemperature(req Req) *float64
		RequestTopK(req Req) *float64
		RequestTopP(req Req) *float64
		ConversationID(req Req) *string
		RequestChoiceCount(req Req) *int64
		OutputType(req Req) *string
	}

	// ResponseAttributesGetter maps response-side fields.
	ResponseAttributesGetter[Req, Resp any] interface {
		ResponseFinishReasons(req Req, resp Resp) []string
		ResponseID(req Req, resp Resp) *string
		ResponseModel(req Req, resp Resp) *string
		UsageInputTokens(req Req, resp Resp) *int64
		UsageOutputTokens(req Req, resp Resp) *int64
	}

	// MessagesProvider maps native values to the message model. Every method
	// may return nil when the value carries no such content.
	MessagesProvider[Req, Resp any] interface {
		RequestMessagesProvider[Req]
		OutputMessages(req Req, resp Resp) *messages.OutputMessages
	}

	// RequestMessagesProvider maps request-side content.
	RequestMessagesProvider[Req any] interface {
		SystemInstructions(req Req) *messages.SystemInstructions
		InputMessages(req Req) *messages.InputMessages
		ToolDefinitions(req Req) *messages.ToolDefinitions
	}
)
