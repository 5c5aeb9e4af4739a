// Package semconv lists the OpenTelemetry GenAI semantic convention names
// emitted by the instrumentation.
package semconv

import "go.opentelemetry.io/otel/attribute"

// Request attributes.
const (
	GenAIOperationNameKey          = attribute.Key("gen_ai.operation.name")
	GenAIProviderNameKey           = attribute.Key("gen_ai.provider.name")
	GenAIRequestModelKey           = attribute.Key("gen_ai.request.model")
	GenAIRequestSeedKey            = attribute.Key("gen_ai.request.seed")
	GenAIRequestEncodingFormatsKey = attribute.Key("gen_ai.request.encoding_formats")
	GenAIRequestFrequencyPenalty   = attribute.Key("gen_ai.request.frequency_penalty")
	GenAIRequestMaxTokensKey       = attribute.Key("gen_ai.request.max_tokens")
	GenAIRequestPresencePenalty    = attribute.Key("gen_ai.request.presence_penalty")
	GenAIRequestStopSequencesKey   = attribute.Key("gen_ai.request.stop_sequences")
	GenAIRequestTemperatureKey     = attribute.Key("gen_ai.request.temperature")
	GenAIRequestTopKKey            = attribute.Key("gen_ai.request.top_k")
	GenAIRequestTopPKey            = attribute.Key("gen_ai.request.top_p")
	GenAIConversationIDKey         = attribute.Key("gen_ai.conversation.id")
	GenAIRequestChoiceCountKey     = attribute.Key("gen_ai.request.choice.count")
	GenAIOutputTypeKey             = attribute.Key("gen_ai.output.type")
)

// Response attributes.
const (
	GenAIResponseFinishReasonsKey = attribute.Key("gen_ai.response.finish_reasons")
	GenAIResponseIDKey            = attribute.Key("gen_ai.response.id")
	GenAIResponseModelKey         = attribute.Key("gen_ai.response.model")
	GenAIUsageInputTokensKey      = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokensKey     = attribute.Key("gen_ai.usage.output_tokens")
	ErrorTypeKey                  = attribute.Key("error.type")
)

// Message content attributes. Values are JSON strings.
const (
	GenAISystemInstructionsKey = attribute.Key("gen_ai.system_instructions")
	GenAIInputMessagesKey      = attribute.Key("gen_ai.input.messages")
	GenAIOutputMessagesKey     = attribute.Key("gen_ai.output.messages")
	GenAIToolDefinitionsKey    = attribute.Key("gen_ai.tool.definitions")
)

// EventNameKey tags log records with their event name.
const EventNameKey = attribute.Key("event.name")

// InferenceOperationDetailsEvent is the event emitted once per operation
// under the event capture strategy.
const InferenceOperationDetailsEvent = "gen_ai.client.inference.operation.details"

// Metric names and their token type dimension.
const (
	ClientOperationDurationMetric = "gen_ai.client.operation.duration"
	ClientTokenUsageMetric        = "gen_ai.client.token.usage"
	GenAITokenTypeKey             = attribute.Key("gen_ai.token.type")
	TokenTypeInput                = "input"
	TokenTypeOutput               = "output"
)

// Well-known operation names.
const (
	OperationChat            = "chat"
	OperationTextCompletion  = "text_completion"
	OperationGenerateContent = "generate_content"
	OperationEmbeddings      = "embeddings"
)

// Well-known provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderAWSBedrock = "aws.bedrock"
	ProviderDashScope  = "dashscope"
)

// Well-known output types.
const (
	OutputTypeText  = "text"
	OutputTypeJSON  = "json"
	OutputTypeImage = "image"
)
