package bedrock

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/stream"
)

const partTypeReasoning = "reasoning"

type (
	// RequestMessages maps the system prompt, conversation and tool
	// configuration of a request.
	RequestMessages struct{}

	// Messages maps Converse calls.
	Messages struct {
		RequestMessages
	}

	// StreamMessages maps ConverseStream calls.
	StreamMessages struct {
		RequestMessages
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.MessagesProvider[*Request, *bedrockruntime.ConverseOutput] = Messages{}
	_ instrument.MessagesProvider[*Request, *stream.Response]               = StreamMessages{}
)

// SystemInstructions returns the text system blocks. Cache points and guard
// content are skipped.
func (RequestMessages) SystemInstructions(r *Request) *messages.SystemInstructions {
	var parts []messages.Part
	for _, b := range r.System {
		if t, ok := b.(*brtypes.SystemContentBlockMemberText); ok {
			parts = append(parts, messages.TextPart{Content: t.Value})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return messages.NewSystemInstructions(parts...)
}

// InputMessages returns the conversation in order.
func (RequestMessages) InputMessages(r *Request) *messages.InputMessages {
	if len(r.Messages) == 0 {
		return nil
	}
	out := messages.NewInputMessages()
	for _, m := range r.Messages {
		out.Append(messages.InputMessage{
			Role:  messages.Role(m.Role),
			Parts: convertBlocks(m.Content),
		})
	}
	return out
}

// ToolDefinitions returns the tool specifications of the tool configuration.
func (RequestMessages) ToolDefinitions(r *Request) *messages.ToolDefinitions {
	if r.ToolConfig == nil {
		return nil
	}
	var defs []messages.ToolDefinition
	for _, t := range r.ToolConfig.Tools {
		spec, ok := t.(*brtypes.ToolMemberToolSpec)
		if !ok {
			continue
		}
		def := messages.ToolDefinition{
			Type:        "function",
			Name:        deref(spec.Value.Name),
			Description: deref(spec.Value.Description),
		}
		if schema, ok := spec.Value.InputSchema.(*brtypes.ToolInputSchemaMemberJson); ok {
			var params map[string]any
			if err := decodeDocument(schema.Value, &params); err == nil {
				def.Parameters = params
			}
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 {
		return nil
	}
	return messages.NewToolDefinitions(defs...)
}

// OutputMessages returns the assistant message of a Converse response.
func (Messages) OutputMessages(_ *Request, resp *bedrockruntime.ConverseOutput) *messages.OutputMessages {
	if resp == nil {
		return nil
	}
	msg, ok := resp.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil
	}
	role := messages.Role(msg.Value.Role)
	if role == "" {
		role = messages.RoleAssistant
	}
	return messages.NewOutputMessages(messages.OutputMessage{
		Role:         role,
		Parts:        convertBlocks(msg.Value.Content),
		FinishReason: string(resp.StopReason),
	})
}

func convertBlocks(blocks []brtypes.ContentBlock) []messages.Part {
	parts := make([]messages.Part, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case *brtypes.ContentBlockMemberText:
			parts = append(parts, messages.TextPart{Content: v.Value})
		case *brtypes.ContentBlockMemberToolUse:
			parts = append(parts, messages.ToolCallRequestPart{
				ID:        deref(v.Value.ToolUseId),
				Name:      deref(v.Value.Name),
				Arguments: string(documentJSON(v.Value.Input)),
			})
		case *brtypes.ContentBlockMemberToolResult:
			parts = append(parts, messages.ToolCallResponsePart{
				ID:       deref(v.Value.ToolUseId),
				Response: toolResult(v.Value.Content),
			})
		case *brtypes.ContentBlockMemberReasoningContent:
			if t, ok := v.Value.(*brtypes.ReasoningContentBlockMemberReasoningText); ok {
				parts = append(parts, messages.GenericPart{
					Type:   partTypeReasoning,
					Fields: map[string]any{"content": deref(t.Value.Text)},
				})
			}
		case *brtypes.ContentBlockMemberImage:
			parts = append(parts, messages.GenericPart{Type: "image", Fields: map[string]any{"format": string(v.Value.Format)}})
		case *brtypes.ContentBlockMemberDocument:
			parts = append(parts, messages.GenericPart{Type: "document", Fields: map[string]any{"name": deref(v.Value.Name)}})
		case *brtypes.ContentBlockMemberCachePoint:
		default:
			parts = append(parts, messages.GenericPart{Type: "unknown"})
		}
	}
	return parts
}

// toolResult joins text results and JSON documents in order.
func toolResult(blocks []brtypes.ToolResultContentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch v := b.(type) {
		case *brtypes.ToolResultContentBlockMemberText:
			sb.WriteString(v.Value)
		case *brtypes.ToolResultContentBlockMemberJson:
			sb.Write(documentJSON(v.Value))
		}
	}
	return sb.String()
}
