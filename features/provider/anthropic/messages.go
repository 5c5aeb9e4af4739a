package anthropic

import (
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/stream"
)

// partTypeReasoning tags extended thinking blocks.
const partTypeReasoning = "reasoning"

type (
	// RequestMessages maps the system prompt, history and tools of a
	// request.
	RequestMessages struct{}

	// Messages maps calls that return a complete message.
	Messages struct {
		RequestMessages
	}

	// StreamMessages maps streamed calls.
	StreamMessages struct {
		RequestMessages
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.MessagesProvider[*Request, *sdk.Message]     = Messages{}
	_ instrument.MessagesProvider[*Request, *stream.Response] = StreamMessages{}
)

// SystemInstructions returns the system prompt.
func (RequestMessages) SystemInstructions(r *Request) *messages.SystemInstructions {
	bs := blocks(r.decoded().System)
	if len(bs) == 0 {
		return nil
	}
	return messages.NewSystemInstructions(convertBlocks(bs)...)
}

// InputMessages returns the conversation in order.
func (RequestMessages) InputMessages(r *Request) *messages.InputMessages {
	w := r.decoded()
	if len(w.Messages) == 0 {
		return nil
	}
	out := messages.NewInputMessages()
	for _, m := range w.Messages {
		out.Append(messages.InputMessage{
			Role:  messages.Role(m.Role),
			Parts: convertBlocks(blocks(m.Content)),
		})
	}
	return out
}

// ToolDefinitions returns the tools of the request. Client tools carry no
// type on the wire and are reported as functions.
func (RequestMessages) ToolDefinitions(r *Request) *messages.ToolDefinitions {
	w := r.decoded()
	if len(w.Tools) == 0 {
		return nil
	}
	out := messages.NewToolDefinitions()
	for _, t := range w.Tools {
		typ := t.Type
		if typ == "" || typ == "custom" {
			typ = "function"
		}
		out.Append(messages.ToolDefinition{
			Type:        typ,
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

// OutputMessages returns the assistant message.
func (Messages) OutputMessages(_ *Request, resp *sdk.Message) *messages.OutputMessages {
	if resp == nil {
		return nil
	}
	var parts []messages.Part
	for _, b := range resp.Content {
		switch b.Type {
		case "text":
			parts = append(parts, messages.TextPart{Content: b.Text})
		case "tool_use":
			parts = append(parts, messages.ToolCallRequestPart{ID: b.ID, Name: b.Name, Arguments: string(b.Input)})
		case "thinking":
			parts = append(parts, messages.GenericPart{Type: partTypeReasoning, Fields: map[string]any{"content": b.Thinking}})
		default:
			parts = append(parts, messages.GenericPart{Type: b.Type})
		}
	}
	return messages.NewOutputMessages(messages.OutputMessage{
		Role:         messages.RoleAssistant,
		Parts:        parts,
		FinishReason: string(resp.StopReason),
	})
}

func convertBlocks(bs []wireBlock) []messages.Part {
	parts := make([]messages.Part, 0, len(bs))
	for _, b := range bs {
		switch b.Type {
		case "text":
			parts = append(parts, messages.TextPart{Content: b.Text})
		case "tool_use":
			parts = append(parts, messages.ToolCallRequestPart{ID: b.ID, Name: b.Name, Arguments: string(b.Input)})
		case "tool_result":
			parts = append(parts, messages.ToolCallResponsePart{ID: b.ToolUseID, Response: resultText(b)})
		case "thinking":
			parts = append(parts, messages.GenericPart{Type: partTypeReasoning, Fields: map[string]any{"content": b.Thinking}})
		default:
			parts = append(parts, messages.GenericPart{Type: b.Type})
		}
	}
	return parts
}

func resultText(b wireBlock) string {
	var sb strings.Builder
	for _, c := range blocks(b.Content) {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}
