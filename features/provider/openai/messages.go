package openai

import (
	"encoding/json"

	sdk "github.com/openai/openai-go"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// RequestMessages maps the chat history and tools of a request.
	RequestMessages struct{}

	// Messages maps chat completion calls that return a complete response.
	Messages struct {
		RequestMessages
	}

	// StreamMessages maps streamed chat completion calls.
	StreamMessages struct {
		RequestMessages
		instrument.StreamResponse[*Request]
	}
)

var (
	_ instrument.MessagesProvider[*Request, *sdk.ChatCompletion] = Messages{}
	_ instrument.MessagesProvider[*Request, *stream.Response]    = StreamMessages{}
)

// SystemInstructions returns nil: system and developer messages are part of
// the chat history and are reported as input messages.
func (RequestMessages) SystemInstructions(*Request) *messages.SystemInstructions { return nil }

// InputMessages returns the chat history in order.
func (RequestMessages) InputMessages(r *Request) *messages.InputMessages {
	w := r.decoded()
	if len(w.Messages) == 0 {
		return nil
	}
	out := messages.NewInputMessages()
	for _, m := range w.Messages {
		out.Append(messages.InputMessage{Role: inputRole(m.Role), Parts: inputParts(m)})
	}
	return out
}

// ToolDefinitions returns the function tools of the request.
func (RequestMessages) ToolDefinitions(r *Request) *messages.ToolDefinitions {
	w := r.decoded()
	if len(w.Tools) == 0 {
		return nil
	}
	out := messages.NewToolDefinitions()
	for _, t := range w.Tools {
		typ := t.Type
		if typ == "" {
			typ = "function"
		}
		out.Append(messages.ToolDefinition{
			Type:        typ,
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return out
}

// OutputMessages returns one message per choice.
func (Messages) OutputMessages(_ *Request, resp *sdk.ChatCompletion) *messages.OutputMessages {
	if resp == nil {
		return nil
	}
	out := messages.NewOutputMessages()
	for _, c := range resp.Choices {
		var parts []messages.Part
		if c.Message.Content != "" {
			parts = append(parts, messages.TextPart{Content: c.Message.Content})
		}
		for _, tc := range c.Message.ToolCalls {
			parts = append(parts, messages.ToolCallRequestPart{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		out.Append(messages.OutputMessage{
			Role:         messages.RoleAssistant,
			Parts:        parts,
			FinishReason: string(c.FinishReason),
		})
	}
	return out
}

// inputRole maps developer messages to the system role.
func inputRole(role string) messages.Role {
	if role == "developer" {
		return messages.RoleSystem
	}
	return messages.Role(role)
}

func inputParts(m wireMessage) []messages.Part {
	var parts []messages.Part
	if m.Role == "tool" {
		var text string
		if s, ok := contentString(m.Content); ok {
			text = s
		} else {
			text = joinText(contentParts(m.Content))
		}
		return []messages.Part{messages.ToolCallResponsePart{ID: m.ToolCallID, Response: text}}
	}
	if s, ok := contentString(m.Content); ok {
		if s != "" {
			parts = append(parts, messages.TextPart{Content: s})
		}
	} else {
		parts = append(parts, contentParts(m.Content)...)
	}
	for _, tc := range m.ToolCalls {
		parts = append(parts, messages.ToolCallRequestPart{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return parts
}

func contentString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// contentParts decodes an array of content parts. Text and refusal parts map
// to text, other part types are kept as generic parts.
func contentParts(raw json.RawMessage) []messages.Part {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	parts := make([]messages.Part, 0, len(items))
	for _, item := range items {
		typ, _ := item["type"].(string)
		switch typ {
		case "text":
			text, _ := item["text"].(string)
			parts = append(parts, messages.TextPart{Content: text})
		case "refusal":
			text, _ := item["refusal"].(string)
			parts = append(parts, messages.TextPart{Content: text})
		default:
			fields := make(map[string]any, len(item))
			for k, v := range item {
				if k != "type" {
					fields[k] = v
				}
			}
			parts = append(parts, messages.GenericPart{Type: typ, Fields: fields})
		}
	}
	return parts
}

func joinText(parts []messages.Part) string {
	var text string
	for _, p := range parts {
		if t, ok := p.(messages.TextPart); ok {
			text += t.Content
		}
	}
	return text
}
