// Package messages defines the provider-agnostic message model captured by
// GenAI telemetry: input and output messages, their parts, tool definitions,
// system instructions, and the capture options that govern how much of that
// content is recorded.
package messages

import "encoding/json"

// Part type discriminators used in the JSON encoding.
const (
	PartTypeText             = "text"
	PartTypeToolCall         = "tool_call"
	PartTypeToolCallResponse = "tool_call_response"
)

type (
	// Part is a single piece of message content. The set of concrete parts is
	// closed: TextPart, ToolCallRequestPart, ToolCallResponsePart and
	// GenericPart. GenericPart carries provider-specific content that has no
	// dedicated type.
	Part interface {
		// PartType returns the JSON type discriminator of the part.
		PartType() string
		isPart()
	}

	// TextPart carries plain text content.
	TextPart struct {
		Content string
	}

	// ToolCallRequestPart records a tool invocation requested by the model.
	// Arguments holds the raw JSON arguments as produced by the model; it may
	// be partial or truncated when captured from a stream.
	ToolCallRequestPart struct {
		ID        string
		Name      string
		Arguments string
	}

	// ToolCallResponsePart records the result of a tool invocation sent back
	// to the model.
	ToolCallResponsePart struct {
		ID       string
		Response any
	}

	// GenericPart carries arbitrary content identified by Type. Fields are
	// encoded next to the type discriminator.
	GenericPart struct {
		Type   string
		Fields map[string]any
	}
)

// PartType implements Part.
func (TextPart) PartType() string { return PartTypeText }

// PartType implements Part.
func (ToolCallRequestPart) PartType() string { return PartTypeToolCall }

// PartType implements Part.
func (ToolCallResponsePart) PartType() string { return PartTypeToolCallResponse }

// PartType implements Part.
func (p GenericPart) PartType() string { return p.Type }

func (TextPart) isPart()             {}
func (ToolCallRequestPart) isPart()  {}
func (ToolCallResponsePart) isPart() {}
func (GenericPart) isPart()          {}

// MarshalJSON encodes the text part with its type discriminator.
func (p TextPart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{PartTypeText, p.Content})
}

// MarshalJSON encodes the tool call. Arguments that form valid JSON are
// embedded as-is, anything else (partial or truncated fragments) is encoded
// as a string.
func (p ToolCallRequestPart) MarshalJSON() ([]byte, error) {
	var args any
	if p.Arguments != "" {
		if json.Valid([]byte(p.Arguments)) {
			args = json.RawMessage(p.Arguments)
		} else {
			args = p.Arguments
		}
	}
	return json.Marshal(struct {
		Type      string `json:"type"`
		ID        string `json:"id,omitempty"`
		Name      string `json:"name"`
		Arguments any    `json:"arguments,omitempty"`
	}{PartTypeToolCall, p.ID, p.Name, args})
}

// MarshalJSON encodes the tool call response.
func (p ToolCallResponsePart) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		ID       string `json:"id,omitempty"`
		Response any    `json:"response,omitempty"`
	}{PartTypeToolCallResponse, p.ID, p.Response})
}

// MarshalJSON flattens Fields next to the type discriminator. A "type" key
// in Fields never overrides Type. Nil field values are omitted.
func (p GenericPart) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(p.Fields)+1)
	for k, v := range p.Fields {
		if v == nil {
			continue
		}
		obj[k] = v
	}
	obj["type"] = p.Type
	return json.Marshal(obj)
}

func cloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	copy(out, parts)
	return out
}
