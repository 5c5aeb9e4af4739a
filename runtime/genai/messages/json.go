package messages

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MarshalJSON encodes the message, always emitting parts as an array.
func (m InputMessage) MarshalJSON() ([]byte, error) {
	type alias InputMessage
	a := alias(m)
	if a.Parts == nil {
		a.Parts = []Part{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes the message and materializes concrete parts.
func (m *InputMessage) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Role  Role              `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	parts, err := decodeParts(tmp.Parts)
	if err != nil {
		return err
	}
	m.Role = tmp.Role
	m.Parts = parts
	return nil
}

// MarshalJSON encodes the message, always emitting parts as an array.
func (m OutputMessage) MarshalJSON() ([]byte, error) {
	type alias OutputMessage
	a := alias(m)
	if a.Parts == nil {
		a.Parts = []Part{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes the message and materializes concrete parts.
func (m *OutputMessage) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Role         Role              `json:"role"`
		Parts        []json.RawMessage `json:"parts"`
		FinishReason string            `json:"finish_reason"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	parts, err := decodeParts(tmp.Parts)
	if err != nil {
		return err
	}
	m.Role = tmp.Role
	m.Parts = parts
	m.FinishReason = tmp.FinishReason
	return nil
}

// UnmarshalJSON decodes a JSON array of messages.
func (m *InputMessages) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.messages)
}

// UnmarshalJSON decodes a JSON array of messages.
func (m *OutputMessages) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.messages)
}

// DecodePart decodes a single JSON part using its "type" discriminator.
// Unknown types decode to GenericPart.
func DecodePart(raw json.RawMessage) (Part, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode part object: %w", err)
	}
	typRaw, ok := obj["type"]
	if !ok {
		return nil, errors.New("part is missing type")
	}
	var typ string
	if err := json.Unmarshal(typRaw, &typ); err != nil {
		return nil, fmt.Errorf("decode part type: %w", err)
	}
	switch typ {
	case PartTypeText:
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode text part: %w", err)
		}
		return TextPart{Content: p.Content}, nil
	case PartTypeToolCall:
		var p struct {
			ID        string          `json:"id"`
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode tool call part: %w", err)
		}
		return ToolCallRequestPart{ID: p.ID, Name: p.Name, Arguments: rawArguments(p.Arguments)}, nil
	case PartTypeToolCallResponse:
		var p struct {
			ID       string `json:"id"`
			Response any    `json:"response"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode tool call response part: %w", err)
		}
		return ToolCallResponsePart{ID: p.ID, Response: p.Response}, nil
	default:
		fields := make(map[string]any, len(obj)-1)
		for k, v := range obj {
			if k == "type" {
				continue
			}
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return nil, fmt.Errorf("decode %s field %q: %w", typ, k, err)
			}
			fields[k] = val
		}
		return GenericPart{Type: typ, Fields: fields}, nil
	}
}

func decodeParts(raws []json.RawMessage) ([]Part, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	parts := make([]Part, 0, len(raws))
	for i, raw := range raws {
		p, err := DecodePart(raw)
		if err != nil {
			return nil, fmt.Errorf("decode parts[%d]: %w", i, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// rawArguments recovers the argument text: JSON strings hold fragments that
// were not valid JSON when encoded, anything else is the JSON itself.
func rawArguments(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
