package messages

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies the author of a message.
type Role string

// Well-known message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ErrIndexOutOfRange is returned by OutputMessages.Merge when the target
// index does not address an existing message.
var ErrIndexOutOfRange = errors.New("messages: index out of range")

type (
	// InputMessage is a message sent to the model.
	InputMessage struct {
		Role  Role   `json:"role"`
		Parts []Part `json:"parts"`
	}

	// OutputMessage is a message produced by the model. FinishReason is empty
	// when the provider did not report one.
	OutputMessage struct {
		Role         Role   `json:"role"`
		Parts        []Part `json:"parts"`
		FinishReason string `json:"finish_reason,omitempty"`
	}

	// InputMessages is the ordered list of messages sent to the model. It is
	// not safe for concurrent use.
	InputMessages struct {
		messages []InputMessage
	}

	// OutputMessages is the ordered list of messages produced by the model. It
	// is not safe for concurrent use; Merge never mutates the receiver.
	OutputMessages struct {
		messages []OutputMessage
	}

	// SystemInstructions holds the instructions provided to the model outside
	// of the chat history.
	SystemInstructions struct {
		parts []Part
	}

	// ToolDefinition describes a tool exposed to the model.
	ToolDefinition struct {
		Type        string         `json:"type"`
		Name        string         `json:"name"`
		Description string         `json:"description,omitempty"`
		Parameters  map[string]any `json:"parameters,omitempty"`
	}

	// ToolDefinitions is the ordered list of tools exposed to the model.
	ToolDefinitions struct {
		tools []ToolDefinition
	}
)

// NewInputMessages returns a collection holding a copy of msgs.
func NewInputMessages(msgs ...InputMessage) *InputMessages {
	return &InputMessages{messages: append([]InputMessage(nil), msgs...)}
}

// Append adds msg at the end of the collection and returns the receiver.
func (m *InputMessages) Append(msg InputMessage) *InputMessages {
	m.messages = append(m.messages, msg)
	return m
}

// Len returns the number of messages.
func (m *InputMessages) Len() int { return len(m.messages) }

// Messages returns a copy of the messages.
func (m *InputMessages) Messages() []InputMessage {
	return append([]InputMessage(nil), m.messages...)
}

// MarshalJSON encodes the collection as a JSON array.
func (m *InputMessages) MarshalJSON() ([]byte, error) {
	if m.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.messages)
}

// NewOutputMessages returns a collection holding a copy of msgs.
func NewOutputMessages(msgs ...OutputMessage) *OutputMessages {
	return &OutputMessages{messages: append([]OutputMessage(nil), msgs...)}
}

// Append adds msg at the end of the collection and returns the receiver.
func (m *OutputMessages) Append(msg OutputMessage) *OutputMessages {
	m.messages = append(m.messages, msg)
	return m
}

// Len returns the number of messages.
func (m *OutputMessages) Len() int { return len(m.messages) }

// Messages returns a copy of the messages.
func (m *OutputMessages) Messages() []OutputMessage {
	return append([]OutputMessage(nil), m.messages...)
}

// Merge folds a streamed chunk message into the message at index and returns
// a new collection; the receiver is left untouched.
//
// Text parts of chunk are appended to the first text part of the target
// message, or added as a new part when the target has none. All other parts
// are appended as-is. The chunk finish reason wins when set.
func (m *OutputMessages) Merge(index int, chunk OutputMessage) (*OutputMessages, error) {
	if index < 0 || index >= len(m.messages) {
		return nil, fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, index, len(m.messages))
	}
	existing := m.messages[index]
	parts := cloneParts(existing.Parts)
	for _, p := range chunk.Parts {
		tp, ok := p.(TextPart)
		if !ok {
			parts = append(parts, p)
			continue
		}
		merged := false
		for i, ep := range parts {
			if etp, isText := ep.(TextPart); isText {
				parts[i] = TextPart{Content: etp.Content + tp.Content}
				merged = true
				break
			}
		}
		if !merged {
			parts = append(parts, tp)
		}
	}
	finish := existing.FinishReason
	if chunk.FinishReason != "" {
		finish = chunk.FinishReason
	}
	out := make([]OutputMessage, len(m.messages))
	copy(out, m.messages)
	out[index] = OutputMessage{Role: existing.Role, Parts: parts, FinishReason: finish}
	return &OutputMessages{messages: out}, nil
}

// MarshalJSON encodes the collection as a JSON array.
func (m *OutputMessages) MarshalJSON() ([]byte, error) {
	if m.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.messages)
}

// NewSystemInstructions returns system instructions made of parts.
func NewSystemInstructions(parts ...Part) *SystemInstructions {
	return &SystemInstructions{parts: cloneParts(parts)}
}

// Parts returns a copy of the instruction parts.
func (s *SystemInstructions) Parts() []Part { return cloneParts(s.parts) }

// MarshalJSON encodes the instructions as a JSON array of parts.
func (s *SystemInstructions) MarshalJSON() ([]byte, error) {
	if s.parts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.parts)
}

// NewToolDefinitions returns a collection holding a copy of defs.
func NewToolDefinitions(defs ...ToolDefinition) *ToolDefinitions {
	return &ToolDefinitions{tools: append([]ToolDefinition(nil), defs...)}
}

// Append adds def at the end of the collection and returns the receiver.
func (t *ToolDefinitions) Append(def ToolDefinition) *ToolDefinitions {
	t.tools = append(t.tools, def)
	return t
}

// Len returns the number of tool definitions.
func (t *ToolDefinitions) Len() int { return len(t.tools) }

// Definitions returns a copy of the tool definitions.
func (t *ToolDefinitions) Definitions() []ToolDefinition {
	return append([]ToolDefinition(nil), t.tools...)
}

// MarshalJSON encodes the collection as a JSON array.
func (t *ToolDefinitions) MarshalJSON() ([]byte, error) {
	if t.tools == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.tools)
}
