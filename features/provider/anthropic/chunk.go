package anthropic

import (
	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/genai-otel/runtime/genai/stream"
)

// ChunkConverter maps Messages API stream events to chunks. Anthropic numbers
// content blocks rather than tool calls, so the converter assigns each
// tool_use block the next tool call position. A converter serves one stream.
type ChunkConverter struct {
	positions map[int64]int
	next      int
}

// NewChunkConverter returns a converter for one stream.
func NewChunkConverter() *ChunkConverter {
	return &ChunkConverter{positions: make(map[int64]int)}
}

// Convert maps ev. Events that carry no response data yield nil.
func (c *ChunkConverter) Convert(ev sdk.MessageStreamEventUnion) *stream.Chunk {
	switch e := ev.AsAny().(type) {
	case sdk.MessageStartEvent:
		c.positions = make(map[int64]int)
		c.next = 0
		out := &stream.Chunk{
			ResponseID: e.Message.ID,
			Model:      string(e.Message.Model),
			Choices:    []stream.ChoiceDelta{{Message: &stream.MessageDelta{Role: string(e.Message.Role)}}},
		}
		if in := count(e.Message.Usage.InputTokens); in != nil {
			out.Usage = &stream.Usage{InputTokens: in, OutputTokens: count(e.Message.Usage.OutputTokens)}
		}
		return out
	case sdk.ContentBlockStartEvent:
		switch b := e.ContentBlock.AsAny().(type) {
		case sdk.ToolUseBlock:
			pos := c.next
			c.next++
			c.positions[e.Index] = pos
			return message(&stream.MessageDelta{ToolCalls: []stream.ToolCallDelta{{
				Position: stream.Position(pos),
				ID:       b.ID,
				Type:     "function",
				Name:     b.Name,
			}}})
		case sdk.TextBlock:
			if b.Text != "" {
				return message(&stream.MessageDelta{Content: stream.Text(b.Text)})
			}
		}
	case sdk.ContentBlockDeltaEvent:
		switch d := e.Delta.AsAny().(type) {
		case sdk.TextDelta:
			return message(&stream.MessageDelta{Content: stream.Text(d.Text)})
		case sdk.InputJSONDelta:
			pos, ok := c.positions[e.Index]
			if !ok {
				return nil
			}
			return message(&stream.MessageDelta{ToolCalls: []stream.ToolCallDelta{{
				Position:  stream.Position(pos),
				Arguments: stream.Text(d.PartialJSON),
			}}})
		}
	case sdk.MessageDeltaEvent:
		out := &stream.Chunk{Choices: []stream.ChoiceDelta{{FinishReason: string(e.Delta.StopReason)}}}
		in, o := count(e.Usage.InputTokens), count(e.Usage.OutputTokens)
		if in != nil || o != nil {
			out.Usage = &stream.Usage{InputTokens: in, OutputTokens: o}
		}
		return out
	}
	return nil
}

func message(m *stream.MessageDelta) *stream.Chunk {
	return &stream.Chunk{Choices: []stream.ChoiceDelta{{Message: m}}}
}
