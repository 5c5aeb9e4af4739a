package bedrock

import (
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/genai-otel/runtime/genai/stream"
)

// ChunkConverter maps ConverseStream events to chunks. Tool use blocks are
// numbered by content block index; the converter assigns each one the next
// tool call position. A converter serves one stream.
type ChunkConverter struct {
	positions map[int32]int
	next      int
}

// NewChunkConverter returns a converter for one stream.
func NewChunkConverter() *ChunkConverter {
	return &ChunkConverter{positions: make(map[int32]int)}
}

// Convert maps ev. Events that carry no response data yield nil.
func (c *ChunkConverter) Convert(ev brtypes.ConverseStreamOutput) *stream.Chunk {
	switch e := ev.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		c.positions = make(map[int32]int)
		c.next = 0
		return message(&stream.MessageDelta{Role: string(e.Value.Role)})
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		tu, ok := e.Value.Start.(*brtypes.ContentBlockStartMemberToolUse)
		if !ok || e.Value.ContentBlockIndex == nil {
			return nil
		}
		pos := c.next
		c.next++
		c.positions[*e.Value.ContentBlockIndex] = pos
		return message(&stream.MessageDelta{ToolCalls: []stream.ToolCallDelta{{
			Position: stream.Position(pos),
			ID:       deref(tu.Value.ToolUseId),
			Type:     "function",
			Name:     deref(tu.Value.Name),
		}}})
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		switch d := e.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			return message(&stream.MessageDelta{Content: stream.Text(d.Value)})
		case *brtypes.ContentBlockDeltaMemberToolUse:
			if e.Value.ContentBlockIndex == nil || d.Value.Input == nil {
				return nil
			}
			pos, ok := c.positions[*e.Value.ContentBlockIndex]
			if !ok {
				return nil
			}
			return message(&stream.MessageDelta{ToolCalls: []stream.ToolCallDelta{{
				Position:  stream.Position(pos),
				Arguments: d.Value.Input,
			}}})
		}
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		return &stream.Chunk{Choices: []stream.ChoiceDelta{{FinishReason: string(e.Value.StopReason)}}}
	case *brtypes.ConverseStreamOutputMemberMetadata:
		if e.Value.Usage == nil {
			return nil
		}
		return &stream.Chunk{Usage: &stream.Usage{
			InputTokens:  count(e.Value.Usage.InputTokens),
			OutputTokens: count(e.Value.Usage.OutputTokens),
		}}
	}
	return nil
}

func message(m *stream.MessageDelta) *stream.Chunk {
	return &stream.Chunk{Choices: []stream.ChoiceDelta{{Message: m}}}
}
