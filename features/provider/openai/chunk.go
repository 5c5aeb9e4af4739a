package openai

import (
	sdk "github.com/openai/openai-go"

	"goa.design/genai-otel/runtime/genai/stream"
)

// ConvertChunk maps a streamed chat completion chunk. Tool calls are keyed by
// the index OpenAI assigns them.
func ConvertChunk(c sdk.ChatCompletionChunk) *stream.Chunk {
	out := &stream.Chunk{ResponseID: c.ID, Model: string(c.Model)}
	if in, o := count(c.Usage.PromptTokens), count(c.Usage.CompletionTokens); in != nil || o != nil {
		out.Usage = &stream.Usage{InputTokens: in, OutputTokens: o}
	}
	for _, ch := range c.Choices {
		m := &stream.MessageDelta{Role: string(ch.Delta.Role)}
		if ch.Delta.Content != "" {
			m.Content = stream.Text(ch.Delta.Content)
		}
		for _, tc := range ch.Delta.ToolCalls {
			d := stream.ToolCallDelta{
				Position: stream.Position(int(tc.Index)),
				ID:       tc.ID,
				Type:     string(tc.Type),
				Name:     tc.Function.Name,
			}
			if tc.Function.Arguments != "" {
				d.Arguments = stream.Text(tc.Function.Arguments)
			}
			m.ToolCalls = append(m.ToolCalls, d)
		}
		out.Choices = append(out.Choices, stream.ChoiceDelta{
			Index:        int(ch.Index),
			FinishReason: string(ch.FinishReason),
			Message:      m,
		})
	}
	return out
}
