// Package anthropic instruments Anthropic Messages API calls made with
// github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"encoding/json"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

type (
	// Request wraps the parameters of a Messages API call. The wire form of
	// the parameters is decoded once, on first access.
	Request struct {
		Params sdk.MessageNewParams

		once sync.Once
		raw  []byte
		wire wireRequest
	}

	wireRequest struct {
		Model         string          `json:"model"`
		MaxTokens     *int64          `json:"max_tokens"`
		Messages      []wireMessage   `json:"messages"`
		System        json.RawMessage `json:"system"`
		Temperature   *float64        `json:"temperature"`
		TopK          *int64          `json:"top_k"`
		TopP          *float64        `json:"top_p"`
		StopSequences []string        `json:"stop_sequences"`
		Tools         []wireTool      `json:"tools"`
	}

	wireMessage struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}

	wireBlock struct {
		Type      string          `json:"type"`
		Text      string          `json:"text"`
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Input     json.RawMessage `json:"input"`
		ToolUseID string          `json:"tool_use_id"`
		Content   json.RawMessage `json:"content"`
		Thinking  string          `json:"thinking"`
	}

	wireTool struct {
		Type        string         `json:"type"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"input_schema"`
	}
)

// NewRequest wraps params.
func NewRequest(params sdk.MessageNewParams) *Request {
	return &Request{Params: params}
}

// NewRequestJSON wraps request parameters already encoded as JSON, for
// example a recorded request body.
func NewRequestJSON(raw []byte) *Request {
	return &Request{raw: raw}
}

func (r *Request) decoded() *wireRequest {
	if r == nil {
		return &wireRequest{}
	}
	r.once.Do(func() {
		raw := r.raw
		if raw == nil {
			b, err := json.Marshal(r.Params)
			if err != nil {
				return
			}
			raw = b
		}
		var w wireRequest
		if err := json.Unmarshal(raw, &w); err != nil {
			return
		}
		r.wire = w
	})
	return &r.wire
}

// blocks decodes message or system content, a string or a list of blocks.
func blocks(raw json.RawMessage) []wireBlock {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []wireBlock{{Type: "text", Text: s}}
	}
	var bs []wireBlock
	if err := json.Unmarshal(raw, &bs); err != nil {
		return nil
	}
	return bs
}
