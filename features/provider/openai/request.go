// Package openai instruments OpenAI Chat Completions calls made with
// github.com/openai/openai-go. It maps request parameters, completions and
// streamed chunks to the GenAI attributes and message model, and provides a
// traced client wrapping the SDK chat completion service.
package openai

import (
	"encoding/json"
	"sync"

	sdk "github.com/openai/openai-go"
)

type (
	// Request wraps the parameters of a chat completion call. The wire form
	// of the parameters is decoded once, on first access.
	Request struct {
		Params sdk.ChatCompletionNewParams

		once sync.Once
		raw  []byte
		wire wireRequest
	}

	wireRequest struct {
		Model               string              `json:"model"`
		Messages            []wireMessage       `json:"messages"`
		Seed                *int64              `json:"seed"`
		FrequencyPenalty    *float64            `json:"frequency_penalty"`
		PresencePenalty     *float64            `json:"presence_penalty"`
		MaxTokens           *int64              `json:"max_tokens"`
		MaxCompletionTokens *int64              `json:"max_completion_tokens"`
		Stop                json.RawMessage     `json:"stop"`
		Temperature         *float64            `json:"temperature"`
		TopP                *float64            `json:"top_p"`
		N                   *int64              `json:"n"`
		ResponseFormat      *wireResponseFormat `json:"response_format"`
		Tools               []wireTool          `json:"tools"`
	}

	wireResponseFormat struct {
		Type string `json:"type"`
	}

	wireMessage struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		Name       string          `json:"name"`
		ToolCalls  []wireToolCall  `json:"tool_calls"`
		ToolCallID string          `json:"tool_call_id"`
	}

	wireToolCall struct {
		ID       string           `json:"id"`
		Type     string           `json:"type"`
		Function wireFunctionCall `json:"function"`
	}

	wireFunctionCall struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	}

	wireTool struct {
		Type     string           `json:"type"`
		Function wireFunctionSpec `json:"function"`
	}

	wireFunctionSpec struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	}
)

// NewRequest wraps params.
func NewRequest(params sdk.ChatCompletionNewParams) *Request {
	return &Request{Params: params}
}

// NewRequestJSON builds a request from its wire form.
func NewRequestJSON(raw []byte) *Request {
	return &Request{raw: raw}
}

// decoded returns the wire form of the parameters. Parameters that cannot
// be encoded yield an empty request so that every attribute is omitted.
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

// stopSequences decodes the stop parameter, a string or a list of strings.
func (w *wireRequest) stopSequences() []string {
	if len(w.Stop) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(w.Stop, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(w.Stop, &many); err == nil {
		return many
	}
	return nil
}
