package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// ChatClient captures the subset of the openai-go chat completion service
	// used by the client. It is satisfied by *sdk.ChatCompletionService.
	ChatClient interface {
		New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
		NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
	}

	// Client traces chat completion calls.
	Client struct {
		chat      ChatClient
		complete  *instrument.Instrumenter[*Request, *sdk.ChatCompletion]
		streaming *instrument.Instrumenter[*Request, *stream.Response]
	}

	// Stream is a traced chat completion stream.
	Stream = instrument.Stream[sdk.ChatCompletionChunk]
)

// New returns a client tracing the calls made through chat.
func New(chat ChatClient, opts instrument.Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	return &Client{
		chat:      chat,
		complete:  instrument.New[*Request, *sdk.ChatCompletion](Getter{}, Messages{}, opts),
		streaming: instrument.New[*Request, *stream.Response](StreamGetter{}, StreamMessages{}, opts),
	}, nil
}

// NewFromAPIKey returns a client backed by the default openai-go HTTP
// client.
func NewFromAPIKey(apiKey string, opts instrument.Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, opts)
}

// Complete runs a chat completion inside a client span.
func (c *Client) Complete(ctx context.Context, params sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error) {
	ctx, inv := c.complete.Start(ctx, NewRequest(params))
	resp, err := c.chat.New(ctx, params, opts...)
	inv.End(resp, err)
	return resp, err
}

// Stream starts a streamed chat completion. The span ends when the returned
// stream is exhausted or closed.
func (c *Client) Stream(ctx context.Context, params sdk.ChatCompletionNewParams, opts ...option.RequestOption) *Stream {
	ctx, inv := c.streaming.Start(ctx, NewRequest(params))
	src := c.chat.NewStreaming(ctx, params, opts...)
	return instrument.WrapStream(instrument.NewStreamOperation(inv), src, ConvertChunk)
}
