package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// MessagesClient captures the subset of the Anthropic SDK client used by
	// the adapter. It is satisfied by *sdk.MessageService.
	MessagesClient interface {
		New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
		NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
	}

	// Client traces Messages API calls.
	Client struct {
		msg       MessagesClient
		complete  *instrument.Instrumenter[*Request, *sdk.Message]
		streaming *instrument.Instrumenter[*Request, *stream.Response]
	}

	// Stream is a traced message stream.
	Stream = instrument.Stream[sdk.MessageStreamEventUnion]
)

// New returns a client tracing the calls made through msg.
func New(msg MessagesClient, opts instrument.Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	return &Client{
		msg:       msg,
		complete:  instrument.New[*Request, *sdk.Message](Getter{}, Messages{}, opts),
		streaming: instrument.New[*Request, *stream.Response](StreamGetter{}, StreamMessages{}, opts),
	}, nil
}

// NewFromAPIKey returns a client backed by the default Anthropic SDK HTTP
// client.
func NewFromAPIKey(apiKey string, opts instrument.Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, opts)
}

// Complete sends a message inside a client span.
func (c *Client) Complete(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	ctx, inv := c.complete.Start(ctx, NewRequest(params))
	resp, err := c.msg.New(ctx, params, opts...)
	inv.End(resp, err)
	return resp, err
}

// Stream starts a streamed message. The span ends when the returned stream is
// exhausted or closed.
func (c *Client) Stream(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) *Stream {
	ctx, inv := c.streaming.Start(ctx, NewRequest(params))
	src := c.msg.NewStreaming(ctx, params, opts...)
	return instrument.WrapStream(instrument.NewStreamOperation(inv), src, NewChunkConverter().Convert)
}
