package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/stream"
)

type (
	// RuntimeClient mirrors the subset of the Bedrock runtime client used by
	// the adapter. It is satisfied by *bedrockruntime.Client.
	RuntimeClient interface {
		Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
		ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
	}

	// StreamOutput is the subset of the ConverseStream output used by the
	// adapter. It is satisfied by *bedrockruntime.ConverseStreamOutput.
	StreamOutput interface {
		GetStream() *bedrockruntime.ConverseStreamEventStream
	}

	// Client traces Converse and ConverseStream calls.
	Client struct {
		runtime    RuntimeClient
		openStream func(context.Context, *bedrockruntime.ConverseStreamInput, ...func(*bedrockruntime.Options)) (StreamOutput, error)
		converse  *instrument.Instrumenter[*Request, *bedrockruntime.ConverseOutput]
		streaming *instrument.Instrumenter[*Request, *stream.Response]
	}

	// Stream is a traced ConverseStream event stream.
	Stream = instrument.Stream[brtypes.ConverseStreamOutput]

	// eventSource adapts the channel based event stream to an
	// instrument.Source.
	eventSource struct {
		ctx    context.Context
		stream *bedrockruntime.ConverseStreamEventStream
		cur    brtypes.ConverseStreamOutput
		err    error
	}
)

// New returns a client tracing the calls made through runtime.
func New(runtime RuntimeClient, opts instrument.Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	return &Client{
		runtime:    runtime,
		openStream: streamOpener(runtime),
		converse:   instrument.New[*Request, *bedrockruntime.ConverseOutput](Getter{}, Messages{}, opts),
		streaming:  instrument.New[*Request, *stream.Response](StreamGetter{}, StreamMessages{}, opts),
	}, nil
}

// NewFromConfig returns a client backed by a Bedrock runtime client built
// from cfg.
func NewFromConfig(cfg aws.Config, opts instrument.Options) (*Client, error) {
	return New(bedrockruntime.NewFromConfig(cfg), opts)
}

// Converse runs a Converse call inside a client span.
func (c *Client) Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	ctx, inv := c.converse.Start(ctx, FromConverse(in))
	out, err := c.runtime.Converse(ctx, in, optFns...)
	inv.End(out, err)
	return out, err
}

// ConverseStream starts a ConverseStream call. When the call fails before
// any event is received the span ends immediately and the error is
// returned. Otherwise the span ends when the returned stream is exhausted or
// closed.
func (c *Client) ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*Stream, error) {
	ctx, inv := c.streaming.Start(ctx, FromConverseStream(in))
	out, err := c.openStream(ctx, in, optFns...)
	if err == nil && (out == nil || out.GetStream() == nil) {
		err = errors.New("bedrock: empty stream")
	}
	if err != nil {
		inv.End(nil, err)
		return nil, err
	}
	src := &eventSource{ctx: ctx, stream: out.GetStream()}
	return instrument.WrapStream(instrument.NewStreamOperation(inv), src, NewChunkConverter().Convert), nil
}

func streamOpener(runtime RuntimeClient) func(context.Context, *bedrockruntime.ConverseStreamInput, ...func(*bedrockruntime.Options)) (StreamOutput, error) {
	return func(ctx context.Context, in *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (StreamOutput, error) {
		out, err := runtime.ConverseStream(ctx, in, optFns...)
		if err != nil || out == nil {
			return nil, err
		}
		return out, nil
	}
}

func (s *eventSource) Next() bool {
	if s.err != nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	case ev, ok := <-s.stream.Events():
		if !ok {
			s.err = s.stream.Err()
			return false
		}
		s.cur = ev
		return true
	}
}

func (s *eventSource) Current() brtypes.ConverseStreamOutput { return s.cur }

func (s *eventSource) Err() error { return s.err }

func (s *eventSource) Close() error { return s.stream.Close() }
