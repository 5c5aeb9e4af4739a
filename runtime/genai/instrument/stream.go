package instrument

import (
	"errors"

	"goa.design/genai-otel/runtime/genai/messages"
	"goa.design/genai-otel/runtime/genai/stream"
)

// ErrStreamClosed finalizes an operation whose stream was closed before it
// was exhausted.
var ErrStreamClosed = errors.New("genai: stream closed before completion")

type (
	// Source is a pull-based stream of provider events. The openai-go and
	// anthropic-sdk-go ssestream.Stream types satisfy it.
	Source[T any] interface {
		Next() bool
		Current() T
		Err() error
		Close() error
	}

	// Stream wraps a Source and feeds each event to a stream.Operation. It
	// exposes the same pull interface so callers can substitute it for the
	// wrapped stream.
	Stream[T any] struct {
		src     Source[T]
		op      *stream.Operation
		convert func(T) *stream.Chunk
	}

	// StreamResponse implements the response side of AttributesGetter and
	// MessagesProvider over an aggregated stream.Response. Integrations embed
	// it next to their request-side getter.
	StreamResponse[Req any] struct{}
)

// NewStreamOperation returns a stream.Operation that ends inv with the
// aggregated response when finalized. It uses the capture options of the
// instrumenter that started inv.
func NewStreamOperation[Req any](inv *Invocation[Req, *stream.Response], opts ...stream.Option) *stream.Operation {
	return stream.NewOperation(inv.inst.capture, func(resp *stream.Response, err error) {
		inv.End(resp, err)
	}, opts...)
}

// WrapStream returns a Stream feeding op with the chunks produced by convert
// for each event of src. convert may return nil for events that carry no
// chunk data. The operation is finalized with the source error once src is
// exhausted, or with ErrStreamClosed when Close is called first.
func WrapStream[T any](op *stream.Operation, src Source[T], convert func(T) *stream.Chunk) *Stream[T] {
	return &Stream[T]{src: src, op: op, convert: convert}
}

// Next advances the wrapped source.
func (s *Stream[T]) Next() bool {
	if s.src.Next() {
		if c := s.convert(s.src.Current()); c != nil {
			s.op.OnChunk(c)
		}
		return true
	}
	s.op.Finalize(s.src.Err())
	return false
}

// Current returns the current event of the wrapped source.
func (s *Stream[T]) Current() T { return s.src.Current() }

// Err returns the error of the wrapped source.
func (s *Stream[T]) Err() error { return s.src.Err() }

// Close closes the wrapped source. Closing a stream that was not exhausted
// finalizes the operation as canceled.
func (s *Stream[T]) Close() error {
	err := s.src.Close()
	s.op.Finalize(ErrStreamClosed)
	return err
}

// Operation returns the operation fed by the stream.
func (s *Stream[T]) Operation() *stream.Operation { return s.op }

// ResponseFinishReasons returns the finish reason of each choice.
func (StreamResponse[Req]) ResponseFinishReasons(_ Req, resp *stream.Response) []string {
	return resp.FinishReasons()
}

// ResponseID returns the last response id observed on the stream.
func (StreamResponse[Req]) ResponseID(_ Req, resp *stream.Response) *string {
	if resp == nil || resp.ID == "" {
		return nil
	}
	return &resp.ID
}

// ResponseModel returns the last response model observed on the stream.
func (StreamResponse[Req]) ResponseModel(_ Req, resp *stream.Response) *string {
	if resp == nil || resp.Model == "" {
		return nil
	}
	return &resp.Model
}

// UsageInputTokens returns the reported input token count.
func (StreamResponse[Req]) UsageInputTokens(_ Req, resp *stream.Response) *int64 {
	if resp == nil {
		return nil
	}
	return resp.InputTokens
}

// UsageOutputTokens returns the reported output token count.
func (StreamResponse[Req]) UsageOutputTokens(_ Req, resp *stream.Response) *int64 {
	if resp == nil {
		return nil
	}
	return resp.OutputTokens
}

// OutputMessages returns one message per aggregated choice.
func (StreamResponse[Req]) OutputMessages(_ Req, resp *stream.Response) *messages.OutputMessages {
	return resp.OutputMessages()
}
