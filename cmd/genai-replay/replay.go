package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"

	"goa.design/genai-otel/features/provider/anthropic"
	"goa.design/genai-otel/features/provider/openai"
	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/stream"
)

// maxLineSize bounds a single recorded event.
const maxLineSize = 4 << 20

type (
	// replayOptions configures one replay.
	replayOptions struct {
		// Provider selects the event format: "openai" or "anthropic".
		Provider string
		// Request is the recorded request body, may be empty.
		Request []byte
		// Replace selects replace mode for text deltas.
		Replace    bool
		Instrument instrument.Options
	}

	// lineSource decodes one JSON event per line. Blank lines and the
	// OpenAI "[DONE]" terminator are skipped.
	lineSource[T any] struct {
		scanner *bufio.Scanner
		line    int
		cur     T
		err     error
	}
)

// replay feeds the events read from in through a traced stream and returns
// the number of events delivered.
func replay(ctx context.Context, in io.Reader, o replayOptions) (int, error) {
	body := o.Request
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	opts := []stream.Option{stream.WithIncremental(!o.Replace)}
	switch o.Provider {
	case "", "openai":
		inst := instrument.New[*openai.Request, *stream.Response](openai.StreamGetter{}, openai.StreamMessages{}, o.Instrument)
		src := newLineSource[openaisdk.ChatCompletionChunk](in)
		return drive(ctx, inst, openai.NewRequestJSON(body), src, openai.ConvertChunk, opts...)
	case "anthropic":
		inst := instrument.New[*anthropic.Request, *stream.Response](anthropic.StreamGetter{}, anthropic.StreamMessages{}, o.Instrument)
		src := newLineSource[anthropicsdk.MessageStreamEventUnion](in)
		return drive(ctx, inst, anthropic.NewRequestJSON(body), src, anthropic.NewChunkConverter().Convert, opts...)
	default:
		return 0, fmt.Errorf("unsupported provider %q", o.Provider)
	}
}

func drive[Req, T any](
	ctx context.Context,
	inst *instrument.Instrumenter[Req, *stream.Response],
	req Req,
	src instrument.Source[T],
	convert func(T) *stream.Chunk,
	opts ...stream.Option,
) (int, error) {
	_, inv := inst.Start(ctx, req)
	s := instrument.WrapStream(instrument.NewStreamOperation(inv, opts...), src, convert)
	defer s.Close()
	var n int
	for s.Next() {
		n++
	}
	return n, s.Err()
}

func newLineSource[T any](r io.Reader) *lineSource[T] {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineSource[T]{scanner: sc}
}

func (s *lineSource[T]) Next() bool {
	if s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || string(line) == "[DONE]" {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			s.err = fmt.Errorf("decode line %d: %w", s.line, err)
			return false
		}
		s.cur = v
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("read events: %w", err)
	}
	return false
}

func (s *lineSource[T]) Current() T { return s.cur }

func (s *lineSource[T]) Err() error { return s.err }

func (s *lineSource[T]) Close() error { return nil }
