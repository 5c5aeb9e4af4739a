package stream

import (
	"sync"
	"sync/atomic"

	"goa.design/genai-otel/runtime/genai/messages"
)

type (
	// EndFunc receives the aggregated response when an Operation finalizes.
	// resp is nil when no chunk was observed.
	EndFunc func(resp *Response, err error)

	// Option configures an Operation.
	Option func(*Operation)

	// Operation aggregates the chunks of one streamed model call.
	//
	// Chunks must be delivered by a single producer in arrival order.
	// Finalize may be called from any goroutine, any number of times; the
	// first call wins and runs the EndFunc, later calls do nothing. Chunks
	// delivered after the winning Finalize are ignored.
	Operation struct {
		opts        messages.CaptureOptions
		incremental bool
		onEnd       EndFunc

		// mu serializes buffer mutation with the winner's snapshot. The
		// EndFunc always runs outside of it.
		mu      sync.Mutex
		buffers []*ChoiceBuffer
		seen    bool

		inputTokens   atomic.Int64
		outputTokens  atomic.Int64
		responseID    atomic.Pointer[string]
		responseModel atomic.Pointer[string]

		ended atomic.Bool
	}

	// Response is the logical response reconstructed from a stream.
	Response struct {
		ID           string
		Model        string
		Choices      []Choice
		InputTokens  *int64
		OutputTokens *int64
	}
)

// WithIncremental selects incremental (true, the default) or replace mode
// for text deltas.
func WithIncremental(incremental bool) Option {
	return func(o *Operation) { o.incremental = incremental }
}

// NewOperation returns an Operation that calls onEnd once when finalized.
func NewOperation(opts messages.CaptureOptions, onEnd EndFunc, options ...Option) *Operation {
	o := &Operation{opts: opts, incremental: true, onEnd: onEnd}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// OnChunk folds c into the operation state. It is a no-op once the
// operation has ended.
func (o *Operation) OnChunk(c *Chunk) {
	if c == nil || o.ended.Load() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ended.Load() {
		return
	}
	o.seen = true
	if c.ResponseID != "" {
		id := c.ResponseID
		o.responseID.Store(&id)
	}
	if c.Model != "" {
		m := c.Model
		o.responseModel.Store(&m)
	}
	if u := c.Usage; u != nil {
		if u.InputTokens != nil {
			o.inputTokens.Store(*u.InputTokens)
		}
		if u.OutputTokens != nil {
			o.outputTokens.Store(*u.OutputTokens)
		}
	}
	for _, d := range c.Choices {
		if d.Index < 0 {
			continue
		}
		for len(o.buffers) <= d.Index {
			o.buffers = append(o.buffers, nil)
		}
		b := o.buffers[d.Index]
		if b == nil {
			b = NewChoiceBuffer(d.Index, o.opts, o.incremental)
			o.buffers[d.Index] = b
		}
		b.Append(d)
	}
}

// Ended reports whether the operation has been finalized.
func (o *Operation) Ended() bool { return o.ended.Load() }

// Finalize ends the operation with err, which may be nil. Only the first
// call builds the response and runs the EndFunc; it returns true. All other
// calls return false without side effects.
func (o *Operation) Finalize(err error) bool {
	if !o.ended.CompareAndSwap(false, true) {
		return false
	}
	resp := o.snapshot()
	if o.onEnd != nil {
		o.onEnd(resp, err)
	}
	return true
}

func (o *Operation) snapshot() *Response {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.seen {
		return nil
	}
	resp := &Response{
		Choices:      make([]Choice, 0, len(o.buffers)),
		InputTokens:  nonZero(o.inputTokens.Load()),
		OutputTokens: nonZero(o.outputTokens.Load()),
	}
	if id := o.responseID.Load(); id != nil {
		resp.ID = *id
	}
	if m := o.responseModel.Load(); m != nil {
		resp.Model = *m
	}
	for _, b := range o.buffers {
		if b == nil {
			continue
		}
		resp.Choices = append(resp.Choices, b.Result())
	}
	return resp
}

// nonZero reports zero counts as unset: a stream that never reported usage
// and one that reported zero tokens are indistinguishable here.
func nonZero(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

// FinishReasons returns the finish reason of each choice that reported one,
// in choice order.
func (r *Response) FinishReasons() []string {
	if r == nil {
		return nil
	}
	var reasons []string
	for _, c := range r.Choices {
		if c.FinishReason != "" {
			reasons = append(reasons, c.FinishReason)
		}
	}
	return reasons
}

// OutputMessages returns one output message per choice, in choice order.
func (r *Response) OutputMessages() *messages.OutputMessages {
	if r == nil {
		return nil
	}
	out := messages.NewOutputMessages()
	for _, c := range r.Choices {
		out.Append(c.Message)
	}
	return out
}
