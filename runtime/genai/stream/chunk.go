// Package stream aggregates streamed model responses into a single logical
// response. A ChoiceBuffer folds the deltas of one choice; an Operation owns
// the buffers of one streamed call, tracks response-level metadata, and
// finalizes exactly once.
package stream

type (
	// Chunk is one unit of a streamed response as produced by a provider
	// adapter. Empty strings and nil pointers mean "not present in this
	// chunk".
	Chunk struct {
		// ResponseID is the provider response identifier.
		ResponseID string
		// Model is the model that produced the response.
		Model string
		// Usage carries token counts when the chunk reports them.
		Usage *Usage
		// Choices holds the per-choice deltas.
		Choices []ChoiceDelta
	}

	// Usage reports token counts. Counts overwrite previously seen values.
	Usage struct {
		InputTokens  *int64
		OutputTokens *int64
	}

	// ChoiceDelta is the content of one choice within one chunk.
	ChoiceDelta struct {
		// Index is the choice index the delta applies to.
		Index int
		// FinishReason is set on the delta that ends the choice.
		FinishReason string
		// Message is the message delta, nil when the chunk only carries a
		// finish reason.
		Message *MessageDelta
	}

	// MessageDelta is the incremental or replacement message content of a
	// choice.
	MessageDelta struct {
		// Content is the text delta; nil when the chunk carries no text.
		Content *string
		// Role, Name and ToolCallID are last-non-empty-wins.
		Role       string
		Name       string
		ToolCallID string
		// ToolCalls holds tool call fragments.
		ToolCalls []ToolCallDelta
	}

	// ToolCallDelta is a fragment of a tool call. Fragments are matched by
	// position: Position when set, the index in MessageDelta.ToolCalls
	// otherwise.
	ToolCallDelta struct {
		Position  *int
		ID        string
		Type      string
		Name      string
		Arguments *string
	}
)

// Text returns a pointer to s for use in MessageDelta.Content and
// ToolCallDelta.Arguments.
func Text(s string) *string { return &s }

// Count returns a pointer to n for use in Usage.
func Count(n int64) *int64 { return &n }

// Position returns a pointer to i for use in ToolCallDelta.Position.
func Position(i int) *int { return &i }
