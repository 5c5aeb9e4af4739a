package stream

import (
	"strings"
	"unicode/utf8"

	"goa.design/genai-otel/runtime/genai/messages"
)

type (
	// ChoiceBuffer accumulates the deltas of one response choice. It is not
	// safe for concurrent use.
	ChoiceBuffer struct {
		index       int
		opts        messages.CaptureOptions
		incremental bool

		finishReason string

		// content grows in incremental mode, snapshot holds the last full
		// content in replace mode.
		content    strings.Builder
		contentLen int
		snapshot   string
		truncated  bool

		role       string
		name       string
		toolCallID string

		// toolCalls is indexed by tool call position; nil entries are
		// positions that were never observed.
		toolCalls []*toolCallBuffer
	}

	toolCallBuffer struct {
		id        string
		typ       string
		name      string
		arguments strings.Builder
	}

	// Choice is the finalized content of one response choice.
	Choice struct {
		Index        int
		FinishReason string
		Name         string
		ToolCallID   string
		Message      messages.OutputMessage
	}
)

// NewChoiceBuffer returns an empty buffer for the choice at index. When
// incremental is true text deltas are appended, otherwise each delta
// replaces the previous content.
func NewChoiceBuffer(index int, opts messages.CaptureOptions, incremental bool) *ChoiceBuffer {
	return &ChoiceBuffer{index: index, opts: opts, incremental: incremental}
}

// Append folds d into the buffer.
func (b *ChoiceBuffer) Append(d ChoiceDelta) {
	if m := d.Message; m != nil {
		if m.Content != nil && b.opts.CaptureContent() {
			if b.incremental {
				b.appendContent(*m.Content)
			} else {
				b.replaceContent(*m.Content)
			}
		}
		for i, tc := range m.ToolCalls {
			pos := i
			if tc.Position != nil {
				pos = *tc.Position
			}
			b.appendToolCall(pos, tc)
		}
		if m.Role != "" {
			b.role = m.Role
		}
		if m.Name != "" {
			b.name = m.Name
		}
		if m.ToolCallID != "" {
			b.toolCallID = m.ToolCallID
		}
	}
	if d.FinishReason != "" {
		b.finishReason = d.FinishReason
	}
}

// appendContent grows the content until it reaches the budget. The delta
// that reaches it is cut, the marker is written once and later deltas are
// dropped.
func (b *ChoiceBuffer) appendContent(delta string) {
	if b.truncated {
		return
	}
	limit := b.opts.MaxContentLength()
	n := utf8.RuneCountInString(delta)
	if b.contentLen+n < limit {
		b.content.WriteString(delta)
		b.contentLen += n
		return
	}
	b.content.WriteString(prefixRunes(delta, limit-b.contentLen))
	b.content.WriteString(messages.TruncationMarker)
	b.contentLen = limit
	b.truncated = true
}

func (b *ChoiceBuffer) replaceContent(content string) {
	limit := b.opts.MaxContentLength()
	if utf8.RuneCountInString(content) > limit {
		b.snapshot = prefixRunes(content, limit) + messages.TruncationMarker
		b.truncated = true
		return
	}
	b.snapshot = content
	b.truncated = false
}

func (b *ChoiceBuffer) appendToolCall(pos int, d ToolCallDelta) {
	if pos < 0 {
		return
	}
	for len(b.toolCalls) <= pos {
		b.toolCalls = append(b.toolCalls, nil)
	}
	tc := b.toolCalls[pos]
	if tc == nil {
		tc = &toolCallBuffer{id: d.ID}
		b.toolCalls[pos] = tc
	}
	if d.Type != "" {
		tc.typ = d.Type
	}
	if d.Name != "" {
		tc.name = d.Name
	}
	if d.Arguments != nil && b.opts.CaptureContent() {
		tc.arguments.WriteString(*d.Arguments)
	}
}

// Content returns the content accumulated so far.
func (b *ChoiceBuffer) Content() string {
	if b.incremental {
		return b.content.String()
	}
	return b.snapshot
}

// Truncated reports whether the content was cut at the budget.
func (b *ChoiceBuffer) Truncated() bool { return b.truncated }

// Result returns the choice built from the current state. It has no side
// effects and may be called repeatedly.
func (b *ChoiceBuffer) Result() Choice {
	role := messages.Role(b.role)
	if role == "" {
		role = messages.RoleAssistant
	}
	var parts []messages.Part
	if content := b.Content(); content != "" {
		parts = append(parts, messages.TextPart{Content: content})
	}
	for _, tc := range b.toolCalls {
		if tc == nil {
			continue
		}
		parts = append(parts, messages.ToolCallRequestPart{
			ID:        tc.id,
			Name:      tc.name,
			Arguments: tc.arguments.String(),
		})
	}
	return Choice{
		Index:        b.index,
		FinishReason: b.finishReason,
		Name:         b.name,
		ToolCallID:   b.toolCallID,
		Message: messages.OutputMessage{
			Role:         role,
			Parts:        parts,
			FinishReason: b.finishReason,
		},
	}
}

// prefixRunes returns the first n runes of s.
func prefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
